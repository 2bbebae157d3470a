package record

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/yanqian/todoc/pkg/errors"
	"github.com/yanqian/todoc/pkg/util"
)

// Section is one category of an aggregated day.
type Section[T any] struct {
	Category RecordType `json:"category"`
	Label    string     `json:"label"`
	Header   Header     `json:"header"`
	Count    int        `json:"count"`
	Card     *T         `json:"card,omitempty"`
	// Prior is the newest record of the category on or before the day.
	Prior Record `json:"prior,omitempty"`
}

// Day is the display model of one (kid, date).
type Day struct {
	KidID  int64               `json:"kid_id"`
	Date   string              `json:"date"`
	Today  bool                `json:"today"`
	Sleep  Section[SleepCard]  `json:"sleep"`
	Growth Section[GrowthCard] `json:"growth"`
	Meal   Section[MealCard]   `json:"meal"`
	Health Section[HealthCard] `json:"health"`
	Diaper Section[DiaperCard] `json:"diaper"`
	Etc    Section[EtcCard]    `json:"etc"`

	Bucket DayBucket `json:"-"`
}

// Find returns the day's record with id.
func (d Day) Find(id int64) (Record, bool) {
	for _, t := range AllTypes {
		for _, rec := range d.Bucket[t] {
			if rec.Base().ID == id {
				return rec, true
			}
		}
	}
	return nil, false
}

// Empty reports whether the day has no records at all.
func (d Day) Empty() bool {
	for _, t := range AllTypes {
		if d.Bucket.Len(t) > 0 {
			return false
		}
	}
	return true
}

// Aggregator assembles a Day from the records API.
type Aggregator struct {
	cfg         Config
	api         Reader
	transformer Transformer
	now         func() time.Time
	logger      *slog.Logger
}

// NewAggregator wires the aggregator to the records API.
func NewAggregator(cfg Config, api Reader, logger *slog.Logger) *Aggregator {
	cfg = cfg.withDefaults()
	return &Aggregator{
		cfg:         cfg,
		api:         api,
		transformer: NewTransformer(cfg.Location),
		now:         time.Now,
		logger:      logger.With("component", "record.aggregator"),
	}
}

// WithClock replaces the wall clock, for tests and replays.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	a.transformer.Now = now
	return a
}

// Location is the zone days are computed in.
func (a *Aggregator) Location() *time.Location {
	return a.cfg.Location
}

// Today returns the current date in the aggregator's zone.
func (a *Aggregator) Today() string {
	return util.DateOf(a.now(), a.cfg.Location)
}

// FetchDay loads the day's records and, in parallel, the newest record of every
// category on or before date. Any failed call fails the whole day.
func (a *Aggregator) FetchDay(ctx context.Context, kidID int64, date string) (Day, error) {
	if _, ok := util.ParseISODate(date); !ok || len(date) != len(util.ISODateLayout) {
		return Day{}, apperrors.Wrap(apperrors.CodeInvalidInput, "date must be YYYY-MM-DD", nil)
	}

	var (
		records []Record
		priors  = make([]Record, len(AllTypes))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := a.api.RecordsByDate(gctx, kidID, date)
		if err != nil {
			return fmt.Errorf("records for %s: %w", date, err)
		}
		records = recs
		return nil
	})
	for i, t := range AllTypes {
		g.Go(func() error {
			recs, err := a.api.ListRecords(gctx, kidID, ListQuery{RecordType: t, EndDate: date, Limit: 1, Page: 1})
			if err != nil {
				return fmt.Errorf("previous %s record: %w", t, err)
			}
			if len(recs) > 0 {
				priors[i] = Normalize(recs[0])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Day{}, apperrors.Wrap(apperrors.CodeUpstream, "기록을 불러오지 못했어요.", err)
	}

	bucket := BucketRecords(records, a.cfg.Location)
	var previousGrowth *GrowthRecord
	if latest, ok := bucket.Latest(TypeGrowth).(*GrowthRecord); ok {
		prev, err := a.growthPredecessor(ctx, kidID, date, latest, Of[*GrowthRecord](bucket, TypeGrowth))
		if err != nil {
			return Day{}, apperrors.Wrap(apperrors.CodeUpstream, "기록을 불러오지 못했어요.", err)
		}
		previousGrowth = prev
	}

	return a.assemble(kidID, date, bucket, priors, previousGrowth), nil
}

func (a *Aggregator) assemble(kidID int64, date string, bucket DayBucket, priors []Record, previousGrowth *GrowthRecord) Day {
	now := a.now()
	today := util.DateOf(now, a.cfg.Location)
	tr := a.transformer
	header := func(i int, t RecordType) HeaderInput {
		return HeaderInput{
			Category:     t,
			SelectedDate: date,
			Today:        today,
			Latest:       bucket.Latest(t),
			Prior:        priors[i],
			Now:          now,
			Loc:          a.cfg.Location,
		}
	}

	var latestGrowth *GrowthRecord
	if g, ok := bucket.Latest(TypeGrowth).(*GrowthRecord); ok {
		latestGrowth = g
	}
	return Day{
		KidID:  kidID,
		Date:   date,
		Today:  date == today,
		Sleep:  section(bucket, header(0, TypeSleep), tr.Sleep(Of[*SleepRecord](bucket, TypeSleep))),
		Growth: section(bucket, header(1, TypeGrowth), tr.Growth(latestGrowth, previousGrowth)),
		Meal:   section(bucket, header(2, TypeMeal), tr.Meal(Of[*MealRecord](bucket, TypeMeal))),
		Health: section(bucket, header(3, TypeHealth), tr.Health(Of[*HealthRecord](bucket, TypeHealth))),
		Diaper: section(bucket, header(4, TypeDiaper), tr.Diaper(Of[*DiaperRecord](bucket, TypeDiaper))),
		Etc:    section(bucket, header(5, TypeEtc), tr.Etc(Of[*EtcRecord](bucket, TypeEtc))),
		Bucket: bucket,
	}
}

func section[T any](bucket DayBucket, in HeaderInput, card *T) Section[T] {
	return Section[T]{
		Category: in.Category,
		Label:    in.Category.Label(),
		Header:   BuildHeader(in),
		Count:    bucket.Len(in.Category),
		Card:     card,
		Prior:    in.Prior,
	}
}

// growthPredecessor finds the growth record created immediately before latest.
// It scans the listing up to MaxLookbackPages pages of PreviousLookupLimit; the
// listing is ordered by record_date, so creation order has to be compared
// across every fetched row rather than taken from the first one.
func (a *Aggregator) growthPredecessor(ctx context.Context, kidID int64, date string, latest *GrowthRecord, sameDay []*GrowthRecord) (*GrowthRecord, error) {
	loc := a.cfg.Location
	latestAt := CreatedTime(latest, loc)
	var best *GrowthRecord
	consider := func(candidate *GrowthRecord) {
		if candidate == nil || candidate.ID == latest.ID {
			return
		}
		if !createdBefore(candidate, latest, loc) {
			return
		}
		if best == nil || createdBefore(best, candidate, loc) {
			best = candidate
		}
	}
	for _, rec := range sameDay {
		consider(rec)
	}

	limit := a.cfg.PreviousLookupLimit
	for page := 1; page <= a.cfg.MaxLookbackPages; page++ {
		recs, err := a.api.ListRecords(ctx, kidID, ListQuery{RecordType: TypeGrowth, EndDate: date, Limit: limit, Page: page})
		if err != nil {
			return nil, fmt.Errorf("growth history page %d: %w", page, err)
		}
		for _, rec := range recs {
			if g, ok := rec.(*GrowthRecord); ok {
				consider(g)
			}
		}
		if len(recs) < limit {
			return best, nil
		}
	}
	a.logger.Debug("growth history scan hit page cap",
		"kid_id", kidID,
		"date", date,
		"latest_created_at", latestAt,
		"pages", a.cfg.MaxLookbackPages,
	)
	return best, nil
}

// createdBefore orders by created_at, then id.
func createdBefore(a, b Record, loc *time.Location) bool {
	at, bt := CreatedTime(a, loc), CreatedTime(b, loc)
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return a.Base().ID < b.Base().ID
}
