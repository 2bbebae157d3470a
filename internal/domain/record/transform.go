package record

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yanqian/todoc/pkg/util"
)

const (
	colorNightSleep = "#328B6D"
	colorNap        = "#E8D5A3"
	colorUnknown    = "#BDBDBD"
)

var diaperColors = map[string]string{
	"yellow": "#E8D5A3",
	"brown":  "#4B3131",
	"green":  "#328B6D",
}

// SleepEntry is one displayed sleep.
type SleepEntry struct {
	ID       int64        `json:"id"`
	Type     string       `json:"type"`
	Night    bool         `json:"night"`
	Start    string       `json:"start"`
	End      string       `json:"end"`
	Duration string       `json:"duration"`
	Quality  string       `json:"quality,omitempty"`
	Color    string       `json:"color"`
	Memo     string       `json:"memo,omitempty"`
	Raw      *SleepRecord `json:"raw"`

	minutes int
}

// SleepCard lists a day's sleeps with the rounded total.
type SleepCard struct {
	TotalHours int          `json:"total_hours"`
	Summary    string       `json:"summary"`
	Entries    []SleepEntry `json:"entries"`
}

// Measure is a growth value with its change against the previous record.
type Measure struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Change *string `json:"change,omitempty"`
}

// Positive reports whether the change renders as an increase.
func (m Measure) Positive() bool {
	return m.Change != nil && strings.HasPrefix(*m.Change, "+")
}

// GrowthCard is the latest growth snapshot.
type GrowthCard struct {
	ID                int64         `json:"id"`
	RecordDate        string        `json:"record_date"`
	LastRecord        string        `json:"last_record"`
	Height            *Measure      `json:"height,omitempty"`
	Weight            *Measure      `json:"weight,omitempty"`
	HeadCircumference *Measure      `json:"head_circumference,omitempty"`
	Activities        []string      `json:"activities"`
	Memo              string        `json:"memo,omitempty"`
	Raw               *GrowthRecord `json:"raw"`
	PreviousID        int64         `json:"previous_id,omitempty"`
}

// MealEntry is one displayed feeding.
type MealEntry struct {
	ID     int64       `json:"id"`
	Time   string      `json:"time"`
	Type   string      `json:"type"`
	Detail string      `json:"detail,omitempty"`
	Amount string      `json:"amount"`
	Burp   string      `json:"burp"`
	Memo   string      `json:"memo,omitempty"`
	Raw    *MealRecord `json:"raw"`
}

// MealCard lists a day's feedings.
type MealCard struct {
	TotalCount int         `json:"total_count"`
	Summary    string      `json:"summary"`
	Entries    []MealEntry `json:"entries"`
}

// HealthEntry is one displayed health note.
type HealthEntry struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	Date      string        `json:"date"`
	Time      string        `json:"time"`
	Symptoms  []string      `json:"symptoms"`
	Medicines []string      `json:"medicines"`
	Tags      []string      `json:"tags"`
	Memo      string        `json:"memo,omitempty"`
	Raw       *HealthRecord `json:"raw"`
}

// HealthCard lists a day's health notes.
type HealthCard struct {
	Entries []HealthEntry `json:"entries"`
}

// DiaperEntry is one displayed diaper change.
type DiaperEntry struct {
	ID        int64         `json:"id"`
	Time      string        `json:"time"`
	Type      string        `json:"type"`
	Amount    string        `json:"amount,omitempty"`
	Condition string        `json:"condition,omitempty"`
	ColorName string        `json:"color_name,omitempty"`
	Color     string        `json:"color"`
	Memo      string        `json:"memo,omitempty"`
	Raw       *DiaperRecord `json:"raw"`
}

// DiaperCard lists a day's diaper changes.
type DiaperCard struct {
	Entries []DiaperEntry `json:"entries"`
}

// EtcEntry is one free-form note.
type EtcEntry struct {
	ID   int64      `json:"id"`
	Date string     `json:"date"`
	Text string     `json:"text"`
	Memo string     `json:"memo,omitempty"`
	Raw  *EtcRecord `json:"raw"`
}

// EtcCard lists a day's notes.
type EtcCard struct {
	Entries []EtcEntry `json:"entries"`
}

// Transformer turns raw records into display models. It holds no state beyond
// the clock and zone it formats with.
type Transformer struct {
	Location *time.Location
	Now      func() time.Time
}

// NewTransformer builds a Transformer for loc using the wall clock.
func NewTransformer(loc *time.Location) Transformer {
	if loc == nil {
		loc = time.Local
	}
	return Transformer{Location: loc, Now: time.Now}
}

func (t Transformer) loc() *time.Location {
	if t.Location == nil {
		return time.Local
	}
	return t.Location
}

func (t Transformer) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

// Sleep maps a day's sleeps, keeping their order. Returns nil for no records.
func (t Transformer) Sleep(records []*SleepRecord) *SleepCard {
	if len(records) == 0 {
		return nil
	}
	card := &SleepCard{Entries: make([]SleepEntry, 0, len(records))}
	total := 0
	for _, rec := range records {
		entry := t.sleepEntry(rec)
		total += entry.minutes
		card.Entries = append(card.Entries, entry)
	}
	card.TotalHours = int(math.Round(float64(total) / 60))
	card.Summary = fmt.Sprintf("오늘의 수면 : %d시간", card.TotalHours)
	return card
}

func (t Transformer) sleepEntry(rec *SleepRecord) SleepEntry {
	loc := t.loc()
	minutes := 0
	if rec.DurationHours != nil {
		minutes = util.DurationMinutes(*rec.DurationHours)
	} else {
		start, okStart := rec.StartDatetime.Time(loc)
		end, okEnd := rec.EndDatetime.Time(loc)
		if okStart && okEnd && end.After(start) {
			minutes = int(end.Sub(start).Round(time.Minute) / time.Minute)
		}
	}
	night := rec.SleepType == "night"
	color := colorNap
	if night {
		color = colorNightSleep
	}
	return SleepEntry{
		ID:       rec.ID,
		Type:     CodeToLabel(TableSleepType, rec.SleepType),
		Night:    night,
		Start:    util.ExtractTime(string(rec.StartDatetime), loc),
		End:      util.ExtractTime(string(rec.EndDatetime), loc),
		Duration: util.FormatDurationHours(float64(minutes) / 60),
		Quality:  optionalLabel(TableSleepQuality, rec.SleepQuality),
		Color:    color,
		Memo:     rec.MemoText(),
		Raw:      rec,
		minutes:  minutes,
	}
}

// Growth maps the latest growth record. previous is its chronological
// predecessor and may belong to another day; nil leaves every change unset.
func (t Transformer) Growth(latest, previous *GrowthRecord) *GrowthCard {
	if latest == nil {
		return nil
	}
	card := &GrowthCard{
		ID:         latest.ID,
		RecordDate: latest.RecordDate,
		LastRecord: util.RelativeTimeFrom(string(latest.CreatedAt), t.now(), t.loc()),
		Activities: CodesToLabels(TableGrowthActivity, latest.Activities),
		Memo:       latest.MemoText(),
		Raw:        latest,
	}
	var prevHeight, prevWeight, prevHead *Decimal
	if previous != nil {
		prevHeight, prevWeight, prevHead = previous.HeightCM, previous.WeightKG, previous.HeadCircumferenceCM
		card.PreviousID = previous.ID
	}
	card.Height = measure(latest.HeightCM, prevHeight, "cm")
	card.Weight = measure(latest.WeightKG, prevWeight, "kg")
	card.HeadCircumference = measure(latest.HeadCircumferenceCM, prevHead, "cm")
	return card
}

func measure(current, previous *Decimal, unit string) *Measure {
	if current == nil {
		return nil
	}
	return &Measure{Value: float64(*current), Unit: unit, Change: FormatDelta(current, previous)}
}

// FormatDelta renders current-previous with a sign and one decimal.
// It returns nil when either side is missing.
func FormatDelta(current, previous *Decimal) *string {
	if current == nil || previous == nil {
		return nil
	}
	delta := math.Round((float64(*current)-float64(*previous))*10) / 10
	if delta == 0 {
		delta = 0 // drop negative zero
	}
	var s string
	if delta >= 0 {
		s = fmt.Sprintf("+%.1f", delta)
	} else {
		s = fmt.Sprintf("%.1f", delta)
	}
	return &s
}

// Meal maps a day's feedings, keeping their order. Returns nil for no records.
func (t Transformer) Meal(records []*MealRecord) *MealCard {
	if len(records) == 0 {
		return nil
	}
	card := &MealCard{TotalCount: len(records), Entries: make([]MealEntry, 0, len(records))}
	card.Summary = fmt.Sprintf("오늘의 식사 : 총 %d회", card.TotalCount)
	for _, rec := range records {
		detail := ""
		if rec.MealDetail != nil {
			detail = *rec.MealDetail
		}
		card.Entries = append(card.Entries, MealEntry{
			ID:     rec.ID,
			Time:   t.clock(rec.MealDatetime, rec.UnknownTime),
			Type:   CodeToLabel(TableMealType, rec.MealType),
			Detail: detail,
			Amount: mealAmount(rec),
			Burp:   burpLabel(rec.Burp),
			Memo:   rec.MemoText(),
			Raw:    rec,
		})
	}
	return card
}

func mealAmount(rec *MealRecord) string {
	switch {
	case rec.AmountML != nil:
		return fmt.Sprintf("%dml", *rec.AmountML)
	case rec.AmountText != nil && strings.TrimSpace(*rec.AmountText) != "":
		return strings.TrimSpace(*rec.AmountText)
	case rec.DurationMinutes != nil:
		return fmt.Sprintf("%d분", *rec.DurationMinutes)
	default:
		return ""
	}
}

func burpLabel(burp bool) string {
	if burp {
		return "트림 O"
	}
	return "트림 X"
}

// Health maps a day's health notes. Tags list symptoms before medicines.
func (t Transformer) Health(records []*HealthRecord) *HealthCard {
	if len(records) == 0 {
		return nil
	}
	card := &HealthCard{Entries: make([]HealthEntry, 0, len(records))}
	for _, rec := range records {
		symptoms := CodesToLabels(TableHealthSymptom, rec.Symptoms)
		medicines := CodesToLabels(TableHealthMedicine, rec.Medicines)
		tags := make([]string, 0, len(symptoms)+len(medicines))
		tags = append(tags, symptoms...)
		tags = append(tags, medicines...)
		card.Entries = append(card.Entries, HealthEntry{
			ID:        rec.ID,
			Title:     rec.Title,
			Date:      util.ToDisplayDate(rec.RecordDate),
			Time:      t.clock(rec.HealthDatetime, rec.UnknownTime),
			Symptoms:  symptoms,
			Medicines: medicines,
			Tags:      tags,
			Memo:      rec.MemoText(),
			Raw:       rec,
		})
	}
	return card
}

// Diaper maps a day's diaper changes.
func (t Transformer) Diaper(records []*DiaperRecord) *DiaperCard {
	if len(records) == 0 {
		return nil
	}
	card := &DiaperCard{Entries: make([]DiaperEntry, 0, len(records))}
	for _, rec := range records {
		color := colorUnknown
		if rec.Color != nil {
			if hex, ok := diaperColors[*rec.Color]; ok {
				color = hex
			}
		}
		card.Entries = append(card.Entries, DiaperEntry{
			ID:        rec.ID,
			Time:      t.clock(rec.DiaperDatetime, rec.UnknownTime),
			Type:      CodeToLabel(TableDiaperType, rec.DiaperType),
			Amount:    optionalLabel(TableDiaperAmount, rec.Amount),
			Condition: optionalLabel(TableDiaperCondition, rec.Condition),
			ColorName: optionalLabel(TableDiaperColor, rec.Color),
			Color:     color,
			Memo:      rec.MemoText(),
			Raw:       rec,
		})
	}
	return card
}

// Etc maps a day's notes.
func (t Transformer) Etc(records []*EtcRecord) *EtcCard {
	if len(records) == 0 {
		return nil
	}
	card := &EtcCard{Entries: make([]EtcEntry, 0, len(records))}
	for _, rec := range records {
		card.Entries = append(card.Entries, EtcEntry{
			ID:   rec.ID,
			Date: util.ToMonthDay(rec.RecordDate),
			Text: rec.Title,
			Memo: rec.MemoText(),
			Raw:  rec,
		})
	}
	return card
}

func (t Transformer) clock(value DateTime, unknown bool) string {
	if unknown {
		return "시간 모름"
	}
	return util.ExtractTime(string(value), t.loc())
}
