package record

import (
	"fmt"
	"net/url"
	"strconv"
)

// Intent tells the UI where to navigate. Seed carries the raw record an edit
// form pre-populates from.
type Intent struct {
	Category RecordType `json:"category"`
	Route    string     `json:"route"`
	Date     string     `json:"date"`
	Edit     bool       `json:"edit"`
	Seed     Record     `json:"seed,omitempty"`
}

// EditIntent routes to the category form seeded with rec.
func EditIntent(rec Record) (Intent, error) {
	if rec == nil {
		return Intent{}, fmt.Errorf("edit intent: %w", ErrUnknownType)
	}
	rec = Normalize(rec)
	base := rec.Base()
	q := url.Values{}
	q.Set("date", base.RecordDate)
	q.Set("edit", strconv.FormatInt(base.ID, 10))
	return Intent{
		Category: rec.Type(),
		Route:    fmt.Sprintf("/record/%s/add?%s", rec.Type(), q.Encode()),
		Date:     base.RecordDate,
		Edit:     true,
		Seed:     rec,
	}, nil
}

// NewRecordIntent routes to an empty form for category on date.
func NewRecordIntent(category RecordType, date string) (Intent, error) {
	t, err := ParseType(string(category))
	if err != nil {
		return Intent{}, err
	}
	q := url.Values{}
	q.Set("date", date)
	return Intent{
		Category: t,
		Route:    fmt.Sprintf("/record/%s/add?%s", t, q.Encode()),
		Date:     date,
	}, nil
}
