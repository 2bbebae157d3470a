package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/todoc/pkg/util"
)

// RecordType discriminates the record variants.
type RecordType string

const (
	TypeSleep  RecordType = "sleep"
	TypeGrowth RecordType = "growth"
	TypeMeal   RecordType = "meal"
	TypeHealth RecordType = "health"
	TypeDiaper RecordType = "diaper"
	TypeEtc    RecordType = "etc"
)

// AllTypes lists the categories in card order.
var AllTypes = []RecordType{TypeSleep, TypeGrowth, TypeMeal, TypeHealth, TypeDiaper, TypeEtc}

// ErrUnknownType is returned when a payload carries an unsupported record_type.
var ErrUnknownType = errors.New("unknown record type")

// ParseType validates a record type string.
func ParseType(value string) (RecordType, error) {
	t := RecordType(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range AllTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, value)
}

// Label returns the Korean category name.
func (t RecordType) Label() string {
	return CodeToLabel(TableRecordType, string(t))
}

// DateTime keeps the API's datetime string verbatim so edits submit exactly what was read.
type DateTime string

// Time parses the value; offset-less values are read in loc.
func (d DateTime) Time(loc *time.Location) (time.Time, bool) {
	return util.ParseDateTime(string(d), loc)
}

// Decimal accepts JSON numbers and numeric strings.
type Decimal float64

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decode decimal: %w", err)
	}
	*d = Decimal(v)
	return nil
}

// DecimalPtr is a helper for optional measurements.
func DecimalPtr(v float64) *Decimal {
	d := Decimal(v)
	return &d
}

// Common carries the fields shared by every record.
type Common struct {
	ID         int64      `json:"id,omitempty"`
	KidID      int64      `json:"kid_id,omitempty"`
	RecordType RecordType `json:"record_type"`
	RecordDate string     `json:"record_date"`
	CreatedAt  DateTime   `json:"created_at,omitempty"`
	UpdatedAt  DateTime   `json:"updated_at,omitempty"`
	Memo       *string    `json:"memo,omitempty"`
	ImageURL   *string    `json:"image_url,omitempty"`
}

// Base exposes the shared fields of any variant.
func (c *Common) Base() *Common { return c }

// MemoText returns the memo or "".
func (c *Common) MemoText() string {
	if c.Memo == nil {
		return ""
	}
	return *c.Memo
}

// Visitor receives the concrete variant of a Record. Adding a category adds a
// method here, which breaks every implementation until it handles the new case.
type Visitor interface {
	Sleep(*SleepRecord)
	Growth(*GrowthRecord)
	Meal(*MealRecord)
	Health(*HealthRecord)
	Diaper(*DiaperRecord)
	Etc(*EtcRecord)
}

// Record is the sum of the six record variants.
type Record interface {
	Base() *Common
	Type() RecordType
	// EventTime is the category's own datetime, or created_at when it has none.
	EventTime() DateTime
	Accept(v Visitor)
}

// SleepRecord is a nap or night sleep.
type SleepRecord struct {
	Common
	SleepType     string   `json:"sleep_type"`
	StartDatetime DateTime `json:"start_datetime"`
	EndDatetime   DateTime `json:"end_datetime"`
	DurationHours *float64 `json:"duration_hours,omitempty"`
	SleepQuality  *string  `json:"sleep_quality,omitempty"`
}

// GrowthRecord is a measurement snapshot with the day's activities.
type GrowthRecord struct {
	Common
	HeightCM            *Decimal `json:"height_cm"`
	WeightKG            *Decimal `json:"weight_kg"`
	HeadCircumferenceCM *Decimal `json:"head_circumference_cm"`
	Activities          []string `json:"activities,omitempty"`
}

// MealRecord is one feeding.
type MealRecord struct {
	Common
	MealDatetime    DateTime `json:"meal_datetime"`
	UnknownTime     bool     `json:"unknown_time"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	MealType        string   `json:"meal_type"`
	MealDetail      *string  `json:"meal_detail,omitempty"`
	AmountML        *int     `json:"amount_ml,omitempty"`
	AmountText      *string  `json:"amount_text,omitempty"`
	Burp            bool     `json:"burp"`
}

// HealthRecord captures symptoms and medication.
type HealthRecord struct {
	Common
	HealthDatetime DateTime `json:"health_datetime"`
	UnknownTime    bool     `json:"unknown_time"`
	Title          string   `json:"title"`
	Symptoms       []string `json:"symptoms,omitempty"`
	Medicines      []string `json:"medicines,omitempty"`
}

// DiaperRecord is one diaper change.
type DiaperRecord struct {
	Common
	DiaperDatetime DateTime `json:"diaper_datetime"`
	UnknownTime    bool     `json:"unknown_time"`
	DiaperType     string   `json:"diaper_type"`
	Amount         *string  `json:"amount,omitempty"`
	Condition      *string  `json:"condition,omitempty"`
	Color          *string  `json:"color,omitempty"`
}

// EtcRecord is a free-form note.
type EtcRecord struct {
	Common
	Title string `json:"title"`
}

func (r *SleepRecord) Type() RecordType  { return TypeSleep }
func (r *GrowthRecord) Type() RecordType { return TypeGrowth }
func (r *MealRecord) Type() RecordType   { return TypeMeal }
func (r *HealthRecord) Type() RecordType { return TypeHealth }
func (r *DiaperRecord) Type() RecordType { return TypeDiaper }
func (r *EtcRecord) Type() RecordType    { return TypeEtc }

func (r *SleepRecord) EventTime() DateTime  { return orCreated(r.StartDatetime, r.CreatedAt) }
func (r *GrowthRecord) EventTime() DateTime { return r.CreatedAt }
func (r *MealRecord) EventTime() DateTime   { return orCreated(r.MealDatetime, r.CreatedAt) }
func (r *HealthRecord) EventTime() DateTime { return orCreated(r.HealthDatetime, r.CreatedAt) }
func (r *DiaperRecord) EventTime() DateTime { return orCreated(r.DiaperDatetime, r.CreatedAt) }
func (r *EtcRecord) EventTime() DateTime    { return r.CreatedAt }

func (r *SleepRecord) Accept(v Visitor)  { v.Sleep(r) }
func (r *GrowthRecord) Accept(v Visitor) { v.Growth(r) }
func (r *MealRecord) Accept(v Visitor)   { v.Meal(r) }
func (r *HealthRecord) Accept(v Visitor) { v.Health(r) }
func (r *DiaperRecord) Accept(v Visitor) { v.Diaper(r) }
func (r *EtcRecord) Accept(v Visitor)    { v.Etc(r) }

func orCreated(v, created DateTime) DateTime {
	if strings.TrimSpace(string(v)) == "" {
		return created
	}
	return v
}

// New returns an empty variant for t.
func New(t RecordType) (Record, error) {
	var rec Record
	switch t {
	case TypeSleep:
		rec = &SleepRecord{}
	case TypeGrowth:
		rec = &GrowthRecord{}
	case TypeMeal:
		rec = &MealRecord{}
	case TypeHealth:
		rec = &HealthRecord{}
	case TypeDiaper:
		rec = &DiaperRecord{}
	case TypeEtc:
		rec = &EtcRecord{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	rec.Base().RecordType = t
	return rec, nil
}

// Decode reads one record, dispatching on its record_type.
func Decode(data []byte) (Record, error) {
	var probe struct {
		RecordType string `json:"record_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	t, err := ParseType(probe.RecordType)
	if err != nil {
		return nil, err
	}
	rec, _ := New(t)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", t, err)
	}
	rec.Base().RecordType = t
	return rec, nil
}

// Normalize makes the discriminant agree with the concrete variant.
func Normalize(rec Record) Record {
	if rec != nil {
		rec.Base().RecordType = rec.Type()
	}
	return rec
}

// CreatedTime parses created_at in loc.
func CreatedTime(rec Record, loc *time.Location) time.Time {
	t, _ := rec.Base().CreatedAt.Time(loc)
	return t
}

// EventTimeOf parses the record's event time in loc.
func EventTimeOf(rec Record, loc *time.Location) time.Time {
	t, _ := rec.EventTime().Time(loc)
	return t
}
