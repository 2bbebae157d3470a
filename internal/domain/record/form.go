package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yanqian/todoc/pkg/util"
)

// ErrInvalidForm marks a form the records API would reject.
var ErrInvalidForm = errors.New("invalid record form")

// Form is the editable, display-valued shape of a record. Record converts it
// back into the API shape: labels become codes and YY.MM.DD becomes ISO.
type Form interface {
	Category() RecordType
	Validate() error
	Record(kidID int64, loc *time.Location) (Record, error)
}

// FormCommon holds the fields every form carries.
type FormCommon struct {
	ID       int64  `json:"id,omitempty"`
	Date     string `json:"date"`
	Memo     string `json:"memo,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

func (f FormCommon) common(kidID int64, t RecordType) (Common, error) {
	date := util.ToISODate(f.Date)
	if date == "" {
		return Common{}, fmt.Errorf("%w: date %q", ErrInvalidForm, f.Date)
	}
	c := Common{ID: f.ID, KidID: kidID, RecordType: t, RecordDate: date}
	if memo := strings.TrimSpace(f.Memo); memo != "" {
		c.Memo = &memo
	}
	if f.ImageURL != "" {
		url := f.ImageURL
		c.ImageURL = &url
	}
	return c, nil
}

func (f *FormCommon) setID(id int64) { f.ID = id }

// SetFormID points form at the existing record id, turning a submit into an update.
func SetFormID(form Form, id int64) {
	if s, ok := form.(interface{ setID(int64) }); ok {
		s.setID(id)
	}
}

func formCommonOf(c *Common) FormCommon {
	f := FormCommon{ID: c.ID, Date: util.ToDisplayDate(c.RecordDate), Memo: c.MemoText()}
	if c.ImageURL != nil {
		f.ImageURL = *c.ImageURL
	}
	return f
}

// SleepForm edits a sleep. An end clock at or before the start clock ends on
// the following day.
type SleepForm struct {
	FormCommon
	SleepType string `json:"sleep_type"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Quality   string `json:"quality,omitempty"`
}

func (f *SleepForm) Category() RecordType { return TypeSleep }

func (f *SleepForm) Validate() error {
	if LabelToCode(TableSleepType, f.SleepType) == "" {
		return fmt.Errorf("%w: sleep type is required", ErrInvalidForm)
	}
	if f.Start == "" || f.End == "" {
		return fmt.Errorf("%w: start and end are required", ErrInvalidForm)
	}
	return nil
}

func (f *SleepForm) Record(kidID int64, loc *time.Location) (Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c, err := f.common(kidID, TypeSleep)
	if err != nil {
		return nil, err
	}
	start, ok := util.CombineDateTime(c.RecordDate, f.Start, loc)
	if !ok {
		return nil, fmt.Errorf("%w: start %q", ErrInvalidForm, f.Start)
	}
	end, ok := util.CombineDateTime(c.RecordDate, f.End, loc)
	if !ok {
		return nil, fmt.Errorf("%w: end %q", ErrInvalidForm, f.End)
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	rec := &SleepRecord{
		Common:        c,
		SleepType:     LabelToCode(TableSleepType, f.SleepType),
		StartDatetime: formatDateTime(start),
		EndDatetime:   formatDateTime(end),
	}
	if f.Quality != "" {
		q := LabelToCode(TableSleepQuality, f.Quality)
		rec.SleepQuality = &q
	}
	return rec, nil
}

// GrowthForm edits a growth snapshot.
type GrowthForm struct {
	FormCommon
	HeightCM            *float64 `json:"height_cm,omitempty"`
	WeightKG            *float64 `json:"weight_kg,omitempty"`
	HeadCircumferenceCM *float64 `json:"head_circumference_cm,omitempty"`
	Activities          []string `json:"activities,omitempty"`
}

func (f *GrowthForm) Category() RecordType { return TypeGrowth }

func (f *GrowthForm) Validate() error {
	if err := checkRange("height_cm", f.HeightCM, 30, 140); err != nil {
		return err
	}
	if err := checkRange("weight_kg", f.WeightKG, 1, 45); err != nil {
		return err
	}
	return checkRange("head_circumference_cm", f.HeadCircumferenceCM, 20, 62)
}

func (f *GrowthForm) Record(kidID int64, _ *time.Location) (Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c, err := f.common(kidID, TypeGrowth)
	if err != nil {
		return nil, err
	}
	return &GrowthRecord{
		Common:              c,
		HeightCM:            decimalOf(f.HeightCM),
		WeightKG:            decimalOf(f.WeightKG),
		HeadCircumferenceCM: decimalOf(f.HeadCircumferenceCM),
		Activities:          LabelsToCodes(TableGrowthActivity, f.Activities),
	}, nil
}

// MealForm edits a feeding.
type MealForm struct {
	FormCommon
	Time            string `json:"time"`
	UnknownTime     bool   `json:"unknown_time"`
	MealType        string `json:"meal_type"`
	Detail          string `json:"detail,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
	AmountML        *int   `json:"amount_ml,omitempty"`
	AmountText      string `json:"amount_text,omitempty"`
	Burp            bool   `json:"burp"`
}

func (f *MealForm) Category() RecordType { return TypeMeal }

func (f *MealForm) Validate() error {
	if strings.TrimSpace(f.MealType) == "" {
		return fmt.Errorf("%w: meal type is required", ErrInvalidForm)
	}
	if err := checkIntRange("duration_minutes", f.DurationMinutes, 0, 60); err != nil {
		return err
	}
	return checkIntRange("amount_ml", f.AmountML, 0, 500)
}

func (f *MealForm) Record(kidID int64, loc *time.Location) (Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c, err := f.common(kidID, TypeMeal)
	if err != nil {
		return nil, err
	}
	at, err := eventDateTime(c.RecordDate, f.Time, f.UnknownTime, loc)
	if err != nil {
		return nil, err
	}
	rec := &MealRecord{
		Common:          c,
		MealDatetime:    at,
		UnknownTime:     f.UnknownTime,
		DurationMinutes: f.DurationMinutes,
		MealType:        LabelToCode(TableMealType, f.MealType),
		AmountML:        f.AmountML,
		Burp:            f.Burp,
	}
	if detail := strings.TrimSpace(f.Detail); detail != "" {
		rec.MealDetail = &detail
	}
	if text := strings.TrimSpace(f.AmountText); text != "" {
		rec.AmountText = &text
	}
	return rec, nil
}

// HealthForm edits a health note.
type HealthForm struct {
	FormCommon
	Time        string   `json:"time"`
	UnknownTime bool     `json:"unknown_time"`
	Title       string   `json:"title"`
	Symptoms    []string `json:"symptoms,omitempty"`
	Medicines   []string `json:"medicines,omitempty"`
}

func (f *HealthForm) Category() RecordType { return TypeHealth }

func (f *HealthForm) Validate() error {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidForm)
	}
	if len([]rune(title)) > 200 {
		return fmt.Errorf("%w: title is too long", ErrInvalidForm)
	}
	return nil
}

func (f *HealthForm) Record(kidID int64, loc *time.Location) (Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c, err := f.common(kidID, TypeHealth)
	if err != nil {
		return nil, err
	}
	at, err := eventDateTime(c.RecordDate, f.Time, f.UnknownTime, loc)
	if err != nil {
		return nil, err
	}
	return &HealthRecord{
		Common:         c,
		HealthDatetime: at,
		UnknownTime:    f.UnknownTime,
		Title:          strings.TrimSpace(f.Title),
		Symptoms:       LabelsToCodes(TableHealthSymptom, f.Symptoms),
		Medicines:      LabelsToCodes(TableHealthMedicine, f.Medicines),
	}, nil
}

// DiaperForm edits a diaper change.
type DiaperForm struct {
	FormCommon
	Time        string `json:"time"`
	UnknownTime bool   `json:"unknown_time"`
	DiaperType  string `json:"diaper_type"`
	Amount      string `json:"amount,omitempty"`
	Condition   string `json:"condition,omitempty"`
	Color       string `json:"color,omitempty"`
}

func (f *DiaperForm) Category() RecordType { return TypeDiaper }

func (f *DiaperForm) Validate() error {
	if strings.TrimSpace(f.DiaperType) == "" {
		return fmt.Errorf("%w: diaper type is required", ErrInvalidForm)
	}
	return nil
}

func (f *DiaperForm) Record(kidID int64, loc *time.Location) (Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c, err := f.common(kidID, TypeDiaper)
	if err != nil {
		return nil, err
	}
	at, err := eventDateTime(c.RecordDate, f.Time, f.UnknownTime, loc)
	if err != nil {
		return nil, err
	}
	return &DiaperRecord{
		Common:         c,
		DiaperDatetime: at,
		UnknownTime:    f.UnknownTime,
		DiaperType:     LabelToCode(TableDiaperType, f.DiaperType),
		Amount:         optionalCode(TableDiaperAmount, f.Amount),
		Condition:      optionalCode(TableDiaperCondition, f.Condition),
		Color:          optionalCode(TableDiaperColor, f.Color),
	}, nil
}

// EtcForm edits a free-form note.
type EtcForm struct {
	FormCommon
	Title string `json:"title"`
}

func (f *EtcForm) Category() RecordType { return TypeEtc }

func (f *EtcForm) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidForm)
	}
	return nil
}

func (f *EtcForm) Record(kidID int64, _ *time.Location) (Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c, err := f.common(kidID, TypeEtc)
	if err != nil {
		return nil, err
	}
	return &EtcRecord{Common: c, Title: strings.TrimSpace(f.Title)}, nil
}

// NewForm returns an empty form for category dated isoDate.
func NewForm(category RecordType, isoDate string) (Form, error) {
	common := FormCommon{Date: util.ToDisplayDate(isoDate)}
	switch category {
	case TypeSleep:
		return &SleepForm{FormCommon: common}, nil
	case TypeGrowth:
		return &GrowthForm{FormCommon: common}, nil
	case TypeMeal:
		return &MealForm{FormCommon: common}, nil
	case TypeHealth:
		return &HealthForm{FormCommon: common}, nil
	case TypeDiaper:
		return &DiaperForm{FormCommon: common}, nil
	case TypeEtc:
		return &EtcForm{FormCommon: common}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, category)
	}
}

// DecodeForm reads a category form from JSON.
func DecodeForm(category RecordType, data []byte) (Form, error) {
	form, err := NewForm(category, "")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, form); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	return form, nil
}

// FormFromRecord pre-populates a form from an edit seed.
func FormFromRecord(rec Record, loc *time.Location) Form {
	if rec == nil {
		return nil
	}
	b := &formBuilder{loc: loc}
	rec.Accept(b)
	return b.form
}

type formBuilder struct {
	loc  *time.Location
	form Form
}

func (b *formBuilder) Sleep(r *SleepRecord) {
	b.form = &SleepForm{
		FormCommon: formCommonOf(&r.Common),
		SleepType:  CodeToLabel(TableSleepType, r.SleepType),
		Start:      util.ExtractTime(string(r.StartDatetime), b.loc),
		End:        util.ExtractTime(string(r.EndDatetime), b.loc),
		Quality:    optionalLabel(TableSleepQuality, r.SleepQuality),
	}
}

func (b *formBuilder) Growth(r *GrowthRecord) {
	b.form = &GrowthForm{
		FormCommon:          formCommonOf(&r.Common),
		HeightCM:            floatOf(r.HeightCM),
		WeightKG:            floatOf(r.WeightKG),
		HeadCircumferenceCM: floatOf(r.HeadCircumferenceCM),
		Activities:          CodesToLabels(TableGrowthActivity, r.Activities),
	}
}

func (b *formBuilder) Meal(r *MealRecord) {
	f := &MealForm{
		FormCommon:      formCommonOf(&r.Common),
		Time:            b.clock(r.MealDatetime, r.UnknownTime),
		UnknownTime:     r.UnknownTime,
		MealType:        CodeToLabel(TableMealType, r.MealType),
		DurationMinutes: r.DurationMinutes,
		AmountML:        r.AmountML,
		Burp:            r.Burp,
	}
	if r.MealDetail != nil {
		f.Detail = *r.MealDetail
	}
	if r.AmountText != nil {
		f.AmountText = *r.AmountText
	}
	b.form = f
}

func (b *formBuilder) Health(r *HealthRecord) {
	b.form = &HealthForm{
		FormCommon:  formCommonOf(&r.Common),
		Time:        b.clock(r.HealthDatetime, r.UnknownTime),
		UnknownTime: r.UnknownTime,
		Title:       r.Title,
		Symptoms:    CodesToLabels(TableHealthSymptom, r.Symptoms),
		Medicines:   CodesToLabels(TableHealthMedicine, r.Medicines),
	}
}

func (b *formBuilder) Diaper(r *DiaperRecord) {
	b.form = &DiaperForm{
		FormCommon:  formCommonOf(&r.Common),
		Time:        b.clock(r.DiaperDatetime, r.UnknownTime),
		UnknownTime: r.UnknownTime,
		DiaperType:  CodeToLabel(TableDiaperType, r.DiaperType),
		Amount:      optionalLabel(TableDiaperAmount, r.Amount),
		Condition:   optionalLabel(TableDiaperCondition, r.Condition),
		Color:       optionalLabel(TableDiaperColor, r.Color),
	}
}

func (b *formBuilder) Etc(r *EtcRecord) {
	b.form = &EtcForm{FormCommon: formCommonOf(&r.Common), Title: r.Title}
}

func (b *formBuilder) clock(value DateTime, unknown bool) string {
	if unknown {
		return ""
	}
	return util.ExtractTime(string(value), b.loc)
}

func eventDateTime(isoDate, clock string, unknown bool, loc *time.Location) (DateTime, error) {
	if unknown {
		clock = ""
	}
	at, ok := util.CombineDateTime(isoDate, clock, loc)
	if !ok {
		return "", fmt.Errorf("%w: time %q", ErrInvalidForm, clock)
	}
	return formatDateTime(at), nil
}

func formatDateTime(t time.Time) DateTime {
	return DateTime(t.Format(time.RFC3339))
}

func checkRange(field string, v *float64, lo, hi float64) error {
	if v != nil && (*v < lo || *v > hi) {
		return fmt.Errorf("%w: %s must be between %g and %g", ErrInvalidForm, field, lo, hi)
	}
	return nil
}

func checkIntRange(field string, v *int, lo, hi int) error {
	if v != nil && (*v < lo || *v > hi) {
		return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidForm, field, lo, hi)
	}
	return nil
}

func decimalOf(v *float64) *Decimal {
	if v == nil {
		return nil
	}
	return DecimalPtr(*v)
}

func floatOf(d *Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := float64(*d)
	return &v
}

func optionalCode(table Table, label string) *string {
	if strings.TrimSpace(label) == "" {
		return nil
	}
	code := LabelToCode(table, label)
	return &code
}
