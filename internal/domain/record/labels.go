package record

// Table names one code/label mapping. Tables never share entries.
type Table string

const (
	TableRecordType      Table = "record_type"
	TableSleepType       Table = "sleep_type"
	TableSleepQuality    Table = "sleep_quality"
	TableMealType        Table = "meal_type"
	TableDiaperType      Table = "diaper_type"
	TableDiaperAmount    Table = "diaper_amount"
	TableDiaperCondition Table = "diaper_condition"
	TableDiaperColor     Table = "diaper_color"
	TableGrowthActivity  Table = "growth_activity"
	TableHealthSymptom   Table = "health_symptom"
	TableHealthMedicine  Table = "health_medicine"
)

// Option is one selectable entry of a table, in display order.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type labelTable struct {
	options []Option
	toLabel map[string]string
	toCode  map[string]string
}

func newTable(options ...Option) *labelTable {
	t := &labelTable{
		options: options,
		toLabel: make(map[string]string, len(options)),
		toCode:  make(map[string]string, len(options)),
	}
	for _, opt := range options {
		t.toLabel[opt.Code] = opt.Label
		t.toCode[opt.Label] = opt.Code
	}
	return t
}

var tables = map[Table]*labelTable{
	TableRecordType: newTable(
		Option{"sleep", "수면"},
		Option{"growth", "성장"},
		Option{"meal", "식사"},
		Option{"health", "건강"},
		Option{"diaper", "배변"},
		Option{"etc", "기타"},
	),
	TableSleepType: newTable(
		Option{"night", "밤잠"},
		Option{"nap", "낮잠"},
	),
	TableSleepQuality: newTable(
		Option{"good", "좋음"},
		Option{"normal", "보통"},
		Option{"bad", "나쁨"},
	),
	TableMealType: newTable(
		Option{"breast_milk", "모유"},
		Option{"formula", "분유"},
		Option{"bottle", "젖병"},
		Option{"baby_food", "이유식"},
		Option{"snack", "간식"},
		Option{"other", "기타"},
	),
	TableDiaperType: newTable(
		Option{"urine", "소변"},
		Option{"stool", "대변"},
		Option{"both", "둘다"},
	),
	TableDiaperAmount: newTable(
		Option{"much", "많음"},
		Option{"normal", "보통"},
		Option{"little", "적음"},
	),
	TableDiaperCondition: newTable(
		Option{"normal", "정상"},
		Option{"diarrhea", "설사"},
		Option{"constipation", "변비"},
	),
	TableDiaperColor: newTable(
		Option{"yellow", "노랑"},
		Option{"brown", "갈색"},
		Option{"green", "초록"},
		Option{"other", "이외"},
	),
	TableGrowthActivity: newTable(
		Option{"reading", "독서"},
		Option{"walking", "산책"},
		Option{"bathing", "목욕"},
		Option{"playing", "놀이"},
		Option{"music", "음악"},
		Option{"exercise", "체조"},
		Option{"swimming", "수영"},
	),
	TableHealthSymptom: newTable(
		Option{"fever", "열"},
		Option{"runny_nose", "콧물"},
		Option{"cough", "기침"},
		Option{"vomit", "구토"},
		Option{"diarrhea", "설사"},
		Option{"rash", "발진"},
		Option{"headache", "두통"},
	),
	TableHealthMedicine: newTable(
		Option{"antipyretic", "해열제"},
		Option{"painkiller", "진통제"},
		Option{"cold_medicine", "감기약"},
		Option{"antibiotic", "항생제"},
		Option{"ointment", "연고"},
		Option{"eye_drops", "안약"},
	),
}

// CodeToLabel maps an API code to its label. Unknown codes pass through.
func CodeToLabel(table Table, code string) string {
	if t, ok := tables[table]; ok {
		if label, ok := t.toLabel[code]; ok {
			return label
		}
	}
	return code
}

// LabelToCode maps a label back to its API code. Unknown labels pass through.
func LabelToCode(table Table, label string) string {
	if t, ok := tables[table]; ok {
		if code, ok := t.toCode[label]; ok {
			return code
		}
	}
	return label
}

// CodesToLabels maps every code of a set.
func CodesToLabels(table Table, codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		out = append(out, CodeToLabel(table, code))
	}
	return out
}

// LabelsToCodes maps every label of a set.
func LabelsToCodes(table Table, labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		out = append(out, LabelToCode(table, label))
	}
	return out
}

// Options returns the table entries in display order.
func Options(table Table) []Option {
	t, ok := tables[table]
	if !ok {
		return nil
	}
	return append([]Option(nil), t.options...)
}

func optionalLabel(table Table, code *string) string {
	if code == nil {
		return ""
	}
	return CodeToLabel(table, *code)
}
