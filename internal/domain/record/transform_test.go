package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatDelta(t *testing.T) {
	cases := []struct {
		name     string
		current  *Decimal
		previous *Decimal
		want     *string
	}{
		{name: "increase", current: DecimalPtr(65.2), previous: DecimalPtr(64.4), want: strPtr("+0.8")},
		{name: "decrease", current: DecimalPtr(7.4), previous: DecimalPtr(7.7), want: strPtr("-0.3")},
		{name: "unchanged", current: DecimalPtr(42.5), previous: DecimalPtr(42.5), want: strPtr("+0.0")},
		{name: "tiny negative rounds to zero", current: DecimalPtr(7.40), previous: DecimalPtr(7.44), want: strPtr("+0.0")},
		{name: "missing previous", current: DecimalPtr(65.2), previous: nil, want: nil},
		{name: "missing current", current: nil, previous: DecimalPtr(64.4), want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, FormatDelta(tc.current, tc.previous))
		})
	}
}

func TestTransformGrowth(t *testing.T) {
	tr := Transformer{Location: kst, Now: func() time.Time { return fixedNow }}
	latest := growth(2, "2026-01-26", "2026-01-26T09:00:00+09:00", DecimalPtr(65.2), DecimalPtr(7.4))
	latest.Activities = []string{"reading", "walking", "kite"}
	previous := growth(1, "2026-01-24", "2026-01-24T09:00:00+09:00", DecimalPtr(64.4), DecimalPtr(7.7))

	card := tr.Growth(latest, previous)
	require.NotNil(t, card)
	require.Equal(t, 65.2, card.Height.Value)
	require.Equal(t, "+0.8", *card.Height.Change)
	require.True(t, card.Height.Positive())
	require.Equal(t, "-0.3", *card.Weight.Change)
	require.False(t, card.Weight.Positive())
	require.Nil(t, card.HeadCircumference)
	require.Equal(t, []string{"독서", "산책", "kite"}, card.Activities)
	require.Equal(t, "11시간 전", card.LastRecord)
	require.Equal(t, int64(1), card.PreviousID)
	require.Same(t, latest, card.Raw)
}

func TestTransformGrowthWithoutPreviousOmitsChange(t *testing.T) {
	tr := Transformer{Location: kst, Now: func() time.Time { return fixedNow }}
	latest := growth(2, "2026-01-26", "2026-01-26T09:00:00+09:00", DecimalPtr(65.2), nil)

	card := tr.Growth(latest, nil)
	require.NotNil(t, card)
	require.Nil(t, card.Height.Change)
	require.Nil(t, card.Weight)
}

func TestTransformGrowthWithOnlyActivitiesStillRenders(t *testing.T) {
	tr := Transformer{Location: kst, Now: func() time.Time { return fixedNow }}
	latest := growth(3, "2026-01-26", "2026-01-26T09:00:00+09:00", nil, nil)
	latest.Activities = []string{"bathing"}
	latest.Memo = strPtr("첫 목욕")

	card := tr.Growth(latest, growth(1, "2026-01-24", "2026-01-24T09:00:00+09:00", DecimalPtr(64.4), nil))
	require.NotNil(t, card)
	require.Nil(t, card.Height)
	require.Equal(t, []string{"목욕"}, card.Activities)
	require.Equal(t, "첫 목욕", card.Memo)
	require.Nil(t, tr.Growth(nil, nil))
}

func TestTransformSleep(t *testing.T) {
	tr := Transformer{Location: kst}
	night := &SleepRecord{
		Common:        common(1, "2026-01-26", "2026-01-26T06:00:00+09:00"),
		SleepType:     "night",
		StartDatetime: "2026-01-25T22:00:00+09:00",
		EndDatetime:   "2026-01-26T05:00:00+09:00",
		SleepQuality:  strPtr("good"),
	}
	nap := &SleepRecord{
		Common:        common(2, "2026-01-26", "2026-01-26T16:00:00+09:00"),
		SleepType:     "nap",
		StartDatetime: "2026-01-26T12:00:00",
		EndDatetime:   "2026-01-26T16:30:00",
		DurationHours: func() *float64 { v := 4.5; return &v }(),
	}

	card := tr.Sleep([]*SleepRecord{nap, night})
	require.NotNil(t, card)
	require.Equal(t, 12, card.TotalHours)
	require.Equal(t, "오늘의 수면 : 12시간", card.Summary)
	require.Len(t, card.Entries, 2)

	require.Equal(t, "낮잠", card.Entries[0].Type)
	require.Equal(t, "12:00", card.Entries[0].Start)
	require.Equal(t, "16:30", card.Entries[0].End)
	require.Equal(t, "4h 30m", card.Entries[0].Duration)
	require.Equal(t, colorNap, card.Entries[0].Color)

	require.Equal(t, "밤잠", card.Entries[1].Type)
	require.True(t, card.Entries[1].Night)
	require.Equal(t, "7h", card.Entries[1].Duration)
	require.Equal(t, "좋음", card.Entries[1].Quality)
	require.Equal(t, colorNightSleep, card.Entries[1].Color)

	require.Nil(t, tr.Sleep(nil))
}

func TestTransformMeal(t *testing.T) {
	tr := Transformer{Location: kst}
	formula := meal(1, "2026-01-26", "2026-01-26T10:00:00+09:00", "formula")
	formula.AmountML = intPtr(120)
	formula.Burp = true
	breast := meal(2, "2026-01-26", "2026-01-26T06:30:00+09:00", "breast_milk")
	breast.DurationMinutes = intPtr(15)
	snack := meal(3, "2026-01-26", "2026-01-26T00:00:00+09:00", "snack")
	snack.AmountText = strPtr("반 개")
	snack.UnknownTime = true

	card := tr.Meal([]*MealRecord{formula, breast, snack})
	require.Equal(t, 3, card.TotalCount)
	require.Equal(t, "오늘의 식사 : 총 3회", card.Summary)
	require.Equal(t, MealEntry{ID: 1, Time: "10:00", Type: "분유", Amount: "120ml", Burp: "트림 O", Raw: formula}, card.Entries[0])
	require.Equal(t, "15분", card.Entries[1].Amount)
	require.Equal(t, "트림 X", card.Entries[1].Burp)
	require.Equal(t, "반 개", card.Entries[2].Amount)
	require.Equal(t, "시간 모름", card.Entries[2].Time)
}

func TestTransformHealthAndDiaperAndEtc(t *testing.T) {
	tr := Transformer{Location: kst}
	health := &HealthRecord{
		Common:         common(1, "2026-01-24", "2026-01-24T09:00:00+09:00"),
		HealthDatetime: "2026-01-24T08:30:00+09:00",
		Title:          "감기 걸려서 병원 갔다옴",
		Symptoms:       []string{"fever", "cough"},
		Medicines:      []string{"antipyretic"},
	}
	hc := tr.Health([]*HealthRecord{health})
	require.Equal(t, "26.01.24", hc.Entries[0].Date)
	require.Equal(t, "08:30", hc.Entries[0].Time)
	require.Equal(t, []string{"열", "기침", "해열제"}, hc.Entries[0].Tags)

	d := diaper(2, "2026-01-26", "2026-01-26T18:00:00+09:00", "stool")
	d.Condition = strPtr("diarrhea")
	d.Color = strPtr("green")
	unknownColor := diaper(3, "2026-01-26", "2026-01-26T14:00:00+09:00", "both")
	unknownColor.Color = strPtr("other")
	dc := tr.Diaper([]*DiaperRecord{d, unknownColor})
	require.Equal(t, "대변", dc.Entries[0].Type)
	require.Equal(t, "설사", dc.Entries[0].Condition)
	require.Equal(t, "초록", dc.Entries[0].ColorName)
	require.Equal(t, "#328B6D", dc.Entries[0].Color)
	require.Equal(t, "둘다", dc.Entries[1].Type)
	require.Equal(t, colorUnknown, dc.Entries[1].Color)

	etc := &EtcRecord{Common: common(4, "2026-01-23", "2026-01-23T09:00:00+09:00"), Title: "처음으로 걸은 날!"}
	ec := tr.Etc([]*EtcRecord{etc})
	require.Equal(t, "01.23", ec.Entries[0].Date)
	require.Equal(t, "처음으로 걸은 날!", ec.Entries[0].Text)

	require.Nil(t, tr.Health(nil))
	require.Nil(t, tr.Diaper(nil))
	require.Nil(t, tr.Etc(nil))
}
