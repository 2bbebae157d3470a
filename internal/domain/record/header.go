package record

import (
	"fmt"
	"time"

	"github.com/yanqian/todoc/pkg/util"
)

// Header is the two-line caption above a category card.
type Header struct {
	Title string `json:"title"`
	Sub   string `json:"sub"`
}

// HeaderInput is everything BuildHeader decides on.
type HeaderInput struct {
	Category     RecordType
	SelectedDate string
	Today        string
	// Latest is the category's newest record on the selected day.
	Latest Record
	// Prior is the newest record of the category on or before the selected day.
	Prior Record
	Now   time.Time
	Loc   *time.Location
}

// BuildHeader applies the today/past by has-record/no-record table.
func BuildHeader(in HeaderInput) Header {
	label := in.Category.Label()
	isToday := in.SelectedDate == in.Today
	switch {
	case isToday && in.Latest != nil:
		return Header{
			Title: fmt.Sprintf("최근 %s 기록", label),
			Sub:   "마지막 기록 : " + util.RelativeTime(EventTimeOf(in.Latest, in.Loc), in.Now),
		}
	case isToday:
		return Header{
			Title: fmt.Sprintf("최근 %s 기록", label),
			Sub:   priorSub(in.Prior),
		}
	case in.Latest != nil:
		return Header{
			Title: fmt.Sprintf("%s 기록", label),
			Sub:   fmt.Sprintf("%s 기록", util.ToMonthDay(in.SelectedDate)),
		}
	default:
		return Header{
			Title: fmt.Sprintf("%s 기록", label),
			Sub:   priorSub(in.Prior),
		}
	}
}

func priorSub(prior Record) string {
	if prior == nil {
		return "이전 마지막 기록 : 없음"
	}
	date := util.ToMonthDay(prior.Base().RecordDate)
	if date == "" {
		return "이전 마지막 기록 : 없음"
	}
	return "이전 마지막 기록 : " + date
}
