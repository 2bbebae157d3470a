package calendar

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/yanqian/todoc/pkg/errors"
	"github.com/yanqian/todoc/pkg/util"
)

// API reports which dates of a month carry records.
type API interface {
	MonthlyDates(ctx context.Context, kidID int64, year, month int) (map[string]bool, error)
}

// Config holds runtime knobs for the calendar.
type Config struct {
	Location *time.Location
}

// Service fetches month maps. It keeps no state.
type Service struct {
	api    API
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewService wires the calendar to the records API.
func NewService(cfg Config, api API, logger *slog.Logger) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		api:    api,
		loc:    loc,
		now:    time.Now,
		logger: logger.With("component", "calendar.service"),
	}
}

// WithClock replaces the wall clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today returns the current ISO date in the service's zone.
func (s *Service) Today() string {
	return util.DateOf(s.now(), s.loc)
}

// FetchMonth returns the month map of (kidID, month). kidID 0 skips the call
// and yields an all-empty map.
func (s *Service) FetchMonth(ctx context.Context, kidID int64, month Month) (MonthMap, error) {
	today := s.Today()
	if kidID == 0 {
		return BuildMonthMap(0, month, nil, today), nil
	}
	dates, err := s.api.MonthlyDates(ctx, kidID, month.Year, int(month.Month))
	if err != nil {
		return MonthMap{}, apperrors.Wrap(apperrors.CodeUpstream, "달력을 불러오지 못했어요.", err)
	}
	return BuildMonthMap(kidID, month, dates, today), nil
}
