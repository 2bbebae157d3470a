package calendar

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/yanqian/todoc/pkg/metrics"
	"github.com/yanqian/todoc/pkg/stale"
	"github.com/yanqian/todoc/pkg/util"
)

// ErrSuperseded reports a month response dropped because the visible month or
// kid changed while it was in flight.
var ErrSuperseded = errors.New("month response superseded")

// State is the calendar of one view: the visible month, its map and the
// selected date.
type State struct {
	svc     *Service
	guard   stale.Guard[monthKey]
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.RWMutex
	kidID    int64
	visible  Month
	monthMap MonthMap
	selected string
}

// NewState starts on the month of selected, or today's month when selected is empty.
func NewState(svc *Service, kidID int64, selected string, m *metrics.Metrics, logger *slog.Logger) *State {
	today := svc.Today()
	if selected == "" || selected > today {
		selected = today
	}
	visible, _ := MonthOf(selected)
	return &State{
		svc:      svc,
		metrics:  m,
		logger:   logger.With("component", "calendar.state"),
		kidID:    kidID,
		visible:  visible,
		monthMap: unknownMonthMap(kidID, visible),
		selected: selected,
	}
}

// Visible returns the displayed month.
func (s *State) Visible() Month {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

// Selected returns the selected ISO date.
func (s *State) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Map returns the displayed month map.
func (s *State) Map() MonthMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monthMap
}

// View renders the current state.
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BuildView(s.monthMap, s.selected, s.svc.Today())
}

// Refresh refetches the visible month.
func (s *State) Refresh(ctx context.Context) (MonthMap, error) {
	s.mu.RLock()
	key := monthKey{kidID: s.kidID, month: s.visible}
	s.mu.RUnlock()
	return s.fetch(ctx, key)
}

// PrevMonth moves one month back and fetches it.
func (s *State) PrevMonth(ctx context.Context) (MonthMap, error) {
	return s.moveTo(ctx, s.Visible().Prev())
}

// NextMonth moves one month forward and fetches it.
func (s *State) NextMonth(ctx context.Context) (MonthMap, error) {
	return s.moveTo(ctx, s.Visible().Next())
}

// SetKid switches the kid and refetches the visible month.
func (s *State) SetKid(ctx context.Context, kidID int64) (MonthMap, error) {
	s.mu.Lock()
	s.kidID = kidID
	key := monthKey{kidID: kidID, month: s.visible}
	s.mu.Unlock()
	return s.fetch(ctx, key)
}

// SelectDate selects date unless it is after today or malformed. It reports
// whether the selection changed.
func (s *State) SelectDate(date string) bool {
	if _, ok := util.ParseISODate(date); !ok || len(date) != len(util.ISODateLayout) {
		return false
	}
	if date > s.svc.Today() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == date {
		return false
	}
	s.selected = date
	return true
}

// Sync follows an externally controlled selected date. When it diverges the
// selection is replaced and, if it falls in another month, that month is
// shown and fetched.
func (s *State) Sync(ctx context.Context, selected string) (MonthMap, error) {
	month, ok := MonthOf(selected)
	if !ok {
		return s.Map(), nil
	}
	s.mu.Lock()
	if s.selected == selected {
		s.mu.Unlock()
		return s.Map(), nil
	}
	s.selected = selected
	sameMonth := s.visible == month
	s.mu.Unlock()
	if sameMonth {
		return s.Map(), nil
	}
	return s.moveTo(ctx, month)
}

func (s *State) moveTo(ctx context.Context, month Month) (MonthMap, error) {
	s.mu.Lock()
	s.visible = month
	key := monthKey{kidID: s.kidID, month: month}
	s.mu.Unlock()
	return s.fetch(ctx, key)
}

// fetch loads key and installs it if key is still current. A failed fetch
// keeps the map when it already belongs to key and otherwise shows an
// all-unknown map.
func (s *State) fetch(ctx context.Context, key monthKey) (MonthMap, error) {
	ticket := s.guard.Issue(key)
	mm, err := s.svc.FetchMonth(ctx, key.kidID, key.month)
	if err != nil {
		s.logger.Warn("month fetch failed",
			"kid_id", key.kidID,
			"month", key.month.String(),
			"error", err,
		)
		s.guard.Accept(ticket, func() {
			s.mu.Lock()
			if s.monthMap.key() != key {
				s.monthMap = unknownMonthMap(key.kidID, key.month)
			}
			s.mu.Unlock()
		})
		return s.Map(), err
	}
	accepted := s.guard.Accept(ticket, func() {
		s.mu.Lock()
		s.monthMap = mm
		s.mu.Unlock()
	})
	if !accepted {
		s.metrics.StaleDiscarded("calendar.state")
		s.logger.Warn("discarded superseded month response",
			"kid_id", key.kidID,
			"month", key.month.String(),
		)
		return s.Map(), ErrSuperseded
	}
	return mm, nil
}
