package record

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/yanqian/todoc/pkg/errors"
	"github.com/yanqian/todoc/pkg/metrics"
	"github.com/yanqian/todoc/pkg/stale"
)

// DeletePrompt is asked before a record is deleted.
const DeletePrompt = "이 기록을 삭제할까요?"

var (
	// ErrSuperseded reports a response discarded because a newer load was issued.
	ErrSuperseded = errors.New("response superseded by a newer request")
	// ErrCancelled reports a delete the user declined.
	ErrCancelled = errors.New("cancelled by user")
	// ErrNoDay reports an action that needs a loaded day.
	ErrNoDay = errors.New("no day loaded")
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm answers yes without asking.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

type dayKey struct {
	kidID int64
	date  string
}

// Controller keeps the displayed Day for one view. A failed load keeps the
// last good day; a load that resolves after a newer one was issued is dropped.
type Controller struct {
	agg     *Aggregator
	writer  Writer
	guard   stale.Guard[dayKey]
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	current *Day
	shown   dayKey
}

// NewController builds a day controller.
func NewController(agg *Aggregator, writer Writer, m *metrics.Metrics, logger *slog.Logger) *Controller {
	return &Controller{
		agg:     agg,
		writer:  writer,
		metrics: m,
		logger:  logger.With("component", "record.controller"),
	}
}

// Current returns the displayed day.
func (c *Controller) Current() (Day, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Day{}, false
	}
	return *c.current, true
}

// Load fetches (kidID, date) and makes it the displayed day. On failure the
// previous day stays displayed and is returned with the error.
func (c *Controller) Load(ctx context.Context, kidID int64, date string) (Day, error) {
	ticket := c.guard.Issue(dayKey{kidID: kidID, date: date})
	day, err := c.agg.FetchDay(ctx, kidID, date)
	if err != nil {
		if !c.guard.Valid(ticket) {
			c.discarded(ticket.Key, err)
			prev, _ := c.Current()
			return prev, ErrSuperseded
		}
		c.logger.Warn("day load failed, keeping previous day",
			"kid_id", kidID,
			"date", date,
			"error", err,
		)
		prev, _ := c.Current()
		return prev, err
	}
	accepted := c.guard.Accept(ticket, func() {
		c.mu.Lock()
		c.current = &day
		c.shown = ticket.Key
		c.mu.Unlock()
	})
	if !accepted {
		c.discarded(ticket.Key, nil)
		prev, _ := c.Current()
		return prev, ErrSuperseded
	}
	return day, nil
}

// Refresh reloads the parameters of the latest load.
func (c *Controller) Refresh(ctx context.Context) (Day, error) {
	key, ok := c.guard.Current()
	if !ok {
		return Day{}, ErrNoDay
	}
	return c.Load(ctx, key.kidID, key.date)
}

// displayed returns the key of the displayed day, which lags the latest
// load when that load failed.
func (c *Controller) displayed() (dayKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shown, c.current != nil
}

// Edit returns the navigation intent for editing rec.
func (c *Controller) Edit(rec Record) (Intent, error) {
	return EditIntent(rec)
}

// Delete asks for confirmation, deletes rec and reloads the displayed day
// in full. A failed delete leaves the displayed day untouched.
func (c *Controller) Delete(ctx context.Context, rec Record, confirm Confirmer) (Day, error) {
	key, ok := c.displayed()
	if !ok {
		return Day{}, ErrNoDay
	}
	if rec == nil || rec.Base().ID == 0 {
		prev, _ := c.Current()
		return prev, apperrors.Wrap(apperrors.CodeInvalidInput, "삭제할 기록이 없어요.", nil)
	}
	if confirm == nil {
		confirm = AlwaysConfirm
	}
	yes, err := confirm.Confirm(ctx, DeletePrompt)
	if err != nil {
		prev, _ := c.Current()
		return prev, err
	}
	if !yes {
		prev, _ := c.Current()
		return prev, ErrCancelled
	}

	kidID := key.kidID
	if rec.Base().KidID != 0 {
		kidID = rec.Base().KidID
	}
	if err := c.writer.DeleteRecord(ctx, kidID, rec.Base().ID); err != nil {
		c.logger.Error("delete record failed",
			"kid_id", kidID,
			"record_id", rec.Base().ID,
			"record_type", rec.Type(),
			"error", err,
		)
		prev, _ := c.Current()
		return prev, apperrors.Wrap(apperrors.CodeDeleteFailed, "기록을 삭제하지 못했어요.", err)
	}
	return c.Load(ctx, key.kidID, key.date)
}

// Save submits form as a new record, or as an update when it carries an id,
// then reloads the displayed day.
func (c *Controller) Save(ctx context.Context, form Form) (Record, Day, error) {
	key, ok := c.displayed()
	if !ok {
		return nil, Day{}, ErrNoDay
	}
	saved, err := SaveForm(ctx, c.writer, key.kidID, form, c.agg.Location())
	if err != nil {
		prev, _ := c.Current()
		return nil, prev, err
	}
	day, err := c.Load(ctx, key.kidID, key.date)
	return saved, day, err
}

// SaveForm converts form and submits it with POST (no id) or PATCH (id set).
func SaveForm(ctx context.Context, writer Writer, kidID int64, form Form, loc *time.Location) (Record, error) {
	if form == nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "기록 내용이 없어요.", nil)
	}
	rec, err := form.Record(kidID, loc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), err)
	}
	if rec.Base().ID == 0 {
		return writer.CreateRecord(ctx, kidID, rec)
	}
	return writer.UpdateRecord(ctx, kidID, rec)
}

func (c *Controller) discarded(key dayKey, err error) {
	c.metrics.StaleDiscarded("record.controller")
	attrs := []any{"kid_id", key.kidID, "date", key.date}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	c.logger.Warn("discarded superseded day response", attrs...)
}
