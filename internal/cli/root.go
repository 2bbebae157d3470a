// Package cli implements the todoc journal commands. The CLI is a stateful
// caller: it owns a day controller and a calendar state per invocation.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/todoc/internal/domain/aisession"
	"github.com/yanqian/todoc/internal/domain/calendar"
	"github.com/yanqian/todoc/internal/domain/record"
	"github.com/yanqian/todoc/pkg/metrics"
)

// KidLister resolves the default kid.
type KidLister interface {
	DefaultKid(ctx context.Context) (int64, error)
}

// Deps are the collaborators every command runs against.
type Deps struct {
	Records    record.API
	Months     calendar.API
	Kids       KidLister
	Chat       aisession.ChatAPI
	Remote     aisession.RemoteAPI
	Sessions   aisession.KV
	SessionKey string
	Journal    record.Config
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	// Now overrides the wall clock when set.
	Now func() time.Time
}

// Factory opens Deps for one invocation. The returned func releases them.
type Factory func(ctx context.Context) (*Deps, func(), error)

const (
	formatText = "text"
	formatJSON = "json"
)

type app struct {
	factory Factory
	format  string
	deps    *Deps
	closeFn func()
}

// NewRootCmd builds the command tree over factory.
func NewRootCmd(factory Factory) *cobra.Command {
	a := &app{factory: factory}
	root := &cobra.Command{
		Use:           "todoc",
		Short:         "Parenting journal from the terminal",
		Long:          "Browse a kid's day and calendar, delete records and chat with the journal's AI modes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.format != formatText && a.format != formatJSON {
				return fmt.Errorf("unknown format %q", a.format)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closeFn != nil {
				a.closeFn()
				a.closeFn = nil
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.format, "format", "f", formatText, "Output format: text or json")

	root.AddCommand(
		newDayCmd(a),
		newDeleteCmd(a),
		newMonthCmd(a),
		newSessionsCmd(a),
		newChatCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) (*Deps, error) {
	if a.deps != nil {
		return a.deps, nil
	}
	deps, closeFn, err := a.factory(ctx)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a.deps, a.closeFn = deps, closeFn
	return deps, nil
}

func (a *app) aggregator(d *Deps) *record.Aggregator {
	agg := record.NewAggregator(d.Journal, d.Records, d.Logger)
	if d.Now != nil {
		agg.WithClock(d.Now)
	}
	return agg
}

func (a *app) calendar(d *Deps) *calendar.Service {
	svc := calendar.NewService(calendar.Config{Location: d.Journal.Location}, d.Months, d.Logger)
	if d.Now != nil {
		svc.WithClock(d.Now)
	}
	return svc
}

// resolveKid returns the --kid flag, or the first registered kid when the
// flag was not given.
func (a *app) resolveKid(ctx context.Context, cmd *cobra.Command, d *Deps) (int64, error) {
	if cmd.Flags().Changed("kid") {
		return cmd.Flags().GetInt64("kid")
	}
	if d.Kids == nil {
		return 0, nil
	}
	kid, err := d.Kids.DefaultKid(ctx)
	if err != nil {
		return 0, fmt.Errorf("find default kid: %w", err)
	}
	return kid, nil
}

func (a *app) printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
