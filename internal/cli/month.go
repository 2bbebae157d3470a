package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/todoc/internal/domain/calendar"
)

func newMonthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show which days of a month have records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := a.open(ctx)
			if err != nil {
				return err
			}
			kid, err := a.resolveKid(ctx, cmd, d)
			if err != nil {
				return err
			}
			monthFlag, _ := cmd.Flags().GetString("month")
			prev, _ := cmd.Flags().GetBool("prev")
			next, _ := cmd.Flags().GetBool("next")
			if prev && next {
				return fmt.Errorf("--prev and --next cannot be combined")
			}

			svc := a.calendar(d)
			state := calendar.NewState(svc, kid, "", d.Metrics, d.Logger)
			target := state.Visible()
			if monthFlag != "" {
				t, err := time.Parse("2006-01", monthFlag)
				if err != nil {
					return fmt.Errorf("month must be YYYY-MM: %w", err)
				}
				if target, err = calendar.NewMonth(t.Year(), int(t.Month())); err != nil {
					return err
				}
			}

			var fetchErr error
			switch {
			case target == state.Visible():
				_, fetchErr = state.Refresh(ctx)
			case target.Date(1) > svc.Today():
				return fmt.Errorf("%s is in the future", target)
			default:
				_, fetchErr = state.Sync(ctx, target.Date(1))
			}
			if prev {
				_, fetchErr = state.PrevMonth(ctx)
			}
			if next {
				_, fetchErr = state.NextMonth(ctx)
			}

			if err := a.renderMonth(cmd.OutOrStdout(), state.View()); err != nil {
				return err
			}
			return fetchErr
		},
	}
	cmd.Flags().Int64("kid", 0, "Kid id (default: first registered kid)")
	cmd.Flags().String("month", "", "Month YYYY-MM (default: this month)")
	cmd.Flags().Bool("prev", false, "Show the month before")
	cmd.Flags().Bool("next", false, "Show the month after")
	return cmd
}

var statusMarks = map[calendar.Status]string{
	calendar.StatusRecorded: "●",
	calendar.StatusEmpty:    "○",
	calendar.StatusUnknown:  " ",
}

func (a *app) renderMonth(w io.Writer, view calendar.View) error {
	if a.format == formatJSON {
		return a.printJSON(w, view)
	}
	fmt.Fprintln(w, view.Label)
	for _, day := range view.Weekdays {
		fmt.Fprintf(w, "  %s  ", day)
	}
	fmt.Fprintln(w)

	var line strings.Builder
	col := 0
	for ; col < view.LeadingBlanks; col++ {
		line.WriteString("      ")
	}
	for _, cell := range view.Cells {
		open, closing := " ", " "
		switch {
		case cell.IsSelected:
			open, closing = "[", "]"
		case cell.IsToday:
			open, closing = "(", ")"
		}
		fmt.Fprintf(&line, "%s%2d%s%s ", open, cell.Day, closing, statusMarks[cell.Status])
		col++
		if col%7 == 0 {
			fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
			line.Reset()
		}
	}
	if line.Len() > 0 {
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}
	fmt.Fprintln(w, "● 기록 있음  ○ 기록 없음")
	return nil
}
