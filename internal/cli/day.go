package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/todoc/internal/domain/record"
	"github.com/yanqian/todoc/pkg/util"
)

func newDayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Show one day of records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := a.open(ctx)
			if err != nil {
				return err
			}
			ctrl, err := a.loadDay(ctx, cmd, d)
			if err != nil {
				return err
			}
			day, _ := ctrl.Current()
			return a.renderDay(cmd.OutOrStdout(), day)
		},
	}
	cmd.Flags().Int64("kid", 0, "Kid id (default: first registered kid)")
	cmd.Flags().String("date", "", "Date YYYY-MM-DD (default: today)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a record of a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := a.open(ctx)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetInt64("id")
			typeFlag, _ := cmd.Flags().GetString("type")
			yes, _ := cmd.Flags().GetBool("yes")
			category, err := record.ParseType(typeFlag)
			if err != nil {
				return err
			}

			ctrl, err := a.loadDay(ctx, cmd, d)
			if err != nil {
				return err
			}
			day, _ := ctrl.Current()
			rec, ok := day.Find(id)
			if !ok || rec.Type() != category {
				return fmt.Errorf("no %s record %d on %s", category, id, day.Date)
			}

			var confirm record.Confirmer = record.AlwaysConfirm
			if !yes {
				confirm = promptConfirm(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			day, err = ctrl.Delete(ctx, rec, confirm)
			if errors.Is(err, record.ErrCancelled) {
				fmt.Fprintln(cmd.OutOrStdout(), "삭제를 취소했어요.")
				return nil
			}
			if err != nil {
				return err
			}
			return a.renderDay(cmd.OutOrStdout(), day)
		},
	}
	cmd.Flags().Int64("id", 0, "Record id (required)")
	cmd.Flags().String("type", "", "Record type: sleep, growth, meal, health, diaper, etc (required)")
	cmd.Flags().Int64("kid", 0, "Kid id (default: first registered kid)")
	cmd.Flags().String("date", "", "Date of the record YYYY-MM-DD (default: today)")
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (a *app) loadDay(ctx context.Context, cmd *cobra.Command, d *Deps) (*record.Controller, error) {
	kid, err := a.resolveKid(ctx, cmd, d)
	if err != nil {
		return nil, err
	}
	agg := a.aggregator(d)
	date, _ := cmd.Flags().GetString("date")
	if date == "" {
		date = agg.Today()
	}
	ctrl := record.NewController(agg, d.Records, d.Metrics, d.Logger)
	if _, err := ctrl.Load(ctx, kid, date); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func promptConfirm(in io.Reader, out io.Writer) record.Confirmer {
	reader := bufio.NewReader(in)
	return record.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	})
}

func (a *app) renderDay(w io.Writer, day record.Day) error {
	if a.format == formatJSON {
		return a.printJSON(w, day)
	}
	title := util.ToDisplayDate(day.Date)
	if day.Today {
		title += " (오늘)"
	}
	fmt.Fprintln(w, title)

	printSection(w, day.Sleep.Label, day.Sleep.Header, day.Sleep.Count)
	if card := day.Sleep.Card; card != nil {
		fmt.Fprintf(w, "  %s\n", card.Summary)
		for _, e := range card.Entries {
			fmt.Fprintf(w, "  #%d %s %s~%s %s %s\n", e.ID, e.Type, e.Start, e.End, e.Duration, e.Quality)
		}
	}

	printSection(w, day.Growth.Label, day.Growth.Header, day.Growth.Count)
	if card := day.Growth.Card; card != nil {
		fmt.Fprintf(w, "  #%d %s%s%s\n", card.ID, measure("키", card.Height), measure("몸무게", card.Weight), measure("머리둘레", card.HeadCircumference))
		if len(card.Activities) > 0 {
			fmt.Fprintf(w, "  %s\n", strings.Join(card.Activities, ", "))
		}
	}

	printSection(w, day.Meal.Label, day.Meal.Header, day.Meal.Count)
	if card := day.Meal.Card; card != nil {
		fmt.Fprintf(w, "  %s\n", card.Summary)
		for _, e := range card.Entries {
			fmt.Fprintf(w, "  #%d %s %s %s %s %s\n", e.ID, e.Time, e.Type, e.Detail, e.Amount, e.Burp)
		}
	}

	printSection(w, day.Health.Label, day.Health.Header, day.Health.Count)
	if card := day.Health.Card; card != nil {
		for _, e := range card.Entries {
			fmt.Fprintf(w, "  #%d %s %s %s\n", e.ID, e.Time, e.Title, strings.Join(e.Tags, " "))
		}
	}

	printSection(w, day.Diaper.Label, day.Diaper.Header, day.Diaper.Count)
	if card := day.Diaper.Card; card != nil {
		for _, e := range card.Entries {
			fmt.Fprintf(w, "  #%d %s %s %s %s %s\n", e.ID, e.Time, e.Type, e.Amount, e.Condition, e.ColorName)
		}
	}

	printSection(w, day.Etc.Label, day.Etc.Header, day.Etc.Count)
	if card := day.Etc.Card; card != nil {
		for _, e := range card.Entries {
			fmt.Fprintf(w, "  #%d %s\n", e.ID, e.Text)
		}
	}
	return nil
}

func printSection(w io.Writer, label string, h record.Header, count int) {
	fmt.Fprintf(w, "\n[%s] %s", label, h.Title)
	if h.Sub != "" {
		fmt.Fprintf(w, " · %s", h.Sub)
	}
	if count > 0 {
		fmt.Fprintf(w, " (%d건)", count)
	}
	fmt.Fprintln(w)
}

func measure(name string, m *record.Measure) string {
	if m == nil {
		return ""
	}
	out := fmt.Sprintf(" %s %g%s", name, m.Value, m.Unit)
	if m.Change != nil {
		out += " (" + *m.Change + ")"
	}
	return out
}
