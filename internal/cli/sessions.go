package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/todoc/internal/domain/aisession"
)

func newSessionsCmd(a *app) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Browse cached AI chat sessions",
	}
	cmd.PersistentFlags().StringVar(&source, "source", "local", "Where to read sessions: local or server")

	store := func(d *Deps) (aisession.Store, error) {
		switch source {
		case "local":
			return aisession.NewCache(d.Sessions, d.SessionKey, d.Metrics, d.Logger), nil
		case "server":
			if d.Remote == nil {
				return nil, fmt.Errorf("server sessions are not configured")
			}
			return aisession.NewRemote(d.Remote), nil
		default:
			return nil, fmt.Errorf("unknown source %q", source)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			s, err := store(d)
			if err != nil {
				return err
			}
			sessions, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.format == formatJSON {
				return a.printJSON(cmd.OutOrStdout(), sessions)
			}
			for _, session := range sessions {
				label := aisession.LookupMode(string(session.Mode)).Label
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", session.ID, label, session.DateLabel, session.Title)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one session's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			s, err := store(d)
			if err != nil {
				return err
			}
			session, ok, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("session %s not found", args[0])
			}
			return a.renderSession(cmd.OutOrStdout(), session)
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a session from the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			s, err := store(d)
			if err != nil {
				return err
			}
			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, rm)
	return cmd
}

func newChatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask one of the AI modes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := a.open(ctx)
			if err != nil {
				return err
			}
			mode, _ := cmd.Flags().GetString("mode")
			sessionID, _ := cmd.Flags().GetString("session")

			var kidID *int64
			if cmd.Flags().Changed("kid") {
				kid, _ := cmd.Flags().GetInt64("kid")
				kidID = &kid
			}

			cache := aisession.NewCache(d.Sessions, d.SessionKey, d.Metrics, d.Logger)
			chat := aisession.NewChatService(d.Chat, d.Logger)
			if d.Now != nil {
				chat.WithClock(d.Now)
			}
			session, err := chat.Open(ctx, cache, mode, sessionID)
			if err != nil {
				return err
			}
			session, err = chat.Send(ctx, cache, session, strings.Join(args, " "), kidID)
			if err != nil {
				return err
			}
			if a.format == formatJSON {
				return a.printJSON(cmd.OutOrStdout(), session)
			}
			reply := session.Messages[len(session.Messages)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n(session %s)\n", reply.Text, session.ID)
			return nil
		},
	}
	cmd.Flags().String("mode", string(aisession.ModeMom), "Mode: mom, doctor or nutrition")
	cmd.Flags().String("session", "", "Session id to continue")
	cmd.Flags().Int64("kid", 0, "Kid the question is about")
	return cmd
}

func (a *app) renderSession(w io.Writer, s aisession.Session) error {
	if a.format == formatJSON {
		return a.printJSON(w, s)
	}
	info := aisession.LookupMode(string(s.Mode))
	fmt.Fprintf(w, "%s · %s %s\n", info.Label, s.Title, s.DateLabel)
	for _, m := range s.Messages {
		who := "나"
		if m.Sender == aisession.SenderAI {
			who = info.Label
		}
		fmt.Fprintf(w, "\n%s:\n%s\n", who, m.Text)
	}
	return nil
}
