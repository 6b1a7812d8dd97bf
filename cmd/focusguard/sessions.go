package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-focusguard/internal/config"
	"github.com/teslashibe/go-focusguard/internal/log"
	"github.com/teslashibe/go-focusguard/pkg/journal"
)

func sessionsCmd(cfg *config.Config) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions [id]",
		Short: "List journaled sessions, or one session's transitions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JournalPath == "" {
				return fmt.Errorf("no journal configured")
			}
			j, err := journal.Open(cfg.JournalPath, log.L())
			if err != nil {
				return err
			}
			defer j.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 1 {
				events, err := j.Events(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "TIME\tKIND\tFROM\tTO\tDETAIL")
				for _, ev := range events {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ev.At.Format(time.TimeOnly), ev.Kind, ev.From, ev.To, ev.Detail)
				}
				return nil
			}

			sessions, err := j.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tTICKS")
			for _, s := range sessions {
				dur := "running"
				if s.EndedAt != nil {
					dur = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.ID, s.StartedAt.Format(time.DateTime), dur, s.Ticks)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "SQLite journal path")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list")
	return cmd
}
