package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-focusguard/internal/config"
	"github.com/teslashibe/go-focusguard/internal/log"
	"github.com/teslashibe/go-focusguard/pkg/affect"
	"github.com/teslashibe/go-focusguard/pkg/alarm"
	"github.com/teslashibe/go-focusguard/pkg/presence"
	"github.com/teslashibe/go-focusguard/pkg/session"
)

// replayLine is one recorded analyzer result.
type replayLine struct {
	Status string         `json:"status"`
	Scores affect.Reading `json:"scores"`
	At     int64          `json:"at,omitempty"` // unix ms
}

func replayCmd(cfg *config.Config) *cobra.Command {
	var (
		asJSON   bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay [file.jsonl]",
		Short: "Feed recorded analyzer results through a session",
		Long: `Replay a JSON-lines file of analyzer results ({"status":..., "scores":...,
"at":unix_ms}) through a fresh session and print every transition. Lines
without "at" are spaced --interval apart. Reads stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			tune, err := loadTuning(cfg.TuningFile)
			if err != nil {
				return err
			}
			logger := log.With("component", "replay")

			// Tones go to a mock sink; replays are silent.
			emitter, err := newToneEmitter("mock", "", tune.Tones, logger)
			if err != nil {
				return err
			}
			defer emitter.Close()

			var now time.Time
			sess := session.New(tune.Session, alarm.NewController(emitter, logger), logger,
				session.WithClock(func() time.Time { return now }))

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			var start time.Time
			sess.Subscribe(func(ev session.Event) {
				if ev.Kind == session.EventTick {
					return
				}
				if asJSON {
					enc.Encode(ev)
					return
				}
				fmt.Fprintf(out, "%8.1fs  %-16s %s\n", ev.At.Sub(start).Seconds(), ev.Kind, describe(ev))
			})

			lines, err := readReplay(in)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				return fmt.Errorf("replay: no results")
			}

			start = time.UnixMilli(lines[0].At)
			if lines[0].At == 0 {
				start = time.Unix(0, 0)
			}
			now = start
			if _, err := sess.Start(); err != nil {
				return err
			}

			for i, l := range lines {
				if l.At > 0 {
					now = time.UnixMilli(l.At)
				} else if i > 0 {
					now = now.Add(interval)
				}
				obs := session.Observation{Status: presence.Status(l.Status), Scores: l.Scores, At: now}
				if _, err := sess.Tick(cmd.Context(), obs); err != nil && session.IsInactive(err) {
					return err
				}
			}

			final := sess.Snapshot()
			now = now.Add(interval)
			sess.Stop()

			if !asJSON {
				fmt.Fprintf(out, "\n%d results, final mode %s, confirmed %s\n", final.Seq, final.Affect.Mode, final.Confirmed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print events as JSON lines")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Spacing of results without timestamps")
	return cmd
}

func readReplay(r io.Reader) ([]replayLine, error) {
	var lines []replayLine
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var l replayLine
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("replay: line %d: %w", n, err)
		}
		lines = append(lines, l)
	}
	return lines, sc.Err()
}

func describe(ev session.Event) string {
	switch {
	case ev.From != "" || ev.To != "":
		return ev.From + " -> " + ev.To
	default:
		return ev.Detail
	}
}
