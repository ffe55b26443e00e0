package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/matchlink/internal/engine"
	"github.com/roach88/matchlink/internal/model"
	"github.com/roach88/matchlink/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string
	Write    bool
}

// replayReport is the JSON payload for a replay run.
type replayReport struct {
	SessionID string       `json:"session_id"`
	Events    int          `json:"events"`
	Clean     bool         `json:"clean"`
	Drift     []driftEntry `json:"drift,omitempty"`
	Repaired  bool         `json:"repaired,omitempty"`
}

type driftEntry struct {
	PlayerID string `json:"player_id"`
	Field    string `json:"field"`
	Stored   int    `json:"stored"`
	Replayed int    `json:"replayed"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompute aggregates from the event log and report drift",
		Long: `Replay a session's event log from scratch and compare the result
against the stored per-player counters. The log is the source of
truth; stored counters are a live-path cache that can drift when
events arrive out of order or twice.

Exits 1 when drift is found. With --write, the recomputed counters
and leaderboard replace the stored ones.

Example:
  matchlink replay --db primary.db
  matchlink replay --db primary.db --write`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to device SQLite database (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (defaults to the active session)")
	cmd.Flags().BoolVar(&opts.Write, "write", false, "persist the recomputed aggregates")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	sess, err := resolveSession(ctx, st, opts.Session)
	if err != nil {
		return err
	}

	roster, err := st.ListPlayers(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "list players", err)
	}
	events, err := st.ListEvents(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "list events", err)
	}
	stored, err := st.ListStats(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "list stats", err)
	}

	replayed := engine.RecomputeStats(sess.ID, roster, events)
	drift := diffStats(stored, replayed)

	report := replayReport{
		SessionID: sess.ID.String(),
		Events:    len(events),
		Clean:     len(drift) == 0,
		Drift:     drift,
	}

	if opts.Write {
		repaired := engine.Summarize(sess, roster, replayed, events)
		if err := st.FinishSession(ctx, repaired, nil, replayed); err != nil {
			return WrapExitError(ExitCommandError, "persist recomputed aggregates", err)
		}
		report.Repaired = true
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := out.Success(formatReplayReport(report), report); err != nil {
		return err
	}

	if !report.Clean && !report.Repaired {
		return NewExitError(ExitFailure, "stored counters drift from the event log")
	}
	return nil
}

// diffStats compares the stored counters against the replayed ones
// field by field. Players missing on either side count as all zeroes.
func diffStats(stored, replayed []model.PlayerStats) []driftEntry {
	storedBy := make(map[uuid.UUID]model.PlayerStats, len(stored))
	for _, s := range stored {
		storedBy[s.PlayerID] = s
	}

	var drift []driftEntry
	seen := make(map[uuid.UUID]bool, len(replayed))
	for _, r := range replayed {
		seen[r.PlayerID] = true
		s := storedBy[r.PlayerID]
		drift = appendDrift(drift, r.PlayerID, "goals", s.Goals, r.Goals)
		drift = appendDrift(drift, r.PlayerID, "assists", s.Assists, r.Assists)
		drift = appendDrift(drift, r.PlayerID, "saves", s.Saves, r.Saves)
	}
	for _, s := range stored {
		if seen[s.PlayerID] {
			continue
		}
		// Counters for someone no longer on the roster.
		drift = appendDrift(drift, s.PlayerID, "goals", s.Goals, 0)
		drift = appendDrift(drift, s.PlayerID, "assists", s.Assists, 0)
		drift = appendDrift(drift, s.PlayerID, "saves", s.Saves, 0)
	}
	return drift
}

func appendDrift(drift []driftEntry, playerID uuid.UUID, field string, stored, replayed int) []driftEntry {
	if stored == replayed {
		return drift
	}
	return append(drift, driftEntry{
		PlayerID: playerID.String(),
		Field:    field,
		Stored:   stored,
		Replayed: replayed,
	})
}

func formatReplayReport(r replayReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "session: %s\nreplayed %d events\n", r.SessionID, r.Events)
	if r.Clean {
		b.WriteString("counters match the event log")
	} else {
		fmt.Fprintf(&b, "drift in %d counter(s):\n", len(r.Drift))
		for _, d := range r.Drift {
			fmt.Fprintf(&b, "  %s %s: stored=%d replayed=%d\n", d.PlayerID, d.Field, d.Stored, d.Replayed)
		}
	}
	if r.Repaired {
		b.WriteString("\nrecomputed aggregates written")
	}
	return strings.TrimRight(b.String(), "\n")
}
