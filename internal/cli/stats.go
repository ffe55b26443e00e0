package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/matchlink/internal/model"
	"github.com/roach88/matchlink/internal/store"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
	Session  string
}

// sessionReport is the JSON payload for a session dump.
type sessionReport struct {
	SessionID       string         `json:"session_id"`
	HomeTeam        string         `json:"home_team"`
	AwayTeam        string         `json:"away_team"`
	Status          string         `json:"status"`
	HomeScore       int            `json:"home_score"`
	AwayScore       int            `json:"away_score"`
	PlayerCount     int            `json:"player_count"`
	DurationMinutes int            `json:"duration_minutes"`
	MVP             string         `json:"mvp,omitempty"`
	TopScorer       string         `json:"top_scorer,omitempty"`
	TopGoalkeeper   string         `json:"top_goalkeeper,omitempty"`
	TopPlaymaker    string         `json:"top_playmaker,omitempty"`
	Players         []playerReport `json:"players"`
}

type playerReport struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Home     bool    `json:"home"`
	Goals    int     `json:"goals"`
	Assists  int     `json:"assists"`
	Saves    int     `json:"saves"`
	Score    float64 `json:"score"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Dump a session's score, counters, and leaderboard",
		Long: `Print a session's aggregates from a device database: final score,
per-player counters with performance scores, and leaderboard picks.

Example:
  matchlink stats --db primary.db
  matchlink stats --db primary.db --session 7d4f...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to device SQLite database (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (defaults to the active session)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
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

	players, err := st.ListPlayers(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "list players", err)
	}
	stats, err := st.ListStats(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "list stats", err)
	}

	report := buildSessionReport(sess, players, stats)
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(formatSessionReport(report), report)
}

// resolveSession picks the session to inspect: an explicit id if
// given, the active session otherwise.
func resolveSession(ctx context.Context, st *store.Store, flag string) (model.Session, error) {
	if flag == "" {
		sess, err := st.ActiveSession(ctx)
		if err != nil {
			return model.Session{}, WrapExitError(ExitCommandError, "no active session; pass --session", err)
		}
		return sess, nil
	}

	id, err := uuid.Parse(flag)
	if err != nil {
		return model.Session{}, WrapExitError(ExitCommandError, "parse session id", err)
	}
	sess, err := st.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, WrapExitError(ExitCommandError, "load session", err)
	}
	return sess, nil
}

func buildSessionReport(sess model.Session, players []model.Player, stats []model.PlayerStats) sessionReport {
	byPlayer := make(map[uuid.UUID]model.PlayerStats, len(stats))
	for _, s := range stats {
		byPlayer[s.PlayerID] = s
	}
	names := make(map[uuid.UUID]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}

	report := sessionReport{
		SessionID:       sess.ID.String(),
		HomeTeam:        sess.HomeTeamName,
		AwayTeam:        sess.AwayTeamName,
		Status:          string(sess.Status),
		HomeScore:       sess.HomeScore,
		AwayScore:       sess.AwayScore,
		PlayerCount:     sess.PlayerCount,
		DurationMinutes: sess.DurationMinutes,
		MVP:             names[sess.MVP],
		TopScorer:       names[sess.TopScorer],
		TopGoalkeeper:   names[sess.TopGoalkeeper],
		TopPlaymaker:    names[sess.TopPlaymaker],
	}
	for _, p := range players {
		s := byPlayer[p.ID]
		report.Players = append(report.Players, playerReport{
			PlayerID: p.ID.String(),
			Name:     p.Name,
			Home:     p.IsHome,
			Goals:    s.Goals,
			Assists:  s.Assists,
			Saves:    s.Saves,
			Score:    s.Score(),
		})
	}
	return report
}

func formatSessionReport(r sessionReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d - %d %s  [%s]\n", r.HomeTeam, r.HomeScore, r.AwayScore, r.AwayTeam, r.Status)
	fmt.Fprintf(&b, "session:  %s\n", r.SessionID)
	fmt.Fprintf(&b, "players:  %d, duration: %d min\n", r.PlayerCount, r.DurationMinutes)
	if r.MVP != "" {
		fmt.Fprintf(&b, "mvp: %s  scorer: %s  keeper: %s  playmaker: %s\n",
			orDash(r.MVP), orDash(r.TopScorer), orDash(r.TopGoalkeeper), orDash(r.TopPlaymaker))
	}
	for _, p := range r.Players {
		side := "away"
		if p.Home {
			side = "home"
		}
		fmt.Fprintf(&b, "  %-16s %s  goals=%d assists=%d saves=%d score=%.2f\n",
			p.Name, side, p.Goals, p.Assists, p.Saves, p.Score)
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
