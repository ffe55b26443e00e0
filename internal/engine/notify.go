package engine

import "log/slog"

// Notifier is the hook for the one user-visible signal this subsystem
// produces: the local notification shown when a session starts on the
// companion.
type Notifier interface {
	SessionStarted(homeTeam, awayTeam string)
}

// LogNotifier logs instead of notifying. Default outside the app shell.
type LogNotifier struct{}

func (LogNotifier) SessionStarted(homeTeam, awayTeam string) {
	slog.Info("session started", "home_team", homeTeam, "away_team", awayTeam)
}
