package logger

import (
	"context"
	"log/slog"
)

// SlogSink writes events as structured process log lines, at the level the
// engine assigned.
type SlogSink struct {
	log *slog.Logger
}

// NewSlogSink returns a sink over l. A nil logger uses slog.Default.
func NewSlogSink(l *slog.Logger) *SlogSink {
	if l == nil {
		l = slog.Default()
	}
	return &SlogSink{log: l.With("component", "assessment")}
}

func (s *SlogSink) Write(event AssessmentEvent) error {
	attrs := []slog.Attr{
		slog.String("id", event.ID),
		slog.String("endpoint", event.Endpoint),
		slog.String("method", event.Method),
		slog.String("severity", event.Severity),
		slog.Int("score", event.Score),
	}
	if len(event.MatchedPatterns) > 0 {
		attrs = append(attrs, slog.Any("matched_patterns", event.MatchedPatterns))
	}
	if len(event.Blockers) > 0 {
		attrs = append(attrs, slog.Any("blockers", event.Blockers))
	}
	if len(event.Warnings) > 0 {
		attrs = append(attrs, slog.Any("warnings", event.Warnings))
	}
	if event.DryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	}
	if event.UserAction != "" {
		attrs = append(attrs, slog.String("user_action", event.UserAction))
	}
	s.log.LogAttrs(context.Background(), Level(event.LogLevel), "operation assessed", attrs...)
	return nil
}

// Level maps an assessment log level onto slog.
func Level(logLevel string) slog.Level {
	switch logLevel {
	case "ERROR":
		return slog.LevelError
	case "WARN":
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
