// Package sinks provides display.Sink implementations: structured logs,
// Prometheus collectors, and the in-memory latest-state store backing API
// reads.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/timerboard/internal/timer"
)

// LogSink emits structured logs for debugging display streams. It is useful
// during development or audits where no other sink is wired.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each state in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []timer.DisplayState) error {
	for _, state := range batch {
		s.logger.Info("display state",
			zap.String("timer_id", state.TimerID),
			zap.Time("at", state.At),
			zap.String("scenario", string(state.Scenario)),
			zap.Float64("progress", state.ProgressPercent),
			zap.String("status", state.StatusLabel),
			zap.String("label", state.Label),
			zap.String("tier", string(state.ColorTier)),
			zap.Bool("shimmer", state.Shimmer),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
