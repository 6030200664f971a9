package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/serene/backend/internal/analysis/risk"
	"github.com/zhouzirui/serene/backend/internal/model/chat"
)

// Entry is the single diagnostic record written per turn. Preview is already
// redacted and bounded; raw user text and replies never appear here.
type Entry struct {
	TurnID   string
	Mode     chat.Mode
	Risk     risk.Level
	Preview  string
	Duration time.Duration
	Err      error
}

// DiagnosticSink receives at most one Entry per turn.
type DiagnosticSink interface {
	Record(ctx context.Context, entry Entry)
}

// NopSink discards entries.
type NopSink struct{}

func (NopSink) Record(context.Context, Entry) {}

// ZapSink writes entries to a zap logger.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink returns a sink writing under the "gateway" logger name.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("gateway")}
}

// Record implements DiagnosticSink.
func (s *ZapSink) Record(_ context.Context, entry Entry) {
	fields := []zap.Field{
		zap.String("turn_id", entry.TurnID),
		zap.String("risk", string(entry.Risk)),
		zap.Duration("duration", entry.Duration),
		zap.String("preview", entry.Preview),
	}

	if entry.Err != nil {
		// The preview is omitted on failure; the error is enough to debug the upstream call.
		s.logger.Warn("turn failed", append(fields[:3], zap.Error(entry.Err))...)
		return
	}
	s.logger.Info("turn responded", append(fields, zap.String("mode", string(entry.Mode)))...)
}
