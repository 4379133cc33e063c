package events

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes every event to the structured log.
type LogSink struct {
	Log *zap.Logger
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Publish(_ context.Context, ev Event) error {
	s.Log.Info("order event",
		zap.String("type", ev.Type),
		zap.String("order_id", ev.OrderID),
		zap.Int("order_number", ev.OrderNumber),
		zap.Int("table_number", ev.TableNumber),
		zap.String("section", ev.Section),
		zap.String("section_status", ev.SectionStatus),
		zap.String("status", ev.Status))
	return nil
}
