package logging

import (
	"go.uber.org/zap"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// EventSink writes uiaction events to a zap logger. Successful operations log
// at debug, failures at warn with the error's structured fields.
type EventSink struct {
	log *zap.Logger
}

var _ uiaction.EventSink = (*EventSink)(nil)

// NewEventSink returns a sink logging to l.
func NewEventSink(l *zap.Logger) *EventSink {
	return &EventSink{log: l}
}

func (s *EventSink) Emit(e uiaction.Event) {
	fields := []zap.Field{
		zap.String("engine", e.Engine),
		zap.String("op", e.Op),
		zap.String("outcome", string(e.Outcome)),
		zap.Duration("duration", e.Duration),
	}
	if e.Target != "" {
		fields = append(fields, zap.String("target", e.Target))
	}

	if e.Err == nil {
		s.log.Debug("browser action", fields...)
		return
	}
	fields = append(fields,
		zap.String("code", e.Code()),
		zap.Any("details", uiaction.Fields(e.Err)),
		zap.Error(e.Err),
	)
	s.log.Warn("browser action failed", fields...)
}
