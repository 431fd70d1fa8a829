package eventbus

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"
)

type messagingLogger struct {
	logger *zap.Logger
}

// NewLoggerAdapter routes watermill logs through zap.
func NewLoggerAdapter(l *zap.Logger) watermill.LoggerAdapter {
	return &messagingLogger{
		logger: l,
	}
}

func (l *messagingLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error(msg, append(toZapFields(fields), zap.Error(err))...)
}

func (l *messagingLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info(msg, toZapFields(fields)...)
}

func (l *messagingLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug(msg, toZapFields(fields)...)
}

func (l *messagingLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Debug(msg, toZapFields(fields)...)
}

func (l *messagingLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &messagingLogger{
		logger: l.logger.With(toZapFields(fields)...),
	}
}

func toZapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
