package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldSession  = "session_id"
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldCommand  = "command"
)

// Fields converts key/value pairs into zap string fields. Pairs with an empty
// key or value are dropped and a trailing key without a value is ignored.
func Fields(kv ...string) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key := strings.TrimSpace(kv[i])
		value := strings.TrimSpace(kv[i+1])
		if key == "" || value == "" {
			continue
		}
		fields = append(fields, zap.String(key, value))
	}
	return fields
}

// With attaches fields to logger, falling back to a no-op logger when nil.
func With(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// ForSession tags every entry with the session and command it belongs to.
func ForSession(logger *zap.Logger, sessionID, command string) *zap.Logger {
	return With(logger, Fields(FieldSession, sessionID, FieldCommand, command)...)
}

// ForModel tags entries produced while talking to a model.
func ForModel(logger *zap.Logger, provider, model string) *zap.Logger {
	return With(logger, Fields(FieldProvider, provider, FieldModel, model)...)
}
