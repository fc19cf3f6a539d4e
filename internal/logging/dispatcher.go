package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// badKey holds a value that has no key, as log/slog does.
const badKey = "!BADKEY"

// DispatcherLogger writes the dispatcher's event log through zerolog,
// tagged component=dispatcher.
type DispatcherLogger struct {
	logger zerolog.Logger
}

func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger.With().Str("component", "dispatcher").Logger()}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.write(zerolog.DebugLevel, msg, keysAndValues)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.write(zerolog.InfoLevel, msg, keysAndValues)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.write(zerolog.ErrorLevel, msg, keysAndValues)
}

func (l *DispatcherLogger) write(level zerolog.Level, msg string, keysAndValues []any) {
	e := l.logger.WithLevel(level)
	if e == nil {
		return
	}
	e.Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields pairs keys with values. Non-string keys are formatted and a
// trailing value without a key is kept under !BADKEY.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 == len(keysAndValues) {
			fields[badKey] = keysAndValues[i]
			break
		}
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
