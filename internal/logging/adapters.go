package logging

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// GormWriter satisfies gorm's logger.Writer. Everything gorm reports at the
// configured gorm level goes out as a warning on the component logger.
type GormWriter struct {
	Log zerolog.Logger
}

func (w GormWriter) Printf(format string, args ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	w.Log.Warn().Str("component", "gorm").Msg(strings.ReplaceAll(msg, "\n", " "))
}

// CronLogger satisfies cron.Logger.
type CronLogger struct {
	Log zerolog.Logger
}

func (l CronLogger) Info(msg string, keysAndValues ...any) {
	withFields(l.Log.Debug(), keysAndValues).Str("component", "cron").Msg(msg)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...any) {
	withFields(l.Log.Error().Err(err), keysAndValues).Str("component", "cron").Msg(msg)
}

func withFields(e *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		e = e.Interface(key, kv[i+1])
	}
	return e
}
