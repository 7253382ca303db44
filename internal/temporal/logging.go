package temporal

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// ZerologAdapter routes Temporal SDK logs into zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
}

var (
	_ log.Logger     = (*ZerologAdapter)(nil)
	_ log.WithLogger = (*ZerologAdapter)(nil)
)

func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{
		logger: logger.With().Str("component", "temporal-sdk").Logger(),
	}
}

// fields applies Temporal's alternating key/value pairs to an event.
func fields(event *zerolog.Event, keyvals []interface{}) *zerolog.Event {
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 == len(keyvals) {
			event = event.Str(key, "(missing)")
			break
		}
		if err, ok := keyvals[i+1].(error); ok {
			event = event.AnErr(key, err)
			continue
		}
		event = event.Interface(key, keyvals[i+1])
	}
	return event
}

func (a *ZerologAdapter) Debug(msg string, keyvals ...interface{}) {
	fields(a.logger.Debug(), keyvals).Msg(msg)
}

func (a *ZerologAdapter) Info(msg string, keyvals ...interface{}) {
	fields(a.logger.Info(), keyvals).Msg(msg)
}

func (a *ZerologAdapter) Warn(msg string, keyvals ...interface{}) {
	fields(a.logger.Warn(), keyvals).Msg(msg)
}

func (a *ZerologAdapter) Error(msg string, keyvals ...interface{}) {
	fields(a.logger.Error(), keyvals).Msg(msg)
}

func (a *ZerologAdapter) With(keyvals ...interface{}) log.Logger {
	ctx := a.logger.With()
	for i := 0; i+1 < len(keyvals); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(keyvals[i]), keyvals[i+1])
	}
	return &ZerologAdapter{logger: ctx.Logger()}
}
