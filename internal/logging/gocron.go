package logging

import (
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// gocronLogger implements gocron.Logger on top of zerolog.
type gocronLogger struct {
	log zerolog.Logger
}

// NewGocronLogger returns a gocron.Logger writing through l.
func NewGocronLogger(l zerolog.Logger) gocron.Logger {
	return &gocronLogger{log: Component(l, "scheduler")}
}

func (g *gocronLogger) Debug(msg string, args ...any) { g.emit(g.log.Debug(), msg, args) }
func (g *gocronLogger) Info(msg string, args ...any)  { g.emit(g.log.Info(), msg, args) }
func (g *gocronLogger) Warn(msg string, args ...any)  { g.emit(g.log.Warn(), msg, args) }
func (g *gocronLogger) Error(msg string, args ...any) { g.emit(g.log.Error(), msg, args) }

// emit turns gocron's alternating key/value args into zerolog fields.
func (g *gocronLogger) emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			ev = ev.Interface("value", args[i])
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if err, ok := args[i+1].(error); ok {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
