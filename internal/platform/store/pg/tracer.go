package pg

import (
	"context"

	"sift/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one finished statement
// Args is the bind parameter count; values are never logged since row batches carry full comment bodies
type QueryEvent struct {
	SQL       string
	Args      int
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives one event per statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer returns a tracer that prints every statement when PG_LOG_SQL is on,
// independent of the process-wide root level
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	elapsedMs := float64(ev.ElapsedUS) / 1000.0
	evt := z.log.Info()
	if ev.Slow {
		evt = z.log.Warn()
	}

	evt.Float64("elapsed_ms", elapsedMs).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Int("args", ev.Args).
		Err(ev.Err).
		Msg("pg query")
}

// compact folds runs of whitespace into a single space and caps very long statements
func compact(s string) string {
	const maxSQL = 512
	out := make([]rune, 0, min(len(s), maxSQL+1))
	space := false
	for _, r := range s {
		if len(out) >= maxSQL {
			out = append(out, '…')
			break
		}
		if r == '\n' || r == '\t' || r == '\r' || r == ' ' {
			if !space {
				out = append(out, ' ')
				space = true
			}
			continue
		}
		space = false
		out = append(out, r)
	}
	return string(out)
}
