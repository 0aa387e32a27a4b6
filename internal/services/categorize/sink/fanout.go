package sink

import (
	"context"
	"errors"

	perr "sift/internal/platform/errors"
	"sift/internal/platform/logger"
	"sift/internal/services/categorize/domain"
)

// Fanout writes every row to each of its sinks in order; the first error wins
type Fanout struct {
	sinks []domain.Sink
}

// NewFanout returns a sink over sinks; nil entries are dropped
func NewFanout(sinks ...domain.Sink) *Fanout {
	out := make([]domain.Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

// Name implements domain.Sink
func (f *Fanout) Name() string { return "fanout" }

// Sinks returns the sink names in write order
func (f *Fanout) Sinks() []string {
	out := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		out[i] = s.Name()
	}
	return out
}

// Begin starts every sink; when one fails the ones already started are closed
func (f *Fanout) Begin(ctx context.Context, header []string) error {
	if len(f.sinks) == 0 {
		return perr.InvalidArgf("no sinks configured")
	}
	for i, s := range f.sinks {
		if err := s.Begin(ctx, header); err != nil {
			for _, started := range f.sinks[:i] {
				if cerr := started.Close(ctx); cerr != nil {
					logger.C(ctx).Warn().Err(cerr).Str("sink", started.Name()).Msg("close after failed begin")
				}
			}
			return perr.WithOp(err, s.Name()+" begin")
		}
	}
	return nil
}

// Write implements domain.Sink
func (f *Fanout) Write(ctx context.Context, row domain.Row) error {
	for _, s := range f.sinks {
		if err := s.Write(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink even when one fails and joins the errors
func (f *Fanout) Close(ctx context.Context) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
