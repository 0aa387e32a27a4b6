package domain

import (
	"context"

	"sift/internal/adapters/ingest/archive"
)

// Sink receives the header once, then every row, then Close
type Sink interface {
	Name() string
	Begin(ctx context.Context, header []string) error
	Write(ctx context.Context, row Row) error
	Close(ctx context.Context) error
}

// LineSource is the pull cursor the service reads one file through
type LineSource interface {
	Next() (archive.Line, error)
	Close() error
	Name() string
	Size() int64
}

// Opener opens one input file as a LineSource
type Opener func(path string) (LineSource, error)

// RunnerPort is what the CLI calls
type RunnerPort interface {
	Run(ctx context.Context) (RunSummary, error)
}

// ProgressPort exposes the live progress snapshot
type ProgressPort interface {
	Snapshot() Progress
}
