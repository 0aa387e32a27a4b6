// Package sink implements the row sinks a run writes to: the CSV file, the optional
// Postgres and ClickHouse tables, and a fan-out over all of them
package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	perr "sift/internal/platform/errors"
	"sift/internal/platform/logger"
	"sift/internal/platform/metrics"
	"sift/internal/services/categorize/domain"
)

// CSV writes the header and every row to one file
type CSV struct {
	path    string
	metrics *metrics.Metrics
	f       *os.File
	w       *csv.Writer
	rows    int64
}

// NewCSV returns a sink writing to path; nothing is touched until Begin
func NewCSV(path string, m *metrics.Metrics) *CSV { return &CSV{path: path, metrics: m} }

// Name implements domain.Sink
func (s *CSV) Name() string { return "csv" }

// Begin creates the output directory when missing, truncates the file and writes the header
func (s *CSV) Begin(ctx context.Context, header []string) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return perr.FileIO(err, "mkdir", dir)
			}
			logger.C(ctx).Info().Str("dir", dir).Msg("created output directory")
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return perr.FileIO(err, "create", s.path)
	}
	// flush the header now so a full disk fails Begin, not the first Write
	w := csv.NewWriter(f)
	err = w.Write(header)
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err != nil {
		_ = f.Close()
		return perr.FileIO(err, "write", s.path)
	}
	s.f, s.w = f, w
	logger.C(ctx).Info().Str("output", filepath.Base(s.path)).Int("columns", len(header)).Msg("csv header written")
	return nil
}

// Write implements domain.Sink
func (s *CSV) Write(_ context.Context, row domain.Row) error {
	if s.w == nil {
		return perr.Internalf("csv sink: write before begin")
	}
	if err := s.w.Write(row.Strings()); err != nil {
		s.metrics.SinkError(s.Name())
		return perr.FileIO(err, "write", s.path)
	}
	s.rows++
	s.metrics.SinkRow(s.Name(), 1)
	return nil
}

// Close flushes and closes the file; safe to call more than once
func (s *CSV) Close(ctx context.Context) error {
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil

	s.w.Flush()
	ferr := s.w.Error()
	cerr := f.Close()
	if ferr != nil {
		return perr.FileIO(ferr, "flush", s.path)
	}
	if cerr != nil {
		return perr.FileIO(cerr, "close", s.path)
	}
	logger.C(ctx).Info().Str("output", filepath.Base(s.path)).Int64("rows", s.rows).Msg("csv closed")
	return nil
}
