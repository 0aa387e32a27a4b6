// Package service runs a categorize pass: input files are read one after another,
// every line is classified and written rows go to the sink
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"sift/internal/adapters/ingest/archive"
	"sift/internal/core/category"
	perr "sift/internal/platform/errors"
	"sift/internal/platform/logger"
	"sift/internal/platform/metrics"
	strs "sift/internal/platform/strings"
	ptime "sift/internal/platform/time"
	"sift/internal/platform/validate"
	"sift/internal/services/categorize/domain"

	"github.com/google/uuid"
)

const (
	// createdLayout renders the last seen timestamp in progress lines
	createdLayout = "2006-01-02 15:04:05"

	// trackEvery is how many lines pass between tracker and ctx checks
	trackEvery = 1024

	// badLinePreview caps the line excerpt in bad line warnings
	badLinePreview = 150
)

// Service implements domain.RunnerPort and domain.ProgressPort
type Service struct {
	cfg      domain.Settings
	matcher  *category.Matcher
	open     domain.Opener
	sink     domain.Sink
	metrics  *metrics.Metrics
	progress *Tracker

	now   func() time.Time
	newID func() string
}

// New constructs the service; cfg is validated by Run
func New(cfg domain.Settings, m *category.Matcher, open domain.Opener, sink domain.Sink, mx *metrics.Metrics) *Service {
	if m == nil {
		panic("categorize.Service requires a non nil Matcher")
	}
	if open == nil {
		panic("categorize.Service requires a non nil Opener")
	}
	if sink == nil {
		panic("categorize.Service requires a non nil Sink")
	}
	return &Service{
		cfg:      cfg,
		matcher:  m,
		open:     open,
		sink:     sink,
		metrics:  mx,
		progress: NewTracker(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Snapshot implements domain.ProgressPort
func (s *Service) Snapshot() domain.Progress { return s.progress.Snapshot() }

// Run processes every input file in name order into the sink
// Per-file failures are logged and recorded in the summary and the run goes on;
// bad settings, an empty input, sink failures and cancellation end the run with an error
func (s *Service) Run(ctx context.Context) (domain.RunSummary, error) {
	if err := validate.Struct(s.cfg); err != nil {
		return domain.RunSummary{}, perr.WithOp(err, "settings")
	}
	files, err := archive.Discover(s.cfg.Input, s.cfg.Extensions)
	if err != nil {
		return domain.RunSummary{}, err
	}

	runID := s.newID()
	ctx = logger.WithRun(ctx, runID)
	log := logger.C(ctx)
	start := s.now()
	window := ptime.Dates(s.cfg.From, s.cfg.To)
	if s.cfg.ToInclusiveDay {
		window = ptime.Days(s.cfg.From, s.cfg.To)
	}

	sum := domain.RunSummary{RunID: runID}
	s.progress.Start(runID, len(files), start)
	defer s.progress.Finish()

	log.Info().
		Strs("categories", s.matcher.Names()).
		Str("from", s.cfg.From.Format(time.DateOnly)).
		Str("to", s.cfg.To.Format(time.DateOnly)).
		Bool("to_inclusive_day", s.cfg.ToInclusiveDay).
		Int("files", len(files)).
		Str("output", s.cfg.Output).
		Msg("run started")

	if err := s.sink.Begin(ctx, domain.Header(s.matcher.Names())); err != nil {
		return sum, err
	}

	cls := NewClassifier(window, s.matcher)
	var runErr error
	for i, path := range files {
		log.Info().Int("index", i+1).Int("of", len(files)).Str("file", filepath.Base(path)).Msg("processing file")
		s.progress.File(i+1, filepath.Base(path))

		fs, err := s.processFile(ctx, cls, runID, path)
		sum.Add(fs)
		if err != nil {
			runErr = err
			break
		}
	}

	if err := s.sink.Close(ctx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	sum.Elapsed = s.now().Sub(start)

	ev := log.Info()
	if runErr != nil {
		ev = log.Error().Err(runErr)
	}
	ev.Int("files", len(sum.Files)).
		Int("failed", sum.Failed).
		Strs("failed_files", sum.FailedFiles()).
		Int64("lines", sum.Total).
		Int64("written", sum.Written).
		Int64("bad", sum.Bad).
		Dur("elapsed", sum.Elapsed).
		Msg("run finished")
	return sum, runErr
}

// processFile streams one file into the sink. File level problems land in the summary;
// the returned error is reserved for what must stop the whole run
func (s *Service) processFile(ctx context.Context, cls *Classifier, runID, path string) (domain.FileSummary, error) {
	name := filepath.Base(path)
	fctx := logger.WithFile(ctx, name)
	log := logger.C(fctx)
	start := s.now()
	fs := domain.FileSummary{File: path}

	fail := func(err error) {
		fs.Err = err.Error()
		s.metrics.File(metrics.FileFailed)
		ev := log.Error().Err(err).Str("code", perr.CodeOf(err).String())
		if e, ok := perr.As(err); ok && e.Op() != "" {
			ev = ev.Str("op", e.Op())
		}
		ev.Msg("file failed, continuing with next file")
	}

	src, err := s.open(path)
	if err != nil {
		fail(err)
		fs.Elapsed = s.now().Sub(start)
		return fs, nil
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close input")
		}
	}()

	log.Info().Int64("size", src.Size()).Msg("starting file")

	var (
		last                   string
		pos                    int64
		tLines, tWritten, tBad int64 // deltas not yet pushed to the tracker
	)
	percent := func() float64 {
		if src.Size() <= 0 {
			return 0
		}
		return float64(pos) / float64(src.Size()) * 100
	}
	flush := func() {
		s.progress.Add(tLines, tWritten, tBad, percent(), last)
		s.metrics.Progress(percent() / 100)
		tLines, tWritten, tBad = 0, 0, 0
	}
	defer func() {
		flush()
		fs.Bytes = pos
		fs.Elapsed = s.now().Sub(start)
	}()

	for {
		if fs.Total%trackEvery == 0 {
			if err := ctx.Err(); err != nil {
				fs.Err = err.Error()
				return fs, err
			}
			if fs.Total > 0 {
				flush()
			}
		}

		line, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(err)
			return fs, nil
		}

		fs.Total++
		tLines++
		if line.Progress > pos {
			s.metrics.Bytes(line.Progress - pos)
			pos = line.Progress
		}

		rec, flags, outcome, cerr := cls.Classify(line.Text)
		switch outcome {
		case Bad:
			fs.Bad++
			tBad++
			s.metrics.Line(metrics.LineBad)
			if s.cfg.LogBadLines && fs.Total%int64(s.cfg.BadLineEvery) == 0 {
				log.Warn().Err(cerr).Int64("line", fs.Total).Str("text", strs.Truncate(line.Text, badLinePreview)).Msg("skipping bad line")
			}
			if !s.cfg.ContinueOnError {
				fail(perr.WithOp(cerr, fmt.Sprintf("line %d", fs.Total)))
				return fs, nil
			}
		case Filtered:
			last = rec.Created.Format(createdLayout)
			s.metrics.Line(metrics.LineFiltered)
		case Written:
			last = rec.Created.Format(createdLayout)
			row := domain.Row{Record: rec, Flags: flags, RunID: runID, File: name}
			if err := s.sink.Write(ctx, row); err != nil {
				fs.Err = err.Error()
				s.metrics.File(metrics.FileFailed)
				return fs, err
			}
			fs.Processed++
			tWritten++
			s.metrics.Line(metrics.LineWritten)
			s.metrics.Hits(s.matcher.Names(), flags)
		}

		if fs.Total%int64(s.cfg.LogEvery) == 0 {
			created := last
			if created == "" {
				created = "starting"
			}
			log.Info().
				Str("created", created).
				Int64("lines", fs.Total).
				Int64("processed", fs.Processed).
				Int64("bad", fs.Bad).
				Str("percent", fmt.Sprintf("%.1f%%", percent())).
				Msg("progress")
		}
	}

	s.metrics.File(metrics.FileDone)
	log.Info().
		Int64("lines", fs.Total).
		Int64("processed", fs.Processed).
		Int64("bad", fs.Bad).
		Msg("finished file")
	return fs, nil
}
