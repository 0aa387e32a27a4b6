package sink

import (
	"context"
	"math/rand"
	"time"

	"sift/internal/modkit/repokit"
	perr "sift/internal/platform/errors"
	"sift/internal/platform/logger"
	"sift/internal/platform/metrics"
	"sift/internal/platform/store"
	"sift/internal/services/categorize/domain"
	"sift/internal/services/categorize/repo"
)

// BatchConfig tunes the database sinks
type BatchConfig struct {
	Size      int           // rows per insert; <=0 -> 1000
	Retries   int           // attempts per batch; <=0 -> 1
	RetryBase time.Duration // base backoff; <=0 -> 250ms

	// AsyncCommit turns off synchronous_commit for postgres batch transactions
	AsyncCommit bool
}

func (c BatchConfig) withDefaults(maxSize int) BatchConfig {
	if c.Size <= 0 {
		c.Size = 1000
	}
	if maxSize > 0 && c.Size > maxSize {
		c.Size = maxSize
	}
	c.Retries = max(c.Retries, 1)
	if c.RetryBase <= 0 {
		c.RetryBase = 250 * time.Millisecond
	}
	return c
}

// Batch buffers rows and writes them to a comment table in batches
type Batch struct {
	name    string
	cfg     BatchConfig
	metrics *metrics.Metrics

	ensure func(ctx context.Context) error
	insert func(ctx context.Context, names []string, rows []domain.Row) (int64, error)

	names   []string
	buf     []domain.Row
	written int64
	begun   bool
}

// NewPostgres returns a batching sink over Postgres; each batch commits in its own transaction
func NewPostgres(db repokit.TxRunner, cfg BatchConfig, m *metrics.Metrics) *Batch {
	binder := repo.NewPG()
	if cfg.AsyncCommit {
		db = repokit.WithBeginHooks(db, repokit.SetLocal("synchronous_commit", "off"))
	}
	return &Batch{
		name:    "postgres",
		cfg:     cfg.withDefaults(repo.PGMaxBatch),
		metrics: m,
		ensure: func(ctx context.Context) error {
			return binder.Bind(db).EnsureSchema(ctx)
		},
		insert: func(ctx context.Context, names []string, rows []domain.Row) (int64, error) {
			var n int64
			err := repokit.WithTx(ctx, db, func(q repokit.Queryer) error {
				var err error
				n, err = repokit.MustBind(binder, q).InsertComments(ctx, names, rows)
				return err
			})
			return n, err
		},
	}
}

// NewClickhouse returns a batching sink over ClickHouse
func NewClickhouse(ch store.Clickhouse, cfg BatchConfig, m *metrics.Metrics) *Batch {
	cs := repo.NewCH(ch)
	return &Batch{
		name:    "clickhouse",
		cfg:     cfg.withDefaults(0),
		metrics: m,
		ensure:  cs.EnsureSchema,
		insert:  cs.InsertComments,
	}
}

// Name implements domain.Sink
func (s *Batch) Name() string { return s.name }

// Begin creates the table when missing and records the category columns of header
func (s *Batch) Begin(ctx context.Context, header []string) error {
	if len(header) < len(domain.Columns) {
		return perr.InvalidArgf("%s sink: header has %d columns", s.name, len(header))
	}
	if err := s.ensure(ctx); err != nil {
		return err
	}
	s.names = append([]string(nil), header[len(domain.Columns):]...)
	s.buf = make([]domain.Row, 0, s.cfg.Size)
	s.begun = true
	return nil
}

// Write buffers row and flushes once the batch is full
func (s *Batch) Write(ctx context.Context, row domain.Row) error {
	if !s.begun {
		return perr.Internalf("%s sink: write before begin", s.name)
	}
	s.buf = append(s.buf, row)
	if len(s.buf) >= s.cfg.Size {
		return s.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered rows, retrying transient failures with jittered backoff
func (s *Batch) Flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	n, err := s.insertWithRetry(ctx, s.buf)
	s.written += n
	s.metrics.SinkRow(s.name, int(n))
	if err != nil {
		s.metrics.SinkError(s.name)
		ev := logger.C(ctx).Error().Err(err).Str("sink", s.name).Int("rows", len(s.buf))
		if pgErr, ok := perr.ExtractPgError(err); ok {
			ev = ev.Str("sqlstate", pgErr.Code).Str("constraint", pgErr.ConstraintName)
		}
		ev.Msg("batch failed")
		return perr.WithOp(err, s.name+" flush")
	}
	logger.C(ctx).Debug().Str("sink", s.name).Int("rows", len(s.buf)).Int64("accepted", n).Msg("batch flushed")
	s.buf = s.buf[:0]
	return nil
}

// Close flushes what is left
func (s *Batch) Close(ctx context.Context) error {
	if !s.begun {
		return nil
	}
	err := s.Flush(ctx)
	s.begun = false
	logger.C(ctx).Info().Str("sink", s.name).Int64("accepted", s.written).Msg("sink closed")
	return err
}

func (s *Batch) insertWithRetry(ctx context.Context, rows []domain.Row) (int64, error) {
	var last error
	for i := range s.cfg.Retries {
		n, err := s.insert(ctx, s.names, rows)
		if err == nil {
			return n, nil
		}
		last = err
		if !perr.Retryable(err) || i == s.cfg.Retries-1 {
			break
		}

		// exponential backoff with jitter, capped at 10s
		d := min(s.cfg.RetryBase<<i, 10*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
		logger.C(ctx).Warn().Err(err).Str("sink", s.name).Int("attempt", i+1).Dur("backoff", j).Msg("retrying batch")
		if se := sleepCtx(ctx, j); se != nil {
			return 0, se
		}
	}
	return 0, last
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
