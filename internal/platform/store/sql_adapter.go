package store

import (
	"context"
	"errors"
	"time"

	"sift/internal/platform/store/pg"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgExec is the statement surface shared by *pgxpool.Pool and pgx.Tx
type pgExec interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// tracedExec runs statements on a pgx surface and reports each one to the tracer
// slowUS below zero never flags a statement as slow
type tracedExec struct {
	db     pgExec
	tracer pg.QueryTracer
	slowUS int64
}

func (t tracedExec) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := t.db.Exec(ctx, sql, args...)
	if t.tracer != nil {
		us := time.Since(start).Microseconds()
		t.tracer.OnQuery(ctx, pg.QueryEvent{
			SQL:       sql,
			Args:      len(args),
			ElapsedUS: us,
			Err:       err,
			Slow:      t.slowUS >= 0 && us >= t.slowUS,
		})
	}
	return tag{ct}, err
}

// pgAdapter wraps pg.PG as a TxRunner; statements on the pool and inside
// a transaction go through the same tracer
type pgAdapter struct {
	tracedExec
	p *pg.PG
}

func newPGAdapter(p *pg.PG) *pgAdapter {
	return &pgAdapter{
		tracedExec: tracedExec{db: p.Pool, tracer: p.Tracer, slowUS: int64(p.SlowMs) * 1000},
		p:          p,
	}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.p == nil || a.p.Pool == nil {
		return errors.New("pg: nil adapter")
	}
	return a.p.Pool.Ping(ctx)
}

func (a *pgAdapter) Close() error { a.p.Close(); return nil }

// Tx commits when fn returns nil and rolls back on error or panic
func (a *pgAdapter) Tx(ctx context.Context, fn func(q Execer) error) error {
	tx, err := a.p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()
	inner := a.tracedExec
	inner.db = tx
	if err := fn(inner); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// tag wraps pgconn.CommandTag so it satisfies CommandTag
type tag struct{ t pgconn.CommandTag }

func (t tag) String() string      { return t.t.String() }
func (t tag) RowsAffected() int64 { return t.t.RowsAffected() }
