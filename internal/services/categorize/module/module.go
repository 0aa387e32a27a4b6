// Package module provides the categorize module implementation
package module

import (
	"context"
	"time"

	"sift/internal/core/category"
	"sift/internal/modkit"
	"sift/internal/platform/logger"
	phttp "sift/internal/platform/net/http"
	"sift/internal/platform/net/middleware"
	"sift/internal/platform/store"
	"sift/internal/services/categorize/domain"
	cathttp "sift/internal/services/categorize/http"
	"sift/internal/services/categorize/service"
	"sift/internal/services/categorize/sink"
)

// Ports defines the categorize module ports
type Ports struct {
	Runner   domain.RunnerPort
	Progress domain.ProgressPort
}

// Module implements the categorize module
type Module struct {
	deps    modkit.Deps
	opts    Options
	table   category.Table
	started time.Time
	ports   Ports
}

var _ modkit.Module = (*Module)(nil)

// New constructs the categorize module
// It loads the category table, opens nothing yet, and wires the CSV sink plus
// the database sinks for every backend present in deps
func New(deps modkit.Deps) (*Module, error) {
	opts, err := FromConfig(deps.Cfg)
	if err != nil {
		return nil, err
	}

	table, err := category.Load(opts.Settings.Categories)
	if err != nil {
		return nil, err
	}
	open, err := service.ArchiveOpener(opts.Settings)
	if err != nil {
		return nil, err
	}

	sinks := []domain.Sink{sink.NewCSV(opts.Settings.Output, deps.Metrics)}
	if deps.PG != nil {
		sinks = append(sinks, sink.NewPostgres(deps.PG, opts.Batch, deps.Metrics))
	}
	if deps.CH != nil {
		sinks = append(sinks, sink.NewClickhouse(deps.CH, opts.Batch, deps.Metrics))
	}
	out := sink.NewFanout(sinks...)

	svc := service.New(opts.Settings, category.NewMatcher(table), open, out, deps.Metrics)

	m := &Module{deps: deps, opts: opts, table: table, started: time.Now()}
	m.ports = Ports{Runner: svc, Progress: svc}

	logger.Named("categorize").Debug().
		Strs("sinks", out.Sinks()).
		Int("categories", table.Len()).
		Msg("module wired")
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "categorize" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the options the module was built with
func (m *Module) Options() Options { return m.opts }

// Table returns the category table in effect
func (m *Module) Table() category.Table { return m.table }

// MountRoutes mounts the status endpoints
func (m *Module) MountRoutes(r phttp.Router) {
	d := cathttp.Deps{
		StartedAt: m.started,
		Progress:  m.ports.Progress,
		Metrics:   m.deps.Metrics,
		Profiler:  m.opts.Profiler,
	}
	if p, ok := m.deps.PG.(store.Pinger); ok {
		d.PG = p
	}
	if p, ok := m.deps.CH.(store.Pinger); ok {
		d.CH = p
	}
	cathttp.Register(r, d)
}

// Run executes one categorize pass, serving status endpoints while it runs
// when a status address is configured; a status server failure never fails the run
func (m *Module) Run(ctx context.Context) (domain.RunSummary, error) {
	if m.opts.StatusAddr == "" {
		return m.ports.Runner.Run(ctx)
	}

	srv := phttp.NewServer(m.opts.StatusAddr)
	r := srv.Router()
	r.Use(middleware.Defaults()...)
	m.MountRoutes(r)

	sctx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.Run(sctx) }()

	sum, err := m.ports.Runner.Run(ctx)
	stop()
	if serr := <-done; serr != nil {
		logger.C(ctx).Warn().Err(serr).Str("addr", m.opts.StatusAddr).Msg("status server")
	}
	return sum, err
}
