// Package http mounts the categorize status endpoints
package http

import (
	"context"
	"net/http"
	"time"

	"sift/internal/core/version"
	"sift/internal/platform/metrics"
	phttp "sift/internal/platform/net/http"
	"sift/internal/platform/store"
	"sift/internal/services/categorize/domain"
)

const readyTimeout = 2 * time.Second

// Deps are the handler dependencies; PG and CH are nil when the sink is off
type Deps struct {
	StartedAt time.Time
	Progress  domain.ProgressPort
	Metrics   *metrics.Metrics
	PG        store.Pinger
	CH        store.Pinger
	Profiler  bool
}

type handlers struct {
	deps Deps
}

// Register mounts the status routes
func Register(r phttp.Router, d Deps) {
	h := &handlers{deps: d}

	phttp.GetJSON(r, "/healthz", h.health)
	phttp.GetJSON(r, "/ready", h.ready)
	phttp.GetJSON(r, "/version", h.version)
	phttp.GetJSON(r, "/progress", h.progress)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
	phttp.MountProfiler(r, "/debug", d.Profiler)
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Started string `json:"started"`
	Uptime  int64  `json:"uptime"`
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok fail skipped
	Error  string `json:"error,omitempty"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status"` // ok fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"`
}

func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: version.Info().Service,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(time.Since(h.deps.StartedAt) / time.Second),
	}, nil
}

func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	check := func(name string, p store.Pinger) ReadyCheck {
		if p == nil {
			return ReadyCheck{Name: name, Status: "skipped"}
		}
		if err := p.Ping(ctx); err != nil {
			return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
		}
		return ReadyCheck{Name: name, Status: "ok"}
	}

	checks := []ReadyCheck{check("pg", h.deps.PG), check("ch", h.deps.CH)}
	overall := "ok"
	for _, c := range checks {
		if c.Status == "fail" {
			overall = "fail"
		}
	}
	return ReadyResponse{
		Status: overall,
		Checks: checks,
		Now:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}

func (h *handlers) progress(_ *http.Request) (any, error) {
	if h.deps.Progress == nil {
		return domain.Progress{}, nil
	}
	return h.deps.Progress.Snapshot(), nil
}
