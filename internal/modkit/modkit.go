// Package modkit holds the dependency set shared by modules and the module contract
package modkit

import (
	"sift/internal/modkit/repokit"
	"sift/internal/platform/config"
	"sift/internal/platform/logger"
	"sift/internal/platform/metrics"
	phttp "sift/internal/platform/net/http"
	"sift/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only; PG and CH are nil when their backends are disabled
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	CH      store.Clickhouse
	Metrics *metrics.Metrics
}

// Module is the common surface a module shows the CLI
// keep this tiny so modules stay decoupled
type Module interface {
	// MountRoutes mounts status routes under the provided router seam
	MountRoutes(r phttp.Router)
	// Ports returns a module specific port set for cross wiring
	Ports() any
	// Name returns the module name
	Name() string
}
