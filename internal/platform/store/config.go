package store

import (
	"time"

	"sift/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// boot knobs
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled      bool
	URL          string
	MaxOpenConns int
	DialTimeout  time.Duration
}

// FromConfig reads backend settings from a prefixed Conf, e.g. config.New().Prefix("SIFT_")
// A backend is enabled when its URL is set unless *_ENABLED says otherwise
//
//	PG_URL, PG_ENABLED, PG_MAX_CONNS, PG_LOG_SQL, PG_SLOW_MS, PG_CONNECT_RETRIES, PG_PING_TIMEOUT
//	CH_URL, CH_ENABLED, CH_MAX_OPEN_CONNS, CH_DIAL_TIMEOUT
func FromConfig(c config.Conf, appName string) Config {
	pg := c.Prefix("PG_")
	ch := c.Prefix("CH_")

	pgURL := pg.MayString("URL", "")
	chURL := ch.MayString("URL", "")

	return Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:        pg.MayBool("ENABLED", pgURL != ""),
			URL:            pgURL,
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 4)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQueryMs:    pg.MayInt("SLOW_MS", 500),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:      ch.MayBool("ENABLED", chURL != ""),
			URL:          chURL,
			MaxOpenConns: ch.MayInt("MAX_OPEN_CONNS", 4),
			DialTimeout:  ch.MayDuration("DIAL_TIMEOUT", 10*time.Second),
		},
	}
}
