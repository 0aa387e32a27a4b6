package module

import (
	"time"

	"sift/internal/adapters/ingest/archive"
	"sift/internal/platform/config"
	ptime "sift/internal/platform/time"
	"sift/internal/services/categorize/domain"
	"sift/internal/services/categorize/sink"
)

// Options holds configuration options for the categorize module
type Options struct {
	Settings domain.Settings
	Batch    sink.BatchConfig

	StatusAddr string // empty disables the status server
	Profiler   bool
}

// epoch is the default lower date bound
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// FromConfig reads the categorize options from config with the SIFT_ prefix
//
//	INPUT, OUTPUT, FROM, TO, TO_INCLUSIVE_DAY, CATEGORIES, EXTENSIONS, CODEC, CHUNK_SIZE, MAX_WINDOW, FLUSH_TAIL
//	LOG_EVERY, BAD_LINE_EVERY, LOG_BAD_LINES, CONTINUE_ON_ERROR
//	BATCH_SIZE, BATCH_RETRIES, BATCH_RETRY_BASE, PG_ASYNC_COMMIT, STATUS_ADDR, PROFILER
//
// A malformed FROM or TO is an InvalidArgument error
func FromConfig(cfg config.Conf) (Options, error) {
	c := cfg.Prefix("SIFT_")
	from, err := c.Date("FROM", epoch)
	if err != nil {
		return Options{}, err
	}
	to, err := c.Date("TO", ptime.Midnight(time.Now()))
	if err != nil {
		return Options{}, err
	}
	return Options{
		Settings: domain.Settings{
			Input:          c.MayString("INPUT", ""),
			Output:         c.MayString("OUTPUT", "sift.csv"),
			From:           from,
			To:             to,
			ToInclusiveDay: c.MayBool("TO_INCLUSIVE_DAY", false),
			Categories:     c.MayString("CATEGORIES", ""),
			Extensions:     c.MayCSV("EXTENSIONS", archive.DefaultExtensions),
			Codec:          c.MayEnum("CODEC", "auto", "auto", "plain", "zstd", "gzip", "lz4"),

			ChunkSize: int(c.MayBytes("CHUNK_SIZE", archive.DefaultChunkSize)),
			MaxWindow: int(c.MayBytes("MAX_WINDOW", archive.DefaultMaxWindow)),
			FlushTail: c.MayBool("FLUSH_TAIL", false),

			LogEvery:        c.MayInt("LOG_EVERY", 250000),
			BadLineEvery:    c.MayInt("BAD_LINE_EVERY", 5000),
			LogBadLines:     c.MayBool("LOG_BAD_LINES", true),
			ContinueOnError: c.MayBool("CONTINUE_ON_ERROR", true),
		},
		Batch: sink.BatchConfig{
			Size:        c.MayInt("BATCH_SIZE", 1000),
			Retries:     c.MayInt("BATCH_RETRIES", 3),
			RetryBase:   c.MayDuration("BATCH_RETRY_BASE", 250*time.Millisecond),
			AsyncCommit: c.MayBool("PG_ASYNC_COMMIT", false),
		},
		StatusAddr: c.MayString("STATUS_ADDR", ""),
		Profiler:   c.MayBool("PROFILER", false),
	}, nil
}
