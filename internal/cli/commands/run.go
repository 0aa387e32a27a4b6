package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"sift/internal/modkit"
	"sift/internal/platform/config"
	"sift/internal/platform/logger"
	"sift/internal/platform/metrics"
	"sift/internal/platform/store"
	"sift/internal/services/categorize/domain"
	catmod "sift/internal/services/categorize/module"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes
const (
	ExitOK          = 0
	ExitFailedFiles = 1 // run finished but at least one file stopped on an error
	ExitError       = 2 // configuration or runtime error
)

// ExitCode is set by commands to indicate the result
var ExitCode = ExitOK

func conf() config.Conf { return config.New().Prefix("SIFT_") }

// flagEnv maps run flags to the SIFT_* keys the categorize module reads
var flagEnv = map[string]string{
	"input":             "INPUT",
	"output":            "OUTPUT",
	"from":              "FROM",
	"to":                "TO",
	"to-inclusive-day":  "TO_INCLUSIVE_DAY",
	"categories":        "CATEGORIES",
	"ext":               "EXTENSIONS",
	"codec":             "CODEC",
	"chunk-size":        "CHUNK_SIZE",
	"max-window":        "MAX_WINDOW",
	"flush-tail":        "FLUSH_TAIL",
	"log-every":         "LOG_EVERY",
	"bad-line-every":    "BAD_LINE_EVERY",
	"log-bad-lines":     "LOG_BAD_LINES",
	"continue-on-error": "CONTINUE_ON_ERROR",
	"batch-size":        "BATCH_SIZE",
	"batch-retries":     "BATCH_RETRIES",
	"pg-url":            "PG_URL",
	"pg-async-commit":   "PG_ASYNC_COMMIT",
	"ch-url":            "CH_URL",
	"status-addr":       "STATUS_ADDR",
	"profiler":          "PROFILER",
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Categorize an archive file or a directory of archives",
		Long: `Stream every archive under input in name order, keep the records created
between midnight of --from and midnight of --to (both inclusive; add
--to-inclusive-day to keep all of the --to day) and write one row per record
with a 0/1 column per category.

Flags override the matching SIFT_* environment variables, e.g. --chunk-size
sets SIFT_CHUNK_SIZE. Sizes accept plain byte counts or powers of two ("2^27").

Exit codes:
  0 - All files processed
  1 - Run finished but some files failed
  2 - Configuration or runtime error`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, asJSON)
		},
	}

	f := cmd.Flags()
	f.String("input", "", "Archive file or directory (same as the positional argument)")
	f.StringP("output", "o", "sift.csv", "CSV output path; missing directories are created")
	f.String("from", "", "First day to keep, YYYY-MM-DD (default 1970-01-01)")
	f.String("to", "", "Upper bound, YYYY-MM-DD at midnight UTC (default today)")
	f.Bool("to-inclusive-day", false, "Keep every record created on the --to day")
	f.StringP("categories", "c", "", "Category table YAML file (default: embedded table)")
	f.String("ext", ".zst", "Comma separated file extensions picked from an input directory")
	f.String("codec", "auto", "Decompressor (auto|plain|zstd|gzip|lz4); auto picks by extension")
	f.String("chunk-size", "2^27", "Decompressed bytes requested per read")
	f.String("max-window", "2^30", "Largest byte run tried while repairing a split character")
	f.Bool("flush-tail", false, "Emit a final line that has no trailing newline")
	f.Int("log-every", 250000, "Log progress every N lines")
	f.Int("bad-line-every", 5000, "Warn about a bad line when the line count is a multiple of N")
	f.Bool("log-bad-lines", true, "Log sampled bad lines")
	f.Bool("continue-on-error", true, "Skip bad lines instead of failing the file")
	f.Int("batch-size", 1000, "Rows per database insert")
	f.Int("batch-retries", 3, "Attempts per database batch")
	f.String("pg-url", "", "Postgres URL; enables the Postgres sink")
	f.Bool("pg-async-commit", false, "Commit Postgres batches with synchronous_commit off")
	f.String("ch-url", "", "ClickHouse URL; enables the ClickHouse sink")
	f.String("status-addr", "", "Serve /healthz, /ready, /progress and /metrics on this address")
	f.Bool("profiler", false, "Mount /debug/pprof on the status server")
	f.BoolVar(&asJSON, "json", false, "Print the run summary as JSON")

	return cmd
}

// surface copies explicitly set flags into the environment so module.FromConfig sees them
func surface(fs *pflag.FlagSet, args []string) error {
	c := conf()
	if len(args) == 1 {
		if err := os.Setenv(c.Key("INPUT"), args[0]); err != nil {
			return err
		}
	}
	var err error
	fs.Visit(func(fl *pflag.Flag) {
		k, ok := flagEnv[fl.Name]
		if !ok || err != nil {
			return
		}
		err = os.Setenv(c.Key(k), fl.Value.String())
	})
	return err
}

func runRun(cmd *cobra.Command, args []string, asJSON bool) error {
	if err := surface(cmd.Flags(), args); err != nil {
		return err
	}

	logger.Init(logger.FromEnv())
	defer func() { _ = logger.Close() }()
	log := logger.Get()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	st, err := store.Open(ctx, store.FromConfig(conf(), "sift"), store.WithLogger(*log))
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()
	if err := st.Guard(ctx); err != nil {
		return err
	}

	mod, err := catmod.New(modkit.Deps{
		Log:     *log,
		Cfg:     root,
		PG:      st.PG,
		CH:      st.CH,
		Metrics: metrics.New(),
	})
	if err != nil {
		return err
	}

	sum, err := mod.Run(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			return err
		}
	} else {
		printSummary(cmd.OutOrStdout(), sum)
	}
	if sum.Failed > 0 {
		ExitCode = ExitFailedFiles
	}
	return nil
}

func printSummary(w io.Writer, sum domain.RunSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FILE\tLINES\tWRITTEN\tBAD\tELAPSED\tERROR")
	for _, f := range sum.Files {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
			filepath.Base(f.File), f.Total, f.Processed, f.Bad, f.Elapsed.Round(time.Millisecond), f.Err)
	}
	_, _ = fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%s\t%d failed\n",
		sum.Total, sum.Written, sum.Bad, sum.Elapsed.Round(time.Millisecond), sum.Failed)
	_ = tw.Flush()
}
