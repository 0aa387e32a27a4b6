// Package domain holds the categorize run settings, the output row shape and the ports
// the service depends on
package domain

import (
	"time"

	"sift/internal/core/record"
)

// Columns are the fixed leading output columns; one column per category follows
var Columns = []string{
	"comment_id", "created_utc", "author", "score", "body", "subreddit", "link_id", "permalink",
}

// Settings is the immutable configuration for one run
type Settings struct {
	Input      string    `json:"input" validate:"required"`
	Output     string    `json:"output" validate:"required"`
	From       time.Time `json:"from" validate:"required"`
	To         time.Time `json:"to" validate:"required,gtefield=From"`
	Categories string    `json:"categories"` // YAML table path; empty means the embedded default
	Extensions []string  `json:"extensions" validate:"min=1,dive,required"`
	Codec      string    `json:"codec" validate:"omitempty,oneof=auto plain zstd gzip lz4"`

	// ToInclusiveDay keeps the whole calendar day of To; off, To is an instant at midnight
	ToInclusiveDay bool `json:"to_inclusive_day"`

	ChunkSize int  `json:"chunk_size" validate:"gt=0"`
	MaxWindow int  `json:"max_window" validate:"gtefield=ChunkSize"`
	FlushTail bool `json:"flush_tail"`

	LogEvery        int  `json:"log_every" validate:"gt=0"`
	BadLineEvery    int  `json:"bad_line_every" validate:"gt=0"`
	LogBadLines     bool `json:"log_bad_lines"`
	ContinueOnError bool `json:"continue_on_error"`
}

// Row is one classified record ready for the sinks
type Row struct {
	Record record.Record
	Flags  []bool
	RunID  string
	File   string
}

// Header returns the output header for the given category names
func Header(categories []string) []string {
	out := make([]string, 0, len(Columns)+len(categories))
	out = append(out, Columns...)
	return append(out, categories...)
}

// Strings renders the row in header order, flags as "0"/"1"
func (r Row) Strings() []string {
	rec := r.Record
	out := make([]string, 0, len(Columns)+len(r.Flags))
	out = append(out,
		rec.ID, rec.CreatedRaw, rec.Author, rec.Score, rec.Body,
		rec.Subreddit, rec.LinkID, rec.Permalink(),
	)
	for _, f := range r.Flags {
		if f {
			out = append(out, "1")
		} else {
			out = append(out, "0")
		}
	}
	return out
}

// Flagged returns the names whose flag is set
func (r Row) Flagged(names []string) []string {
	var out []string
	for i, f := range r.Flags {
		if f && i < len(names) {
			out = append(out, names[i])
		}
	}
	return out
}

// FileSummary is the outcome of one input file
type FileSummary struct {
	File      string        `json:"file"`
	Total     int64         `json:"total"`
	Processed int64         `json:"processed"`
	Bad       int64         `json:"bad"`
	Bytes     int64         `json:"bytes"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Err       string        `json:"error,omitempty"`
}

// Failed reports whether the file stopped on an error
func (f FileSummary) Failed() bool { return f.Err != "" }

// RunSummary aggregates every file of a run
type RunSummary struct {
	RunID   string        `json:"run_id"`
	Files   []FileSummary `json:"files"`
	Total   int64         `json:"total"`
	Written int64         `json:"written"`
	Bad     int64         `json:"bad"`
	Failed  int           `json:"failed"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Add folds a file summary into the totals
func (s *RunSummary) Add(f FileSummary) {
	s.Files = append(s.Files, f)
	s.Total += f.Total
	s.Written += f.Processed
	s.Bad += f.Bad
	if f.Failed() {
		s.Failed++
	}
}

// FailedFiles lists the files that stopped on an error
func (s RunSummary) FailedFiles() []string {
	var out []string
	for _, f := range s.Files {
		if f.Failed() {
			out = append(out, f.File)
		}
	}
	return out
}

// Progress is a point-in-time view of the current run for the status server
type Progress struct {
	RunID       string    `json:"run_id"`
	Started     time.Time `json:"started"`
	File        string    `json:"file,omitempty"`
	FileIndex   int       `json:"file_index"`
	FileCount   int       `json:"file_count"`
	Lines       int64     `json:"lines"`
	Written     int64     `json:"written"`
	Bad         int64     `json:"bad"`
	Percent     float64   `json:"percent"`
	LastCreated string    `json:"last_created,omitempty"`
	Done        bool      `json:"done"`
}

