// Package repo persists classified comments to Postgres and ClickHouse
package repo

import (
	"context"
	"strconv"
	"strings"
	"time"

	"sift/internal/core/normalize"
	"sift/internal/services/categorize/domain"
)

// Table is the comment table both backends write
const Table = "sift_comments"

// CommentStore writes classified rows to one backend
type CommentStore interface {
	// EnsureSchema creates the comment table when it is missing
	EnsureSchema(ctx context.Context) error
	// InsertComments writes rows, tagging each with the names of its set flags
	// and returns the number of rows the backend accepted
	InsertComments(ctx context.Context, names []string, rows []domain.Row) (int64, error)
}

// comment is the storage shape shared by both backends
type comment struct {
	ID         string
	Created    time.Time
	Author     string
	Score      *int64
	Body       string
	Subreddit  string
	LinkID     string
	Permalink  string
	Categories []string
	RunID      string
	SourceFile string
}

// toComment flattens a row; text is sanitized since both backends reject NUL in strings
func toComment(names []string, r domain.Row) comment {
	rec := r.Record
	cats := r.Flagged(names)
	if cats == nil {
		cats = []string{}
	}
	return comment{
		ID:         normalize.Sanitize(rec.ID),
		Created:    rec.Created,
		Author:     normalize.Sanitize(rec.Author),
		Score:      score(rec.Score),
		Body:       normalize.Sanitize(rec.Body),
		Subreddit:  normalize.Sanitize(rec.Subreddit),
		LinkID:     normalize.Sanitize(rec.LinkID),
		Permalink:  normalize.Sanitize(rec.Permalink()),
		Categories: cats,
		RunID:      r.RunID,
		SourceFile: r.File,
	}
}

// score reads the rendered score back as an integer; anything else stores as null
func score(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int64(f)
		return &n
	}
	return nil
}
