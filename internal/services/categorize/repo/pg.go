package repo

import (
	"context"
	"fmt"
	"strings"

	"sift/internal/modkit/repokit"
	perr "sift/internal/platform/errors"
	strs "sift/internal/platform/strings"
	"sift/internal/services/categorize/domain"
)

// pgColumns is the insert column count; postgres caps a statement at 65535 parameters
const pgColumns = 11

// PGMaxBatch is the most rows one insert statement can carry
const PGMaxBatch = 65535 / pgColumns

type (
	pgBinder struct{}
	pg       struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for CommentStore
func NewPG() repokit.Binder[CommentStore] { return pgBinder{} }

// Bind implements repokit.Binder
func (pgBinder) Bind(q repokit.Queryer) CommentStore { return &pg{q: q} }

const pgSchema = `
	CREATE TABLE IF NOT EXISTS ` + Table + ` (
		comment_id  text PRIMARY KEY,
		created_utc timestamptz NOT NULL,
		author      text,
		score       bigint,
		body        text NOT NULL DEFAULT '',
		subreddit   text,
		link_id     text,
		permalink   text NOT NULL DEFAULT '',
		categories  text[] NOT NULL DEFAULT '{}',
		run_id      uuid NOT NULL,
		source_file text NOT NULL DEFAULT '',
		inserted_at timestamptz NOT NULL DEFAULT now()
	)`

// EnsureSchema implements CommentStore
func (s *pg) EnsureSchema(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, pgSchema); err != nil {
		return perr.FromPostgres(err, "create "+Table)
	}
	return nil
}

// InsertComments implements CommentStore
// Rows without a comment id are skipped; replays of the same id are ignored
func (s *pg) InsertComments(ctx context.Context, names []string, rows []domain.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(rows) > PGMaxBatch {
		return 0, perr.InvalidArgf("batch of %d rows exceeds %d", len(rows), PGMaxBatch)
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO ` + Table + `
		(comment_id, created_utc, author, score, body, subreddit, link_id,
		permalink, categories, run_id, source_file) VALUES `)

	args := make([]any, 0, len(rows)*pgColumns)
	n := 0
	for _, r := range rows {
		c := toComment(names, r)
		if c.ID == "" {
			continue
		}
		if n > 0 {
			sb.WriteByte(',')
		}
		base := n*pgColumns + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d::text::uuid,$%d)",
			base, base+1, base+2, base+3, base+4, base+5,
			base+6, base+7, base+8, base+9, base+10)

		args = append(args,
			c.ID, c.Created, strs.SQLNull(c.Author), c.Score, c.Body,
			strs.SQLNull(c.Subreddit), strs.SQLNull(c.LinkID), c.Permalink,
			c.Categories, c.RunID, c.SourceFile,
		)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	sb.WriteString(` ON CONFLICT (comment_id) DO NOTHING`)

	tag, err := s.q.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, perr.FromPostgres(err, "insert "+Table)
	}
	return tag.RowsAffected(), nil
}
