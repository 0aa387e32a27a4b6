package repo

import (
	"context"
	"errors"
	"net"

	perr "sift/internal/platform/errors"
	"sift/internal/platform/store"
	"sift/internal/services/categorize/domain"

	"github.com/google/uuid"
)

var chColumns = []string{
	"comment_id", "created_utc", "author", "score", "body", "subreddit", "link_id",
	"permalink", "categories", "run_id", "source_file",
}

const chSchema = `
	CREATE TABLE IF NOT EXISTS ` + Table + ` (
		comment_id  String,
		created_utc DateTime('UTC'),
		author      String,
		score       Nullable(Int64),
		body        String,
		subreddit   LowCardinality(String),
		link_id     String,
		permalink   String,
		categories  Array(LowCardinality(String)),
		run_id      UUID,
		source_file LowCardinality(String),
		inserted_at DateTime('UTC') DEFAULT now()
	)
	ENGINE = ReplacingMergeTree(inserted_at)
	PARTITION BY toYYYYMM(created_utc)
	ORDER BY (subreddit, created_utc, comment_id)`

type chStore struct{ ch store.Clickhouse }

// NewCH returns a CommentStore over the ClickHouse seam
func NewCH(ch store.Clickhouse) CommentStore { return &chStore{ch: ch} }

// EnsureSchema implements CommentStore
func (s *chStore) EnsureSchema(ctx context.Context) error {
	if err := s.ch.Exec(ctx, chSchema); err != nil {
		return chErr(err, "create "+Table)
	}
	return nil
}

// InsertComments implements CommentStore
// ReplacingMergeTree collapses replays of a comment id at merge time
func (s *chStore) InsertComments(ctx context.Context, names []string, rows []domain.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := make([][]any, 0, len(rows))
	ids := map[string]uuid.UUID{}
	for _, r := range rows {
		c := toComment(names, r)
		if c.ID == "" {
			continue
		}
		id, ok := ids[c.RunID]
		if !ok {
			parsed, err := uuid.Parse(c.RunID)
			if err != nil {
				return 0, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "run id %q", c.RunID)
			}
			id, ids[c.RunID] = parsed, parsed
		}
		batch = append(batch, []any{
			c.ID, c.Created, c.Author, c.Score, c.Body, c.Subreddit, c.LinkID,
			c.Permalink, c.Categories, id, c.SourceFile,
		})
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.ch.Insert(ctx, Table, chColumns, batch); err != nil {
		return 0, chErr(err, "insert "+Table)
	}
	return int64(len(batch)), nil
}

// chErr tags transient failures Unavailable so the sink retries them
func chErr(err error, msg string) error {
	var ne net.Error
	if perr.Retryable(err) || errors.As(err, &ne) {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, msg)
	}
	return perr.Wrap(err, perr.ErrorCodeDB, msg)
}
