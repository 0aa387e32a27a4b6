package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sift/internal/core/record"
	perr "sift/internal/platform/errors"
	"sift/internal/platform/store"
	kit "sift/internal/platform/testkit"
	"sift/internal/services/categorize/domain"

	"github.com/google/uuid"
)

const runID = "6f1c2b1e-8f5b-4d0c-9a4e-2b7d1c3e5f60"

type fakeTag struct{ n int64 }

func (t fakeTag) String() string      { return "INSERT" }
func (t fakeTag) RowsAffected() int64 { return t.n }

type fakeQ struct {
	sql  []string
	args [][]any
	err  error
}

func (f *fakeQ) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	if f.err != nil {
		return nil, f.err
	}
	return fakeTag{n: int64(len(args) / pgColumns)}, nil
}

type fakeCH struct {
	exec    []string
	table   string
	columns []string
	rows    [][]any
	err     error
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.exec = append(f.exec, sql)
	return f.err
}

func (f *fakeCH) Insert(_ context.Context, table string, columns []string, rows [][]any) error {
	f.table, f.columns = table, columns
	f.rows = append(f.rows, rows...)
	return f.err
}

func (f *fakeCH) Close() error { return nil }

func row(t *testing.T, line string, flags ...bool) domain.Row {
	t.Helper()
	rec, err := record.Parse(line)
	if err != nil {
		t.Fatalf("parse %s: %v", line, err)
	}
	return domain.Row{Record: rec, Flags: flags, RunID: runID, File: "RC_2019-01.zst"}
}

func TestScore(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{"12", int64(12)},
		{"-3", int64(-3)},
		{"4.9", int64(4)},
		{"", nil},
		{"lots", nil},
	}
	for _, c := range cases {
		got := score(c.in)
		if c.want == nil {
			if got != nil {
				t.Fatalf("score(%q) = %d, want nil", c.in, *got)
			}
			continue
		}
		if got == nil || *got != c.want.(int64) {
			t.Fatalf("score(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestToComment_SanitizesAndTags(t *testing.T) {
	r := row(t, `{"id":"c1","created_utc":1546300800,"author":"a\u0000b","body":"x\u0001y","subreddit":"golang","link_id":"t3_abc","score":7}`, true, false, true)
	c := toComment([]string{"money", "food", "work"}, r)

	if c.Author != "ab" || c.Body != "xy" {
		t.Fatalf("not sanitized: %q %q", c.Author, c.Body)
	}
	if strings.Join(c.Categories, ",") != "money,work" {
		t.Fatalf("categories = %v", c.Categories)
	}
	if c.Score == nil || *c.Score != 7 {
		t.Fatalf("score = %v", c.Score)
	}
	if c.Permalink != "https://www.reddit.com/r/golang/comments/abc/_/c1" {
		t.Fatalf("permalink = %s", c.Permalink)
	}
}

func TestToComment_NoFlagsIsEmptyNotNil(t *testing.T) {
	c := toComment([]string{"money"}, row(t, `{"id":"c1","created_utc":1}`, false))
	if c.Categories == nil || len(c.Categories) != 0 {
		t.Fatalf("categories = %#v", c.Categories)
	}
}

func TestPG_EnsureSchema(t *testing.T) {
	q := &fakeQ{}
	if err := NewPG().Bind(q).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	kit.MustContain(t, q.sql[0], "CREATE TABLE IF NOT EXISTS sift_comments")
	kit.MustContain(t, q.sql[0], "comment_id  text PRIMARY KEY")
}

func TestPG_InsertComments_BuildsMultiRowInsert(t *testing.T) {
	q := &fakeQ{}
	s := NewPG().Bind(q)
	rows := []domain.Row{
		row(t, `{"id":"c1","created_utc":1}`, true),
		row(t, `{"id":"","created_utc":2}`, true),
		row(t, `{"id":"c3","created_utc":3,"author":null}`, false),
	}

	n, err := s.InsertComments(context.Background(), []string{"money"}, rows)
	if err != nil {
		t.Fatalf("InsertComments: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}
	sql := q.sql[0]
	kit.MustContain(t, sql, "($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::text::uuid,$11)")
	kit.MustContain(t, sql, "($12,$13,$14,$15,$16,$17,$18,$19,$20,$21::text::uuid,$22)")
	kit.MustContain(t, sql, "ON CONFLICT (comment_id) DO NOTHING")
	if strings.Contains(sql, "$23") {
		t.Fatalf("empty id row was not skipped: %s", sql)
	}

	args := q.args[0]
	if len(args) != 2*pgColumns {
		t.Fatalf("args = %d", len(args))
	}
	if args[0] != "c1" || args[pgColumns] != "c3" {
		t.Fatalf("ids = %v %v", args[0], args[pgColumns])
	}
	if args[pgColumns+2] != nil {
		t.Fatalf("null author should bind nil, got %#v", args[pgColumns+2])
	}
	if got := args[8].([]string); len(got) != 1 || got[0] != "money" {
		t.Fatalf("categories = %v", got)
	}
	if args[9] != runID {
		t.Fatalf("run id = %v", args[9])
	}
}

func TestPG_InsertComments_EmptyAndAllSkipped(t *testing.T) {
	q := &fakeQ{}
	s := NewPG().Bind(q)
	if n, err := s.InsertComments(context.Background(), nil, nil); n != 0 || err != nil {
		t.Fatalf("empty = %d %v", n, err)
	}
	if n, err := s.InsertComments(context.Background(), nil, []domain.Row{row(t, `{"created_utc":1}`)}); n != 0 || err != nil {
		t.Fatalf("all skipped = %d %v", n, err)
	}
	if len(q.sql) != 0 {
		t.Fatalf("no statement expected, got %v", q.sql)
	}
}

func TestPG_InsertComments_TooLarge(t *testing.T) {
	s := NewPG().Bind(&fakeQ{})
	_, err := s.InsertComments(context.Background(), nil, make([]domain.Row, PGMaxBatch+1))
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestPG_InsertComments_WrapsError(t *testing.T) {
	q := &fakeQ{err: errors.New("boom")}
	_, err := NewPG().Bind(q).InsertComments(context.Background(), nil, []domain.Row{row(t, `{"id":"c1","created_utc":1}`)})
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("want db error, got %v", err)
	}
}

func TestCH_EnsureSchemaAndInsert(t *testing.T) {
	f := &fakeCH{}
	s := NewCH(f)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	kit.MustContain(t, f.exec[0], "ReplacingMergeTree")

	rows := []domain.Row{
		row(t, `{"id":"c1","created_utc":1,"score":"5"}`, true),
		row(t, `{"created_utc":2}`, true),
	}
	n, err := s.InsertComments(context.Background(), []string{"money"}, rows)
	if err != nil {
		t.Fatalf("InsertComments: %v", err)
	}
	if n != 1 || len(f.rows) != 1 {
		t.Fatalf("n=%d rows=%d", n, len(f.rows))
	}
	if f.table != Table || len(f.columns) != len(f.rows[0]) {
		t.Fatalf("table=%s columns=%d values=%d", f.table, len(f.columns), len(f.rows[0]))
	}
	if got := f.rows[0][3].(*int64); *got != 5 {
		t.Fatalf("score = %d", *got)
	}
	if got := f.rows[0][9].(uuid.UUID).String(); got != runID {
		t.Fatalf("run id = %s", got)
	}
}

func TestCH_InsertComments_BadRunID(t *testing.T) {
	r := row(t, `{"id":"c1","created_utc":1}`)
	r.RunID = "nope"
	_, err := NewCH(&fakeCH{}).InsertComments(context.Background(), nil, []domain.Row{r})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestCH_WrapsErrors(t *testing.T) {
	f := &fakeCH{err: errors.New("down")}
	s := NewCH(f)
	if err := s.EnsureSchema(context.Background()); !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("EnsureSchema err = %v", err)
	}
	_, err := s.InsertComments(context.Background(), nil, []domain.Row{row(t, `{"id":"c1","created_utc":1}`)})
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("Insert err = %v", err)
	}
}

func TestCH_TransientErrorsAreUnavailable(t *testing.T) {
	f := &fakeCH{err: perr.New(perr.ErrorCodeUnavailable, "too many parts")}
	_, err := NewCH(f).InsertComments(context.Background(), nil, []domain.Row{row(t, `{"id":"c1","created_utc":1}`)})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) || !perr.Retryable(err) {
		t.Fatalf("want unavailable, got %v", err)
	}
}
