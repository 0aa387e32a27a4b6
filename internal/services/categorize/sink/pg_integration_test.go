//go:build integration_pg
// +build integration_pg

package sink

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"sift/internal/platform/store"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "postgres",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
}

func TestPostgres_Integration_InsertAndReplay(t *testing.T) {
	dsn := startPostgres(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{
		AppName: "sift-test",
		PG:      store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2},
	}, store.WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	rows := []string{
		`{"id":"a","created_utc":1546300800,"author":"u1","body":"cash\u0000money","subreddit":"la","link_id":"t3_x","score":"12"}`,
		`{"id":"b","created_utc":1546300900,"body":"pizza","subreddit":"la","link_id":"t3_x","permalink":"/r/la/b"}`,
	}

	// second pass replays the same ids and must not duplicate them
	for pass := range 2 {
		s := NewPostgres(st.PG, BatchConfig{Size: 1, AsyncCommit: pass == 1}, nil)
		if err := s.Begin(ctx, header("money", "food")); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if err := s.Write(ctx, row(t, rows[0], true, false)); err != nil {
			t.Fatalf("Write a: %v", err)
		}
		if err := s.Write(ctx, row(t, rows[1], false, true)); err != nil {
			t.Fatalf("Write b: %v", err)
		}
		if err := s.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
		want := int64(2)
		if pass == 1 {
			want = 0
		}
		if s.written != want {
			t.Fatalf("pass %d written = %d, want %d", pass, s.written, want)
		}
	}

	// the sink surface is write only; read back over a plain connection
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close(context.Background())

	var (
		n     int
		body  string
		score *int64
		cats  []string
	)
	if err := conn.QueryRow(ctx, `SELECT count(*) FROM sift_comments`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	if err := conn.QueryRow(ctx,
		`SELECT body, score, categories FROM sift_comments WHERE comment_id = 'a'`,
	).Scan(&body, &score, &cats); err != nil {
		t.Fatalf("select a: %v", err)
	}
	if body != "cashmoney" || score == nil || *score != 12 || len(cats) != 1 || cats[0] != "money" {
		t.Fatalf("row a = %q %v %v", body, score, cats)
	}
}
