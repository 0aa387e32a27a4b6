//go:build integration_ch
// +build integration_ch

package sink

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"sift/internal/platform/store"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startClickhouse(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.8-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_USER":     "sift",
				"CLICKHOUSE_PASSWORD": "sift",
				"CLICKHOUSE_DB":       "sift",
			},
			WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start clickhouse container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "9000/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	return fmt.Sprintf("clickhouse://sift:sift@%s:%s/sift", host, mp.Port())
}

func TestClickhouse_Integration_Insert(t *testing.T) {
	dsn := startClickhouse(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{
		AppName: "sift-test",
		CH:      store.CHConfig{Enabled: true, URL: dsn},
	}, store.WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	s := NewClickhouse(st.CH, BatchConfig{Size: 2}, nil)
	if err := s.Begin(ctx, header("money", "food")); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for i, line := range []string{
		`{"id":"a","created_utc":1546300800,"body":"cash","subreddit":"la","link_id":"t3_x","score":5}`,
		`{"id":"b","created_utc":1546300900,"body":"pizza","subreddit":"la","link_id":"t3_x"}`,
		`{"id":"c","created_utc":1546301000,"body":"cash pizza","subreddit":"sf","link_id":"t3_y"}`,
	} {
		if err := s.Write(ctx, row(t, line, i != 1, i != 0)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.written != 3 {
		t.Fatalf("written = %d", s.written)
	}

	// the sink surface is write only; read back over a plain connection
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	rs, err := conn.Query(ctx, `SELECT comment_id, length(categories) FROM sift_comments FINAL ORDER BY comment_id`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rs.Close()

	got := map[string]uint64{}
	for rs.Next() {
		var (
			id string
			n  uint64
		)
		if err := rs.Scan(&id, &n); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got[id] = n
	}
	if err := rs.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 3 || got["a"] != 1 || got["b"] != 1 || got["c"] != 2 {
		t.Fatalf("rows = %v", got)
	}
}
