package store_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/models"
	"github.com/wikiroute/wikiroute/internal/store"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func writeSnapshot(t *testing.T, graph, titles string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, artifact.Graph), []byte(graph), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, artifact.TopTitles), []byte(titles), 0o644); err != nil {
		t.Fatal(err)
	}

	return dir
}

func openSQLite(t *testing.T) *store.SQLiteSink {
	t.Helper()

	sink, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "graph.db"), testLogger())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sink.Close() })

	return sink
}

func TestReadSnapshot(t *testing.T) {
	dir := writeSnapshot(t, "1,2,2\n2,1,2\n2,3,1\n", "1\tAlpha\n2\tBeta\n3\tGamma\n")

	snap, err := store.ReadSnapshot(context.Background(), dir, "run-1")
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	if len(snap.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(snap.Nodes))
	}
	if len(snap.Edges) != 3 {
		t.Errorf("edges = %d, want 3", len(snap.Edges))
	}
	if snap.Edges[2] != (models.WeightedEdge{From: 2, To: 3, Weight: 1}) {
		t.Errorf("edges[2] = %+v", snap.Edges[2])
	}
}

func TestReadSnapshot_MissingArtifact(t *testing.T) {
	dir := t.TempDir()

	_, err := store.ReadSnapshot(context.Background(), dir, "")
	if !errors.Is(err, models.ErrMissingArtifact) {
		t.Fatalf("err = %v, want ErrMissingArtifact", err)
	}
}

func TestSQLiteSink_Load(t *testing.T) {
	sink := openSQLite(t)
	ctx := context.Background()
	dir := writeSnapshot(t, "1,2,2\n2,1,2\n2,3,1\n", "1\tAlpha\n2\tBeta\n3\tGamma\n")

	stats, err := store.Load(ctx, sink, dir, "run-1", testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.Nodes != 3 || stats.Edges != 3 {
		t.Errorf("stats = %+v, want 3 nodes, 3 edges", stats)
	}

	var title string
	if err := sink.DB.QueryRowContext(ctx, "SELECT title FROM wiki_nodes WHERE id = ?", 2).Scan(&title); err != nil {
		t.Fatalf("query title: %v", err)
	}
	if title != "Beta" {
		t.Errorf("title = %q, want Beta", title)
	}

	var weight int
	if err := sink.DB.QueryRowContext(ctx,
		"SELECT weight FROM wiki_edges WHERE from_id = ? AND to_id = ?", 1, 2).Scan(&weight); err != nil {
		t.Fatalf("query edge: %v", err)
	}
	if weight != 2 {
		t.Errorf("weight = %d, want 2", weight)
	}
}

func TestSQLiteSink_ReplaceIsIdempotent(t *testing.T) {
	sink := openSQLite(t)
	ctx := context.Background()

	first := writeSnapshot(t, "1,2,1\n1,3,1\n", "1\tA\n2\tB\n3\tC\n")
	second := writeSnapshot(t, "1,2,2\n2,1,2\n", "1\tA\n2\tB\n")

	if _, err := store.Load(ctx, sink, first, "run-1", testLogger()); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	if _, err := store.Load(ctx, sink, second, "run-2", testLogger()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	// Reloading the same run overwrites its load record.
	if _, err := store.Load(ctx, sink, second, "run-2", testLogger()); err != nil {
		t.Fatalf("third Load: %v", err)
	}

	got, err := sink.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}

	want := store.Counts{Nodes: 2, Edges: 2, Loads: 2}
	if got != want {
		t.Errorf("Counts = %+v, want %+v", got, want)
	}
}

func TestSQLiteSink_ReplaceRollsBackOnFailure(t *testing.T) {
	sink := openSQLite(t)
	ctx := context.Background()

	ok := &store.Snapshot{
		RunID: "good",
		Nodes: []models.TitleEntry{{ID: 1, Title: "A"}},
		Edges: []models.WeightedEdge{{From: 1, To: 1, Weight: 1}},
	}
	if _, err := sink.Replace(ctx, ok); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	// Duplicate title violates the unique index.
	bad := &store.Snapshot{
		RunID: "bad",
		Nodes: []models.TitleEntry{{ID: 2, Title: "B"}, {ID: 3, Title: "B"}},
	}
	if _, err := sink.Replace(ctx, bad); err == nil {
		t.Fatal("Replace with duplicate titles succeeded")
	}

	got, err := sink.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}

	want := store.Counts{Nodes: 1, Edges: 1, Loads: 1}
	if got != want {
		t.Errorf("Counts after failed replace = %+v, want %+v", got, want)
	}
}

func TestPostgresSink_Load(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	sink, err := store.NewPostgresSink(ctx, dbURL, testLogger())
	if err != nil {
		t.Fatalf("NewPostgresSink: %v", err)
	}
	defer sink.Close()

	dir := writeSnapshot(t, "1,2,2\n2,1,2\n", "1\tAlpha\n2\tBeta\n")

	stats, err := store.Load(ctx, sink, dir, "pg-test", testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.Nodes != 2 || stats.Edges != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
