package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/db"
	"github.com/wikiroute/wikiroute/internal/db/migrations"
	"github.com/wikiroute/wikiroute/internal/dbpool"
)

// PostgresSink loads the graph with COPY.
type PostgresSink struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// NewPostgresSink connects to databaseURL and applies pending migrations.
func NewPostgresSink(ctx context.Context, databaseURL string, log *logrus.Logger) (*PostgresSink, error) {
	pool, err := dbpool.NewPool(ctx, databaseURL, dbpool.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := db.RunMigrations(ctx, pool, log, migrations.Postgres()); err != nil {
		pool.Close()

		return nil, err
	}

	return &PostgresSink{Pool: pool, Log: log}, nil
}

// Replace truncates the graph tables and copies snap into them in one transaction.
func (s *PostgresSink) Replace(ctx context.Context, snap *Snapshot) (LoadStats, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	start := time.Now()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return LoadStats{}, fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if _, err := tx.Exec(ctx, "TRUNCATE wiki_edges, wiki_nodes"); err != nil {
		return LoadStats{}, fmt.Errorf("truncating graph: %w", err)
	}

	nodes, err := tx.CopyFrom(ctx,
		pgx.Identifier{"wiki_nodes"},
		[]string{"id", "title"},
		pgx.CopyFromSlice(len(snap.Nodes), func(i int) ([]any, error) {
			n := snap.Nodes[i]

			return []any{int64(n.ID), n.Title}, nil
		}),
	)
	if err != nil {
		return LoadStats{}, fmt.Errorf("copying nodes: %w", err)
	}

	edges, err := tx.CopyFrom(ctx,
		pgx.Identifier{"wiki_edges"},
		[]string{"from_id", "to_id", "weight"},
		pgx.CopyFromSlice(len(snap.Edges), func(i int) ([]any, error) {
			e := snap.Edges[i]

			return []any{int64(e.From), int64(e.To), int16(e.Weight)}, nil
		}),
	)
	if err != nil {
		return LoadStats{}, fmt.Errorf("copying edges: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO wiki_loads (run_id, nodes, edges) VALUES ($1, $2, $3)
		ON CONFLICT (run_id) DO UPDATE
		SET nodes = EXCLUDED.nodes, edges = EXCLUDED.edges, loaded_at = now()`,
		loadID(snap), nodes, edges)
	if err != nil {
		return LoadStats{}, fmt.Errorf("recording load: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return LoadStats{}, fmt.Errorf("committing load: %w", err)
	}

	return LoadStats{Nodes: nodes, Edges: edges, Duration: time.Since(start)}, nil
}

// Counts returns the stored row counts.
func (s *PostgresSink) Counts(ctx context.Context) (Counts, error) {
	var c Counts

	err := s.Pool.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM wiki_nodes),
		       (SELECT count(*) FROM wiki_edges),
		       (SELECT count(*) FROM wiki_loads)`).Scan(&c.Nodes, &c.Edges, &c.Loads)
	if err != nil {
		return Counts{}, fmt.Errorf("counting rows: %w", err)
	}

	return c, nil
}

// Close releases the pool.
func (s *PostgresSink) Close() error {
	s.Pool.Close()

	return nil
}

func loadID(snap *Snapshot) string {
	if snap.RunID == "" {
		return "unknown"
	}

	return snap.RunID
}

var _ Sink = (*PostgresSink)(nil)

