package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // register the pure-Go sqlite driver

	"github.com/wikiroute/wikiroute/internal/db"
	"github.com/wikiroute/wikiroute/internal/db/migrations"
)

// SQLiteSink loads the graph into a single SQLite file.
type SQLiteSink struct {
	DB  *sql.DB
	Log *logrus.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string, log *logrus.Logger) (*SQLiteSink, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One writer; pragmas below are per connection.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			sqlDB.Close()

			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := db.RunSQLiteMigrations(ctx, sqlDB, log, migrations.SQLite()); err != nil {
		sqlDB.Close()

		return nil, err
	}

	return &SQLiteSink{DB: sqlDB, Log: log}, nil
}

// Replace deletes the stored graph and inserts snap in one transaction.
func (s *SQLiteSink) Replace(ctx context.Context, snap *Snapshot) (LoadStats, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	start := time.Now()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return LoadStats{}, fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // best-effort rollback after commit.

	for _, stmt := range []string{"DELETE FROM wiki_edges", "DELETE FROM wiki_nodes"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return LoadStats{}, fmt.Errorf("clearing graph: %w", err)
		}
	}

	var stats LoadStats

	nodeStmt, err := tx.PrepareContext(ctx, "INSERT INTO wiki_nodes (id, title) VALUES (?, ?)")
	if err != nil {
		return LoadStats{}, fmt.Errorf("preparing node insert: %w", err)
	}
	defer nodeStmt.Close()

	for _, n := range snap.Nodes {
		if _, err := nodeStmt.ExecContext(ctx, int64(n.ID), n.Title); err != nil {
			return LoadStats{}, fmt.Errorf("inserting node %d: %w", n.ID, err)
		}
		stats.Nodes++
	}

	edgeStmt, err := tx.PrepareContext(ctx, "INSERT INTO wiki_edges (from_id, to_id, weight) VALUES (?, ?, ?)")
	if err != nil {
		return LoadStats{}, fmt.Errorf("preparing edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, e := range snap.Edges {
		if _, err := edgeStmt.ExecContext(ctx, int64(e.From), int64(e.To), int64(e.Weight)); err != nil {
			return LoadStats{}, fmt.Errorf("inserting edge %d->%d: %w", e.From, e.To, err)
		}
		stats.Edges++
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wiki_loads (run_id, nodes, edges) VALUES (?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE
		SET nodes = excluded.nodes, edges = excluded.edges,
		    loaded_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		loadID(snap), stats.Nodes, stats.Edges)
	if err != nil {
		return LoadStats{}, fmt.Errorf("recording load: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return LoadStats{}, fmt.Errorf("committing load: %w", err)
	}

	stats.Duration = time.Since(start)

	return stats, nil
}

// Counts returns the stored row counts.
func (s *SQLiteSink) Counts(ctx context.Context) (Counts, error) {
	var c Counts

	err := s.DB.QueryRowContext(ctx, `
		SELECT (SELECT count(*) FROM wiki_nodes),
		       (SELECT count(*) FROM wiki_edges),
		       (SELECT count(*) FROM wiki_loads)`).Scan(&c.Nodes, &c.Edges, &c.Loads)
	if err != nil {
		return Counts{}, fmt.Errorf("counting rows: %w", err)
	}

	return c, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.DB.Close()
}

var _ Sink = (*SQLiteSink)(nil)
