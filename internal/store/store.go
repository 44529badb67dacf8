// Package store bulk-loads an exported graph and its title index into a
// relational database so other engines can query it.
//
// Two sinks share the Sink interface: PostgreSQL (pgx COPY through dbpool) and
// SQLite (modernc.org/sqlite, no cgo). Both replace the previous contents in a
// single transaction, so readers see either the old graph or the new one.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/models"
)

const defaultLoadTimeout = 30 * time.Minute

// Snapshot is one exported graph ready for loading.
type Snapshot struct {
	RunID string
	Nodes []models.TitleEntry
	Edges []models.WeightedEdge
}

// LoadStats reports what a sink wrote.
type LoadStats struct {
	Nodes    int64         `json:"nodes"`
	Edges    int64         `json:"edges"`
	Duration time.Duration `json:"duration"`
}

// Counts are the row counts currently held by a sink.
type Counts struct {
	Nodes int64 `json:"nodes"`
	Edges int64 `json:"edges"`
	Loads int64 `json:"loads"`
}

// Sink is a database the graph can be loaded into.
type Sink interface {
	// Replace swaps the stored graph for snap atomically.
	Replace(ctx context.Context, snap *Snapshot) (LoadStats, error)
	// Counts returns the stored row counts.
	Counts(ctx context.Context) (Counts, error)
	Close() error
}

// withTimeout bounds a whole load.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultLoadTimeout)
}

// ReadSnapshot reads graph.csv and top_id_title.tsv from dir concurrently.
// Both must exist.
func ReadSnapshot(ctx context.Context, dir, runID string) (*Snapshot, error) {
	graphPath := filepath.Join(dir, artifact.Graph)
	titlesPath := filepath.Join(dir, artifact.TopTitles)

	if err := artifact.Require(graphPath, titlesPath); err != nil {
		return nil, err
	}

	snap := &Snapshot{RunID: runID}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return artifact.ReadGraph(gctx, graphPath, func(e models.WeightedEdge) error {
			snap.Edges = append(snap.Edges, e)

			return nil
		})
	})

	g.Go(func() error {
		_, err := artifact.ReadTitles(gctx, titlesPath, func(e models.TitleEntry) error {
			snap.Nodes = append(snap.Nodes, e)

			return nil
		})

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	return snap, nil
}

// Load reads the snapshot in dir and replaces the sink's contents with it,
// then verifies the stored counts match what was written.
func Load(ctx context.Context, sink Sink, dir, runID string, log *logrus.Logger) (LoadStats, error) {
	snap, err := ReadSnapshot(ctx, dir, runID)
	if err != nil {
		return LoadStats{}, err
	}

	log.WithFields(logrus.Fields{
		"run_id": runID,
		"nodes":  len(snap.Nodes),
		"edges":  len(snap.Edges),
	}).Info("loading graph")

	stats, err := sink.Replace(ctx, snap)
	if err != nil {
		return stats, err
	}

	got, err := sink.Counts(ctx)
	if err != nil {
		return stats, fmt.Errorf("verifying load: %w", err)
	}

	if got.Nodes != stats.Nodes || got.Edges != stats.Edges {
		return stats, fmt.Errorf("verifying load: stored %d nodes/%d edges, wrote %d/%d",
			got.Nodes, got.Edges, stats.Nodes, stats.Edges)
	}

	log.WithFields(logrus.Fields{
		"nodes":    stats.Nodes,
		"edges":    stats.Edges,
		"duration": stats.Duration,
	}).Info("graph loaded")

	return stats, nil
}
