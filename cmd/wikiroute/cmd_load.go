package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/store"
)

func newLoadCmd(a *app) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Bulk-load graph.csv and top_id_title.tsv into PostgreSQL or SQLite",
		Long: "load replaces the wiki_nodes and wiki_edges tables with the current export in a\n" +
			"single transaction. The schema is migrated first.\n\n" +
			"  --target postgres uses DATABASE_URL\n" +
			"  --target sqlite   uses SQLITE_PATH",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			sink, err := a.openSink(cmd, target)
			if err != nil {
				return err
			}
			defer sink.Close()

			manifest, err := artifact.LoadManifest(a.cfg.Path(artifact.Manifest))
			if err != nil {
				return err
			}

			stats, err := store.Load(ctx, sink, a.cfg.DataDir, manifest.RunID, a.log)
			if err != nil {
				return fmt.Errorf("load %s: %w", target, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d nodes and %d edges into %s in %s\n",
				stats.Nodes, stats.Edges, target, stats.Duration)

			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "sqlite", "postgres|sqlite")

	return cmd
}

func (a *app) openSink(cmd *cobra.Command, target string) (store.Sink, error) {
	switch target {
	case "postgres":
		if a.cfg.DatabaseURL.Value() == "" {
			return nil, errors.New("DATABASE_URL is required for --target postgres")
		}

		return store.NewPostgresSink(cmd.Context(), a.cfg.DatabaseURL.Value(), a.log)
	case "sqlite":
		path := a.cfg.SQLitePath
		if path == "" {
			path = a.cfg.Path("graph.db")
		}

		return store.OpenSQLite(cmd.Context(), path, a.log)
	default:
		return nil, fmt.Errorf("unknown --target %q (want postgres or sqlite)", target)
	}
}
