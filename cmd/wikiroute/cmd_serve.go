package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wikiroute/wikiroute/internal/api"
	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/config"
	"github.com/wikiroute/wikiroute/internal/export"
	"github.com/wikiroute/wikiroute/internal/models"
	"github.com/wikiroute/wikiroute/internal/pipeline"
	"github.com/wikiroute/wikiroute/internal/titles"
	"github.com/wikiroute/wikiroute/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var build bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve id/title lookups and neighbor queries over the built graph",
		Long: "serve loads top_id_title.tsv and graph.csv from the data directory and answers\n" +
			"read-only queries under /api/v1. With --build the server starts at once and the\n" +
			"pipeline runs in the background: /api/v1/ws clients watch its progress live,\n" +
			"health reports degraded until the new graph is swapped in.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), build)
		},
	}

	cmd.Flags().BoolVar(&build, "build", false, "run every pipeline stage in the background while serving")

	return cmd
}

func (a *app) serve(ctx context.Context, build bool) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return a.serveOn(ctx, ln, build)
}

// serveOn serves the API on ln until ctx is cancelled. It takes ownership of ln.
func (a *app) serveOn(ctx context.Context, ln net.Listener, build bool) error {
	lookups := api.NewLookups(nil, nil)

	if build {
		lookups.SetBuilding(true)
	} else if err := a.loadLookups(ctx, lookups); err != nil {
		ln.Close() //nolint:errcheck // nothing was served

		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.log)
	go hub.Run(gctx)

	srv := &http.Server{
		Handler: api.NewRouter(gctx, &api.RouterDeps{
			Log:         a.log,
			Hub:         hub,
			Lookups:     lookups,
			CORSOrigins: a.cfg.CORSOrigins,
			Version:     config.Version,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		a.log.WithField("addr", ln.Addr().String()).Info("listening")

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}

		return nil
	})

	if build {
		g.Go(func() error {
			return a.build(gctx, hub, lookups)
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		a.log.Info("shutting down")
		hub.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return nil
	})

	return g.Wait()
}

// build runs the whole pipeline with hub as its observer, then swaps the
// fresh artifacts into lookups. A build cut short by shutdown is not an error.
func (a *app) build(ctx context.Context, hub *ws.Hub, lookups *api.Lookups) error {
	defer lookups.SetBuilding(false)

	if a.buildGate != nil {
		if err := a.buildGate(ctx, hub); err != nil {
			return err
		}
	}

	runner := pipeline.New(a.cfg, a.log, hub)
	if err := runner.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("run %s: %w", runner.RunID(), err)
	}

	return a.loadLookups(ctx, lookups)
}

// loadLookups reads the title index and graph and publishes them together.
// A lookup whose artifact has not been built yet stays nil; the API then
// reports itself degraded instead of refusing to start.
func (a *app) loadLookups(ctx context.Context, lookups *api.Lookups) error {
	var (
		ix  api.TitleLookup
		adj api.GraphLookup
	)

	idx, err := titles.Load(ctx, a.cfg.Path(artifact.TopTitles))
	switch {
	case err == nil:
		ix = idx
		a.log.WithField("titles", idx.Len()).Info("title index loaded")
	case errors.Is(err, models.ErrMissingArtifact):
		a.log.WithError(err).Warn("title index not available")
	default:
		return err
	}

	graph, err := export.LoadAdjacency(ctx, a.cfg.Path(artifact.Graph))
	switch {
	case err == nil:
		adj = graph
		a.log.WithField("edges", graph.Len()).Info("graph loaded")
	case errors.Is(err, models.ErrMissingArtifact):
		a.log.WithError(err).Warn("graph not available")
	default:
		return err
	}

	lookups.Swap(ix, adj)

	return nil
}
