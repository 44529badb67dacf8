package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wikiroute/wikiroute/internal/metrics"
	"github.com/wikiroute/wikiroute/internal/pipeline"
)

var stageShort = map[string]string{
	pipeline.StagePages:  "Extract canonical titles and redirect candidates from the page dump",
	pipeline.StageLinks:  "Resolve redirects and extract namespace-0 links from the pagelinks dump",
	pipeline.StageRank:   "Count degrees and retain the top K nodes by harmonic score",
	pipeline.StageExport: "Write the deduplicated, weighted edges among retained nodes",
	pipeline.StageTitles: "Write the id/title index of retained nodes",
}

func stageNames() []string {
	return pipeline.Stages
}

func newStageCmd(a *app, name string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: stageShort[name],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStages(cmd, name)
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every stage in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStages(cmd, pipeline.Stages...)
		},
	}
}

func (a *app) runStages(cmd *cobra.Command, names ...string) error {
	runner := pipeline.New(a.cfg, a.log, nil)

	var runErr error
	for _, name := range names {
		if runErr = runner.Stage(cmd.Context(), name); runErr != nil {
			break
		}
	}

	// The snapshot is written on failure too; it carries the counters that
	// explain it.
	if a.cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.log.WithError(err).Warn("writing metrics textfile")
		}
	}

	if runErr != nil {
		return fmt.Errorf("run %s: %w", runner.RunID(), runErr)
	}

	return nil
}
