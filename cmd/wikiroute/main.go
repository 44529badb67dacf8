// Command wikiroute builds a weighted link graph of the most connected
// Wikipedia articles from the SQL dumps, and serves id/title lookups over it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wikiroute/wikiroute/internal/config"
	"github.com/wikiroute/wikiroute/internal/ws"
)

// app carries the resolved configuration and logger into subcommands.
type app struct {
	configPath string
	cfg        *config.Config
	log        *logrus.Logger

	// buildGate, when set, runs before `serve --build` starts the pipeline.
	buildGate func(ctx context.Context, hub *ws.Hub) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root, _ := newRoot()

	return root
}

// newRoot builds the command tree and returns the app state its commands share.
func newRoot() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "wikiroute",
		Short: "Build a weighted graph of the most connected Wikipedia articles",
		Long: "wikiroute parses the page, redirect and pagelinks SQL dumps, ranks articles by\n" +
			"harmonic in/out link degree, and exports the links among the top K as a\n" +
			"weighted edge list with an id/title index.",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate("wikiroute {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (env: "+config.ConfigEnv+")")
	pf.String("data-dir", "", "directory holding intermediate and final artifacts (env: DATA_DIR)")
	pf.String("page-dump", "", "page table dump, plain, .gz or .bz2 (env: PAGE_DUMP)")
	pf.String("link-dump", "", "pagelinks table dump (env: LINK_DUMP)")
	pf.String("redirect-dump", "", "optional redirect table dump (env: REDIRECT_DUMP)")
	pf.Int("top-k", 0, "number of nodes to retain (env: TOP_K)")
	pf.String("log-level", "", "trace|debug|info|warn|error (env: LOG_LEVEL)")
	pf.String("log-format", "", "text|json (env: LOG_FORMAT)")
	pf.String("metrics-file", "", "write a Prometheus textfile snapshot after batch commands (env: METRICS_FILE)")

	for _, name := range stageNames() {
		root.AddCommand(newStageCmd(a, name))
	}
	root.AddCommand(newRunCmd(a))
	root.AddCommand(newLoadCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newVersionCmd())

	return root, a
}

// setup resolves configuration as defaults < file < environment < flags.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = os.Getenv(config.ConfigEnv)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	a.cfg = cfg
	a.log = newLogger(cfg)

	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	strs := map[string]*string{
		"data-dir":      &cfg.DataDir,
		"page-dump":     &cfg.PageDump,
		"link-dump":     &cfg.LinkDump,
		"redirect-dump": &cfg.RedirectDump,
		"log-level":     &cfg.LogLevel,
		"log-format":    &cfg.LogFormat,
		"metrics-file":  &cfg.MetricsFile,
	}

	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}

		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if flags.Changed("top-k") {
		k, err := flags.GetInt("top-k")
		if err != nil {
			return err
		}
		cfg.TopK = k
	}

	return nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	// Validate has already rejected unknown levels.
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "wikiroute %s\n", config.Version)

			return nil
		},
	}
}
