// Package pipeline runs the graph build as a sequence of stages. Each stage
// reads the artifacts of the previous ones from the data directory, so any
// stage can be rerun on its own and a later stage never starts on inputs
// that are incomplete.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/config"
	"github.com/wikiroute/wikiroute/internal/metrics"
	"github.com/wikiroute/wikiroute/internal/models"
)

// Stage names, in execution order.
const (
	StagePages  = "pages"
	StageLinks  = "links"
	StageRank   = "rank"
	StageExport = "export"
	StageTitles = "titles"
)

// Stages lists every stage in execution order.
var Stages = []string{StagePages, StageLinks, StageRank, StageExport, StageTitles}

// Observer receives stage events. Implementations must not block.
type Observer interface {
	Observe(models.StageEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(models.StageEvent)

// Observe implements Observer.
func (f ObserverFunc) Observe(ev models.StageEvent) { f(ev) }

type nopObserver struct{}

func (nopObserver) Observe(models.StageEvent) {}

// result is what a stage reports on success.
type result struct {
	counters map[string]int64
	outputs  []string
}

// Runner executes stages against one data directory.
type Runner struct {
	cfg      *config.Config
	log      *logrus.Logger
	observer Observer
	runID    string
}

// New creates a Runner. observer may be nil.
func New(cfg *config.Config, log *logrus.Logger, observer Observer) *Runner {
	if observer == nil {
		observer = nopObserver{}
	}

	return &Runner{
		cfg:      cfg,
		log:      log,
		observer: observer,
		runID:    uuid.New().String(),
	}
}

// RunID identifies this Runner's invocation in the manifest and events.
func (r *Runner) RunID() string { return r.runID }

// Run executes every stage in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context) error {
	for _, name := range Stages {
		if err := r.Stage(ctx, name); err != nil {
			return err
		}
	}

	return nil
}

// Stage executes a single stage by name.
func (r *Runner) Stage(ctx context.Context, name string) error {
	var fn func(context.Context) (result, error)

	switch name {
	case StagePages:
		fn = r.pages
	case StageLinks:
		fn = r.links
	case StageRank:
		fn = r.rank
	case StageExport:
		fn = r.export
	case StageTitles:
		fn = r.titles
	default:
		return fmt.Errorf("unknown stage %q", name)
	}

	return r.run(ctx, name, fn)
}

func (r *Runner) run(ctx context.Context, name string, fn func(context.Context) (result, error)) error {
	log := r.log.WithFields(logrus.Fields{"stage": name, "run_id": r.runID})
	log.Info("stage started")

	started := time.Now()
	r.emit(models.StageEvent{Type: models.EventStageStarted, Stage: name})

	if err := os.MkdirAll(r.cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("stage %s: creating data directory: %w", name, err)
	}

	res, err := fn(ctx)
	elapsed := time.Since(started)
	metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		metrics.StageRunsTotal.WithLabelValues(name, "failure").Inc()
		log.WithError(err).WithFields(counterFields(res.counters)).Error("stage failed")
		r.emit(models.StageEvent{Type: models.EventStageFailed, Stage: name, Counters: res.counters, Error: err.Error()})

		return fmt.Errorf("stage %s: %w", name, err)
	}

	if err := r.record(name, started, elapsed, res); err != nil {
		metrics.StageRunsTotal.WithLabelValues(name, "failure").Inc()

		return fmt.Errorf("stage %s: %w", name, err)
	}

	metrics.StageRunsTotal.WithLabelValues(name, "success").Inc()
	log.WithFields(counterFields(res.counters)).WithField("duration", elapsed.String()).Info("stage completed")
	r.emit(models.StageEvent{Type: models.EventStageCompleted, Stage: name, Counters: res.counters})

	return nil
}

func (r *Runner) record(name string, started time.Time, elapsed time.Duration, res result) error {
	path := r.cfg.Path(artifact.Manifest)

	m, err := artifact.LoadManifest(path)
	if err != nil {
		return err
	}

	outputs := make([]string, len(res.outputs))
	for i, o := range res.outputs {
		outputs[i] = filepath.Base(o)
	}

	m.RunID = r.runID
	m.Version = config.Version
	m.Stages[name] = artifact.StageRecord{
		StartedAt:   started.UTC(),
		CompletedAt: started.Add(elapsed).UTC(),
		Duration:    elapsed.String(),
		Counters:    res.counters,
		Outputs:     outputs,
	}

	return m.Save(path)
}

func (r *Runner) emit(ev models.StageEvent) {
	ev.RunID = r.runID
	ev.Time = time.Now()
	r.observer.Observe(ev)
}

func (r *Runner) progress(stage string, counters map[string]int64, fraction float64) {
	r.emit(models.StageEvent{Type: models.EventStageProgress, Stage: stage, Counters: counters, Fraction: fraction})
}

func counterFields(counters map[string]int64) logrus.Fields {
	fields := make(logrus.Fields, len(counters))
	for k, v := range counters {
		fields[k] = v
	}

	return fields
}
