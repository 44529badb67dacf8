package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/config"
	"github.com/wikiroute/wikiroute/internal/models"
	"github.com/wikiroute/wikiroute/internal/pipeline"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

type recorder struct {
	mu     sync.Mutex
	events []models.StageEvent
}

func (r *recorder) Observe(ev models.StageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types(stage string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, ev := range r.events {
		if ev.Stage == stage && ev.Type != models.EventStageProgress {
			out = append(out, ev.Type)
		}
	}

	return out
}

const (
	pageDump = "INSERT INTO `page` VALUES (1,0,'A',0,0),(2,0,'B',0,0),(4,0,'Short'),(3,0,'B_old',1,0),(5,1,'Talk',0,0);\n"
	linkDump = "INSERT INTO `pagelinks` VALUES (1,0,3),(2,0,1);\n"
)

func setup(t *testing.T, withRedirectTable bool) *config.Config {
	t.Helper()

	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		return p
	}

	cfg := &config.Config{
		DataDir:       filepath.Join(dir, "data"),
		PageDump:      write("page.sql", pageDump),
		LinkDump:      write("pagelinks.sql", linkDump),
		TopK:          100,
		ProgressEvery: 1,
		QueueSize:     2,
	}

	if withRedirectTable {
		cfg.RedirectDump = write("redirect.sql", "INSERT INTO `redirect` VALUES (3,0,'B','','');\n")
	}

	return cfg
}

func readArtifact(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()

	data, err := os.ReadFile(cfg.Path(name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}

	return string(data)
}

func TestRun_ReciprocalScenario(t *testing.T) {
	cfg := setup(t, true)
	rec := &recorder{}
	r := pipeline.New(cfg, testLogger(), rec)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	checks := map[string]string{
		artifact.CanonicalTitles:    "1\tA\n2\tB\n",
		artifact.RedirectCandidates: "3\tB\n",
		artifact.RedirectMap:        "3\t2\n",
		artifact.RawLinks:           "1\t2\n2\t1\n",
		artifact.TopIDs:             "1\n2\n",
		artifact.Graph:              "1,2,2\n2,1,2\n",
		artifact.TopTitles:          "1\tA\n2\tB\n",
	}

	for name, want := range checks {
		if got := readArtifact(t, cfg, name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	m, err := artifact.LoadManifest(cfg.Path(artifact.Manifest))
	if err != nil {
		t.Fatal(err)
	}

	if m.RunID != r.RunID() || len(m.Stages) != len(pipeline.Stages) {
		t.Errorf("unexpected manifest: %+v", m)
	}

	if got := m.Stages[pipeline.StagePages].Counters["malformed"]; got != 1 {
		t.Errorf("pages malformed = %d, want 1", got)
	}

	if got := m.Stages[pipeline.StageRank].Counters["retained_bytes"]; got <= 0 {
		t.Errorf("rank retained_bytes = %d, want > 0", got)
	}

	for _, stage := range pipeline.Stages {
		got := rec.types(stage)
		if len(got) != 2 || got[0] != models.EventStageStarted || got[1] != models.EventStageCompleted {
			t.Errorf("stage %s events = %v", stage, got)
		}
	}
}

func TestRun_UnresolvedRedirectPassesThrough(t *testing.T) {
	// Without the redirect table the candidate targets its own title,
	// "B old", which is not a canonical title.
	cfg := setup(t, false)

	if err := pipeline.New(cfg, testLogger(), nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := readArtifact(t, cfg, artifact.RedirectMap); got != "" {
		t.Errorf("redirect map = %q, want empty", got)
	}

	if got, want := readArtifact(t, cfg, artifact.RawLinks), "1\t3\n2\t1\n"; got != want {
		t.Errorf("raw links = %q, want %q", got, want)
	}

	if got, want := readArtifact(t, cfg, artifact.Graph), "1,3,1\n2,1,1\n"; got != want {
		t.Errorf("graph = %q, want %q", got, want)
	}

	// Node 3 is retained but has no canonical title.
	if got, want := readArtifact(t, cfg, artifact.TopTitles), "1\tA\n2\tB\n"; got != want {
		t.Errorf("top titles = %q, want %q", got, want)
	}
}

func TestStage_MissingArtifactIsFatal(t *testing.T) {
	cfg := setup(t, false)
	rec := &recorder{}
	r := pipeline.New(cfg, testLogger(), rec)

	for _, stage := range []string{pipeline.StageLinks, pipeline.StageRank, pipeline.StageExport, pipeline.StageTitles} {
		err := r.Stage(context.Background(), stage)
		if !errors.Is(err, models.ErrMissingArtifact) {
			t.Errorf("%s: expected ErrMissingArtifact, got %v", stage, err)
		}

		if got := rec.types(stage); len(got) != 2 || got[1] != models.EventStageFailed {
			t.Errorf("%s events = %v", stage, got)
		}
	}

	entries, err := os.ReadDir(cfg.DataDir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 0 {
		t.Errorf("failed stages left %d files behind", len(entries))
	}
}

func TestStage_Rerun(t *testing.T) {
	cfg := setup(t, true)
	r := pipeline.New(cfg, testLogger(), nil)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	first := readArtifact(t, cfg, artifact.Graph)

	for _, stage := range []string{pipeline.StageRank, pipeline.StageExport} {
		if err := r.Stage(context.Background(), stage); err != nil {
			t.Fatalf("rerun %s: %v", stage, err)
		}
	}

	if again := readArtifact(t, cfg, artifact.Graph); again != first {
		t.Errorf("rerun changed graph: %q then %q", first, again)
	}
}

func TestStage_Unknown(t *testing.T) {
	if err := pipeline.New(setup(t, false), testLogger(), nil).Stage(context.Background(), "bogus"); err == nil {
		t.Error("expected error for unknown stage")
	}
}
