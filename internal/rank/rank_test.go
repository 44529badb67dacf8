package rank_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/models"
	"github.com/wikiroute/wikiroute/internal/rank"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

type sliceSource []models.LinkEdge

func (s sliceSource) Each(_ context.Context, fn func(models.LinkEdge) error) error {
	for _, e := range s {
		if err := fn(e); err != nil {
			return err
		}
	}

	return nil
}

func edges(pairs ...[2]models.PageID) sliceSource {
	out := make(sliceSource, len(pairs))
	for i, p := range pairs {
		out[i] = models.LinkEdge{From: p[0], To: p[1]}
	}

	return out
}

func TestCountDegrees_CountsRepeats(t *testing.T) {
	src := edges([2]models.PageID{1, 2}, [2]models.PageID{1, 2}, [2]models.PageID{2, 1}, [2]models.PageID{3, 1})

	d, err := rank.CountDegrees(context.Background(), src, testLogger(), 1)
	if err != nil {
		t.Fatalf("CountDegrees: %v", err)
	}

	tests := []struct {
		id   models.PageID
		want models.Degree
	}{
		{1, models.Degree{In: 2, Out: 2}},
		{2, models.Degree{In: 2, Out: 1}},
		{3, models.Degree{In: 0, Out: 1}},
	}

	for _, tt := range tests {
		if got, _ := d.Get(tt.id); got != tt.want {
			t.Errorf("degree(%d) = %+v, want %+v", tt.id, got, tt.want)
		}
	}

	if d.Len() != 3 || d.Edges() != 4 {
		t.Errorf("Len = %d, Edges = %d", d.Len(), d.Edges())
	}
}

func TestCountDegrees_SelfLoop(t *testing.T) {
	src := edges([2]models.PageID{7, 7}, [2]models.PageID{7, 7}, [2]models.PageID{7, 8})

	d, err := rank.CountDegrees(context.Background(), src, testLogger(), 0)
	if err != nil {
		t.Fatalf("CountDegrees: %v", err)
	}

	// Each self-loop counts once as outgoing and once as incoming.
	if got, want := mustGet(t, d, 7), (models.Degree{In: 2, Out: 3}); got != want {
		t.Errorf("degree(7) = %+v, want %+v", got, want)
	}

	if got, want := mustGet(t, d, 8), (models.Degree{In: 1}); got != want {
		t.Errorf("degree(8) = %+v, want %+v", got, want)
	}
}

func mustGet(t *testing.T, d *rank.Degrees, id models.PageID) models.Degree {
	t.Helper()

	got, ok := d.Get(id)
	if !ok {
		t.Fatalf("no degree recorded for %d", id)
	}

	return got
}

func TestBetter(t *testing.T) {
	tests := []struct {
		name string
		a, b models.NodeDegree
		want bool
	}{
		{
			name: "higher score wins",
			a:    models.NodeDegree{ID: 9, Degree: models.Degree{In: 10, Out: 10}},
			b:    models.NodeDegree{ID: 1, Degree: models.Degree{In: 100, Out: 1}},
			want: true,
		},
		{
			name: "equal score breaks by ascending id",
			a:    models.NodeDegree{ID: 1, Degree: models.Degree{In: 2, Out: 2}},
			b:    models.NodeDegree{ID: 2, Degree: models.Degree{In: 2, Out: 2}},
			want: true,
		},
		{
			name: "equal score from different degrees",
			a:    models.NodeDegree{ID: 5, Degree: models.Degree{In: 3, Out: 6}},
			b:    models.NodeDegree{ID: 4, Degree: models.Degree{In: 6, Out: 3}},
			want: false,
		},
		{
			name: "large degrees compare exactly",
			a:    models.NodeDegree{ID: 2, Degree: models.Degree{In: 4294967295, Out: 4294967294}},
			b:    models.NodeDegree{ID: 1, Degree: models.Degree{In: 4294967294, Out: 4294967294}},
			want: true,
		},
		{
			name: "zero score ranks below positive",
			a:    models.NodeDegree{ID: 1, Degree: models.Degree{In: 50, Out: 0}},
			b:    models.NodeDegree{ID: 2, Degree: models.Degree{In: 1, Out: 1}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rank.Better(tt.a, tt.b); got != tt.want {
				t.Errorf("Better = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopK(t *testing.T) {
	d := rank.NewDegrees()
	for _, e := range edges(
		[2]models.PageID{1, 2}, [2]models.PageID{2, 1},
		[2]models.PageID{3, 4}, [2]models.PageID{4, 3},
		[2]models.PageID{1, 3}, [2]models.PageID{3, 1},
		[2]models.PageID{5, 1},
	) {
		d.Add(e)
	}

	// Degrees: 1 in3/out2 -> 2.4, 3 in2/out2 -> 2, 2,4 in1/out1 -> 1, 5 out1 -> 0.
	tests := []struct {
		k    int
		want []models.PageID
	}{
		{k: 1, want: []models.PageID{1}},
		{k: 3, want: []models.PageID{1, 3, 2}},
		{k: 4, want: []models.PageID{1, 3, 2, 4}},
		{k: 10, want: []models.PageID{1, 3, 2, 4, 5}},
		{k: 0, want: nil},
	}

	for _, tt := range tests {
		got := rank.TopK(d, tt.k)

		var ids []models.PageID
		for _, n := range got {
			ids = append(ids, n.ID)
		}

		if !reflect.DeepEqual(ids, tt.want) {
			t.Errorf("TopK(%d) = %v, want %v", tt.k, ids, tt.want)
		}
	}

	top := rank.TopK(d, 1)
	if top[0].In != 3 || top[0].Out != 2 || top[0].Score != 2.4 {
		t.Errorf("unexpected top node: %+v", top[0])
	}
}

func TestTopK_CardinalityIsMinOfKAndEligible(t *testing.T) {
	d := rank.NewDegrees()
	for i := models.PageID(1); i <= 50; i++ {
		d.Add(models.LinkEdge{From: i, To: i + 1000})
	}

	eligible := rank.Eligible(d)
	if eligible != 100 {
		t.Fatalf("Eligible = %d, want 100", eligible)
	}

	for _, k := range []int{1, 99, 100, 101, 1000} {
		if got := len(rank.TopK(d, k)); got != min(k, eligible) {
			t.Errorf("len(TopK(%d)) = %d, want %d", k, got, min(k, eligible))
		}
	}
}

func TestTopK_MatchesFullSort(t *testing.T) {
	d := rank.NewDegrees()

	// Deterministic pseudo-random graph with many score ties.
	x := uint32(7)
	for range 5000 {
		x = x*1103515245 + 12345
		from := models.PageID(x % 300)
		x = x*1103515245 + 12345
		to := models.PageID(x % 300)
		d.Add(models.LinkEdge{From: from, To: to})
	}

	full := rank.TopK(d, d.Len())
	for _, k := range []int{1, 17, 150} {
		got := rank.TopK(d, k)
		if !reflect.DeepEqual(got, full[:k]) {
			t.Errorf("TopK(%d) is not a prefix of the full ranking", k)
		}
	}
}

func TestRetainedSet(t *testing.T) {
	s := rank.NewRetainedSet([]models.PageID{30, 10, 30, 20})

	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}

	if !reflect.DeepEqual(s.IDs(), []models.PageID{30, 10, 20}) {
		t.Errorf("IDs = %v", s.IDs())
	}

	if !s.Contains(10) || s.Contains(11) {
		t.Error("unexpected membership")
	}

	if empty := rank.NewRetainedSet(nil); s.SizeInBytes() <= empty.SizeInBytes() {
		t.Errorf("SizeInBytes = %d, want more than empty set's %d", s.SizeInBytes(), empty.SizeInBytes())
	}
}

func TestRetainedSet_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	idsPath := filepath.Join(dir, artifact.TopIDs)
	scoresPath := filepath.Join(dir, artifact.TopScores)

	s := rank.NewRetainedSetFromScores([]models.NodeScore{
		{ID: 7, In: 3, Out: 2, Score: 2.4},
		{ID: 3, In: 1, Out: 1, Score: 1},
	})

	if err := s.Save(idsPath, scoresPath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	scores, err := os.ReadFile(scoresPath)
	if err != nil {
		t.Fatal(err)
	}

	if want := "7\t3\t2\t2.400000\n3\t1\t1\t1.000000\n"; string(scores) != want {
		t.Errorf("scores = %q, want %q", scores, want)
	}

	loaded, err := rank.LoadRetainedSet(context.Background(), idsPath)
	if err != nil {
		t.Fatalf("LoadRetainedSet: %v", err)
	}

	if !reflect.DeepEqual(loaded.IDs(), []models.PageID{7, 3}) {
		t.Errorf("loaded IDs = %v", loaded.IDs())
	}
}
