package titles_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/models"
	"github.com/wikiroute/wikiroute/internal/rank"
	"github.com/wikiroute/wikiroute/internal/titles"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func TestBuilder_FirstWriteWins(t *testing.T) {
	b := titles.NewBuilder()
	b.Add(models.TitleEntry{ID: 1, Title: "A"})
	b.Add(models.TitleEntry{ID: 1, Title: "Other"})
	b.Add(models.TitleEntry{ID: 2, Title: "A"})
	b.Add(models.TitleEntry{ID: 3, Title: "C"})

	ix := b.Build()

	if title, _ := ix.Title(1); title != "A" {
		t.Errorf("Title(1) = %q", title)
	}

	if id, _ := ix.ID("A"); id != 1 {
		t.Errorf("ID(A) = %d", id)
	}

	if _, ok := ix.Title(2); ok {
		t.Error("id 2 lost the title collision and must be absent")
	}

	if ix.Len() != 2 || b.Duplicates() != 2 {
		t.Errorf("Len = %d, Duplicates = %d", ix.Len(), b.Duplicates())
	}
}

func TestIndex_Prefix(t *testing.T) {
	b := titles.NewBuilder()
	for _, e := range []models.TitleEntry{
		{ID: 5, Title: "Paris"},
		{ID: 2, Title: "Paris Hilton"},
		{ID: 9, Title: "parish"},
		{ID: 3, Title: "Berlin"},
		{ID: 4, Title: "Pa"},
	} {
		b.Add(e)
	}
	ix := b.Build()

	tests := []struct {
		prefix string
		limit  int
		want   []models.PageID
	}{
		{prefix: "par", limit: 10, want: []models.PageID{5, 2, 9}},
		{prefix: "PARIS", limit: 2, want: []models.PageID{5, 2}},
		{prefix: "", limit: 2, want: []models.PageID{3, 4}},
		{prefix: "zzz", limit: 10, want: nil},
		{prefix: "par", limit: 0, want: nil},
	}

	for _, tt := range tests {
		var got []models.PageID
		for _, e := range ix.Prefix(tt.prefix, tt.limit) {
			got = append(got, e.ID)
		}

		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Prefix(%q, %d) = %v, want %v", tt.prefix, tt.limit, got, tt.want)
		}
	}
}

func TestBuildAndLoad(t *testing.T) {
	dir := t.TempDir()
	canonical := filepath.Join(dir, artifact.CanonicalTitles)
	out := filepath.Join(dir, artifact.TopTitles)

	if err := os.WriteFile(canonical, []byte("1\tA\n2\tB\n5\tE\nbroken\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	retained := rank.NewRetainedSet([]models.PageID{2, 1, 42})

	ix, st, err := titles.Build(context.Background(), canonical, retained, retained.Len(), out, testLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if ix.Len() != 2 || st.Matched != 2 || st.Missing != 1 || st.Skipped != 1 {
		t.Errorf("unexpected result: len %d, stats %+v", ix.Len(), st)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	if want := "1\tA\n2\tB\n"; string(data) != want {
		t.Errorf("top titles = %q, want %q", data, want)
	}

	loaded, err := titles.Load(context.Background(), out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(loaded.Entries(), ix.Entries()) {
		t.Errorf("loaded %+v, built %+v", loaded.Entries(), ix.Entries())
	}
}

func TestBuild_MissingInput(t *testing.T) {
	dir := t.TempDir()
	retained := rank.NewRetainedSet([]models.PageID{1})

	_, _, err := titles.Build(context.Background(), filepath.Join(dir, artifact.CanonicalTitles),
		retained, retained.Len(), filepath.Join(dir, artifact.TopTitles), testLogger())
	if !errors.Is(err, models.ErrMissingArtifact) {
		t.Fatalf("expected ErrMissingArtifact, got %v", err)
	}
}
