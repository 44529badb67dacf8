package export_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/wikiroute/wikiroute/internal/export"
	"github.com/wikiroute/wikiroute/internal/models"
)

func TestAdjacency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.csv")
	if err := os.WriteFile(path, []byte("1,2,2\n1,3,1\n2,1,2\n3,2,1\n4294967295,1,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	adj, err := export.LoadAdjacency(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadAdjacency: %v", err)
	}

	if adj.Len() != 5 {
		t.Errorf("Len = %d, want 5", adj.Len())
	}
	if adj.Nodes() != 4 {
		t.Errorf("Nodes = %d, want 4", adj.Nodes())
	}
	if adj.Reciprocal() != 2 {
		t.Errorf("Reciprocal = %d, want 2", adj.Reciprocal())
	}

	wantOut := []models.WeightedEdge{{From: 1, To: 2, Weight: 2}, {From: 1, To: 3, Weight: 1}}
	if got := adj.Out(1, 0); !slices.Equal(got, wantOut) {
		t.Errorf("Out(1) = %v, want %v", got, wantOut)
	}

	wantIn := []models.WeightedEdge{{From: 2, To: 1, Weight: 2}, {From: 4294967295, To: 1, Weight: 1}}
	if got := adj.In(1, 0); !slices.Equal(got, wantIn) {
		t.Errorf("In(1) = %v, want %v", got, wantIn)
	}

	if got := adj.Out(1, 1); len(got) != 1 {
		t.Errorf("Out(1, limit 1) returned %d edges", len(got))
	}
	if got := adj.Out(4294967295, 0); len(got) != 1 {
		t.Errorf("Out(max id) returned %d edges, want 1", len(got))
	}
	if got := adj.Out(9, 0); len(got) != 0 {
		t.Errorf("Out(9) = %v, want empty", got)
	}

	if d := adj.Degree(2); d.In != 2 || d.Out != 1 {
		t.Errorf("Degree(2) = %+v, want in 2 out 1", d)
	}
}
