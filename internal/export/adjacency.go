package export

import (
	"context"
	"slices"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/models"
)

// Adjacency answers neighbor queries over an exported graph. Outgoing edges
// come from the (from, to) ordered keys, incoming ones from a second slice
// keyed (to, from).
type Adjacency struct {
	*Graph
	rev   []uint64
	nodes int
}

// NewAdjacency indexes g for incoming-edge lookups.
func NewAdjacency(g *Graph) *Adjacency {
	rev := make([]uint64, len(g.keys))
	nodes := make(map[models.PageID]struct{})

	for i, k := range g.keys {
		e := models.EdgeFromKey(k)
		rev[i] = e.Reverse().Key()
		nodes[e.From] = struct{}{}
		nodes[e.To] = struct{}{}
	}
	slices.Sort(rev)

	return &Adjacency{Graph: g, rev: rev, nodes: len(nodes)}
}

// LoadAdjacency reads graph.csv. Weights are recomputed from the edge set,
// which is how they were produced.
func LoadAdjacency(ctx context.Context, path string) (*Adjacency, error) {
	if err := artifact.Require(path); err != nil {
		return nil, err
	}

	var keys []uint64

	err := artifact.ReadGraph(ctx, path, func(e models.WeightedEdge) error {
		keys = append(keys, models.LinkEdge{From: e.From, To: e.To}.Key())

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(keys)
	keys = slices.Compact(keys)

	return NewAdjacency(&Graph{keys: keys}), nil
}

// Nodes returns the number of distinct endpoints.
func (a *Adjacency) Nodes() int { return a.nodes }

// Out returns up to limit edges leaving id, ordered by destination.
func (a *Adjacency) Out(id models.PageID, limit int) []models.WeightedEdge {
	return a.span(a.keys, id, limit, false)
}

// In returns up to limit edges entering id, ordered by source.
func (a *Adjacency) In(id models.PageID, limit int) []models.WeightedEdge {
	return a.span(a.rev, id, limit, true)
}

// Degree returns the in and out degree of id in the exported graph.
func (a *Adjacency) Degree(id models.PageID) models.Degree {
	return models.Degree{
		In:  uint32(a.count(a.rev, id)),
		Out: uint32(a.count(a.keys, id)),
	}
}

// Reciprocal counts directed edges whose reverse is also present.
func (a *Adjacency) Reciprocal() int {
	n := 0
	for _, k := range a.keys {
		if a.Has(models.EdgeFromKey(k).Reverse()) {
			n++
		}
	}

	return n
}

func bounds(keys []uint64, id models.PageID) (int, int) {
	lo, _ := slices.BinarySearch(keys, uint64(id)<<32)
	hi, _ := slices.BinarySearch(keys, uint64(id+1)<<32)
	if id == ^models.PageID(0) {
		hi = len(keys)
	}

	return lo, hi
}

func (a *Adjacency) count(keys []uint64, id models.PageID) int {
	lo, hi := bounds(keys, id)

	return hi - lo
}

func (a *Adjacency) span(keys []uint64, id models.PageID, limit int, reversed bool) []models.WeightedEdge {
	lo, hi := bounds(keys, id)
	if limit > 0 && hi-lo > limit {
		hi = lo + limit
	}

	out := make([]models.WeightedEdge, 0, hi-lo)

	for _, k := range keys[lo:hi] {
		e := models.EdgeFromKey(k)
		if reversed {
			e = e.Reverse()
		}

		w := models.WeightOneWay
		if a.Has(e.Reverse()) {
			w = models.WeightReciprocal
		}

		out = append(out, models.WeightedEdge{From: e.From, To: e.To, Weight: w})
	}

	return out
}
