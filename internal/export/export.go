// Package export builds the final weighted graph restricted to the retained
// node set.
package export

import (
	"context"
	"iter"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/links"
	"github.com/wikiroute/wikiroute/internal/models"
)

// maxSamples caps the unmatched destination ids kept for diagnostics.
const maxSamples = 10

// Membership reports whether a node was retained.
type Membership interface {
	Contains(models.PageID) bool
}

// Stats counts what the export pass saw.
type Stats struct {
	Scanned    int64           `json:"scanned"`
	Skipped    int64           `json:"skipped"`
	Unique     int64           `json:"unique"`
	Reciprocal int64           `json:"reciprocal"`
	Samples    []models.PageID `json:"unmatched_samples,omitempty"`
}

// Counters flattens the stats for the run manifest.
func (s Stats) Counters() map[string]int64 {
	return map[string]int64{
		"scanned":    s.Scanned,
		"skipped":    s.Skipped,
		"unique":     s.Unique,
		"reciprocal": s.Reciprocal,
	}
}

// Graph is the deduplicated edge set between retained nodes, ordered by
// (from, to).
type Graph struct {
	keys []uint64
}

// Len returns the number of distinct directed edges.
func (g *Graph) Len() int { return len(g.keys) }

// Has reports whether the directed edge is present.
func (g *Graph) Has(e models.LinkEdge) bool {
	_, ok := slices.BinarySearch(g.keys, e.Key())

	return ok
}

// Edges yields every edge with its weight: 2 when the reverse edge is also
// present, 1 otherwise.
func (g *Graph) Edges() iter.Seq[models.WeightedEdge] {
	return func(yield func(models.WeightedEdge) bool) {
		for _, k := range g.keys {
			e := models.EdgeFromKey(k)

			w := models.WeightOneWay
			if g.Has(e.Reverse()) {
				w = models.WeightReciprocal
			}

			if !yield(models.WeightedEdge{From: e.From, To: e.To, Weight: w}) {
				return
			}
		}
	}
}

// Collect scans src once, keeping edges whose endpoints are both retained.
// retained must be complete before Collect is called.
func Collect(ctx context.Context, src links.EdgeSource, retained Membership, log *logrus.Logger) (*Graph, Stats, error) {
	var st Stats

	seen := make(map[uint64]struct{})
	samples := make(map[models.PageID]struct{}, maxSamples)

	err := src.Each(ctx, func(e models.LinkEdge) error {
		st.Scanned++

		if !retained.Contains(e.From) || !retained.Contains(e.To) {
			st.Skipped++
			if len(samples) < maxSamples {
				samples[e.To] = struct{}{}
			}

			return nil
		}

		seen[e.Key()] = struct{}{}

		return nil
	})
	if err != nil {
		return nil, st, err
	}

	keys := make([]uint64, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	g := &Graph{keys: keys}

	st.Unique = int64(len(keys))
	for e := range g.Edges() {
		if e.Weight == models.WeightReciprocal {
			st.Reciprocal++
		}
	}

	for id := range samples {
		st.Samples = append(st.Samples, id)
	}
	slices.Sort(st.Samples)

	log.WithFields(logrus.Fields{
		"scanned":    st.Scanned,
		"skipped":    st.Skipped,
		"unique":     st.Unique,
		"reciprocal": st.Reciprocal,
	}).Info("graph collected")

	if len(st.Samples) > 0 {
		log.WithField("unmatched_to_ids", st.Samples).Debug("sample of edges outside the retained set")
	}

	return g, st, nil
}

// Save writes "from,to,weight" lines without a header.
func (g *Graph) Save(path string) error {
	w, err := artifact.Create(path)
	if err != nil {
		return err
	}
	defer w.Abort()

	for e := range g.Edges() {
		if err := w.WriteWeightedEdge(e); err != nil {
			return err
		}
	}

	return w.Commit()
}
