package rank

import (
	"container/heap"
	"math/bits"
	"slices"

	"github.com/wikiroute/wikiroute/internal/models"
)

// DefaultTopK is the retained set size used when none is configured.
const DefaultTopK = 100000

// Better reports whether a ranks above b: a higher harmonic score, or an equal
// score and a smaller id. Scores are compared exactly, so the order is total
// and the selection reproducible.
func Better(a, b models.NodeDegree) bool {
	switch compareScore(a.Degree, b.Degree) {
	case 1:
		return true
	case -1:
		return false
	default:
		return a.ID < b.ID
	}
}

// compareScore compares 2·in·out/(in+out) of two non-empty degrees by
// cross-multiplying: in_a·out_a·(in_b+out_b) against in_b·out_b·(in_a+out_a).
func compareScore(a, b models.Degree) int {
	ahi, alo := bits.Mul64(uint64(a.In)*uint64(a.Out), b.Total())
	bhi, blo := bits.Mul64(uint64(b.In)*uint64(b.Out), a.Total())

	switch {
	case ahi > bhi || (ahi == bhi && alo > blo):
		return 1
	case ahi < bhi || (ahi == bhi && alo < blo):
		return -1
	default:
		return 0
	}
}

// worstFirst is a min-heap under Better: the root is the lowest-ranked node
// kept so far.
type worstFirst []models.NodeDegree

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return Better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(models.NodeDegree)) //nolint:forcetypeassert // heap only holds NodeDegree.
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}

// TopK returns the k best nodes of d in rank order. Nodes with zero total
// degree are never candidates, so the result has exactly
// min(k, eligible nodes) entries.
func TopK(d *Degrees, k int) []models.NodeScore {
	if k <= 0 {
		return nil
	}

	h := make(worstFirst, 0, min(k, len(d.m)))

	for id, deg := range d.m {
		if deg.Total() == 0 {
			continue
		}

		c := models.NodeDegree{ID: id, Degree: deg}

		if len(h) < k {
			heap.Push(&h, c)

			continue
		}

		if Better(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	ranked := []models.NodeDegree(h)
	slices.SortFunc(ranked, func(a, b models.NodeDegree) int {
		if Better(a, b) {
			return -1
		}
		if Better(b, a) {
			return 1
		}

		return 0
	})

	out := make([]models.NodeScore, len(ranked))
	for i, n := range ranked {
		out[i] = models.NodeScore{ID: n.ID, In: n.In, Out: n.Out, Score: n.Score()}
	}

	return out
}

// Eligible returns the number of nodes with positive total degree.
func Eligible(d *Degrees) int {
	n := 0
	for _, deg := range d.m {
		if deg.Total() > 0 {
			n++
		}
	}

	return n
}
