package models

// Degree holds the link counts of one node.
type Degree struct {
	In  uint32 `json:"in_degree"`
	Out uint32 `json:"out_degree"`
}

// Total returns in+out.
func (d Degree) Total() uint64 {
	return uint64(d.In) + uint64(d.Out)
}

// Score returns the harmonic connectivity score 2·in·out/(in+out).
// It is zero when either side is zero and undefined (zero) for an empty degree.
func (d Degree) Score() float64 {
	total := d.Total()
	if total == 0 {
		return 0
	}

	return 2 * float64(d.In) * float64(d.Out) / float64(total)
}

// NodeDegree is the degree record of a single node.
type NodeDegree struct {
	ID PageID `json:"id"`
	Degree
}

// NodeScore is a ranked node.
type NodeScore struct {
	ID    PageID  `json:"id"`
	In    uint32  `json:"in_degree"`
	Out   uint32  `json:"out_degree"`
	Score float64 `json:"score"`
}

// NeighborResult holds the outgoing and incoming edges of a node in the
// exported graph. Degree counts all of them, even when the edge lists are
// truncated by a limit.
type NeighborResult struct {
	Node     TitleEntry     `json:"node"`
	Degree   Degree         `json:"degree"`
	Outgoing []WeightedEdge `json:"outgoing"`
	Incoming []WeightedEdge `json:"incoming"`
}

// GraphStats summarises an exported graph.
type GraphStats struct {
	Nodes           int `json:"nodes"`
	Edges           int `json:"edges"`
	ReciprocalEdges int `json:"reciprocal_edges"`
	Titles          int `json:"titles"`
}
