package models

// LinkEdge is one resolved hyperlink occurrence. Duplicates are expected.
type LinkEdge struct {
	From PageID `json:"from"`
	To   PageID `json:"to"`
}

// Key packs the edge into a single comparable value, From in the high bits.
func (e LinkEdge) Key() uint64 {
	return uint64(e.From)<<32 | uint64(e.To)
}

// Reverse returns the edge pointing the other way.
func (e LinkEdge) Reverse() LinkEdge {
	return LinkEdge{From: e.To, To: e.From}
}

// EdgeFromKey unpacks a value produced by LinkEdge.Key.
func EdgeFromKey(k uint64) LinkEdge {
	return LinkEdge{From: PageID(k >> 32), To: PageID(k & 0xffffffff)}
}

// Edge weights in the exported graph.
const (
	WeightOneWay     uint8 = 1
	WeightReciprocal uint8 = 2
)

// WeightedEdge is a deduplicated edge of the exported graph.
type WeightedEdge struct {
	From   PageID `json:"from"`
	To     PageID `json:"to"`
	Weight uint8  `json:"weight"`
}
