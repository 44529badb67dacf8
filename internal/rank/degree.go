// Package rank counts node degrees over the resolved edge stream and selects
// the most central nodes.
package rank

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/links"
	"github.com/wikiroute/wikiroute/internal/models"
)

// Degrees holds in and out link counts per node. Memory grows with the
// number of distinct ids, never with the number of edges.
type Degrees struct {
	m     map[models.PageID]models.Degree
	edges int64
}

// NewDegrees returns an empty table.
func NewDegrees() *Degrees {
	return &Degrees{m: make(map[models.PageID]models.Degree)}
}

// Add counts one edge occurrence. Repeated edges count every time.
func (d *Degrees) Add(e models.LinkEdge) {
	from := d.m[e.From]
	from.Out++
	d.m[e.From] = from

	to := d.m[e.To]
	to.In++
	d.m[e.To] = to

	d.edges++
}

// Get returns the degree of id.
func (d *Degrees) Get(id models.PageID) (models.Degree, bool) {
	deg, ok := d.m[id]

	return deg, ok
}

// Len returns the number of distinct nodes seen.
func (d *Degrees) Len() int { return len(d.m) }

// Edges returns the number of edge occurrences counted.
func (d *Degrees) Edges() int64 { return d.edges }

// CountDegrees streams src once and returns the completed table.
func CountDegrees(ctx context.Context, src links.EdgeSource, log *logrus.Logger, progressEvery int64) (*Degrees, error) {
	d := NewDegrees()

	err := src.Each(ctx, func(e models.LinkEdge) error {
		d.Add(e)

		if progressEvery > 0 && d.edges%progressEvery == 0 {
			log.WithFields(logrus.Fields{
				"edges": d.edges,
				"nodes": len(d.m),
			}).Info("degree count progress")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"edges": d.edges,
		"nodes": len(d.m),
	}).Info("degrees counted")

	return d, nil
}
