package redirects

import (
	"context"
	"slices"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/models"
)

// Save writes the map as "redirect_id<TAB>canonical_id" lines in ascending
// redirect id order.
func (m *Map) Save(path string) error {
	w, err := artifact.Create(path)
	if err != nil {
		return err
	}
	defer w.Abort()

	ids := make([]models.PageID, 0, len(m.targets))
	for id := range m.targets {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if err := w.WriteIDPair(id, m.targets[id]); err != nil {
			return err
		}
	}

	return w.Commit()
}

// ReadMap loads a map written by Save.
func ReadMap(ctx context.Context, path string) (*Map, error) {
	targets := make(map[models.PageID]models.PageID)

	_, err := artifact.ReadEdges(ctx, path, func(e models.LinkEdge) error {
		if _, ok := targets[e.From]; !ok {
			targets[e.From] = e.To
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Map{targets: targets}, nil
}
