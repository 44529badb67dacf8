package rank

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/models"
)

// RetainedSet is the frozen set of selected node ids together with their
// rank order. It is safe for concurrent reads.
type RetainedSet struct {
	bm     *roaring.Bitmap
	ranked []models.PageID
	scores []models.NodeScore
}

// NewRetainedSet builds a set from ranked ids. Repeated ids keep their first
// position.
func NewRetainedSet(ids []models.PageID) *RetainedSet {
	bm := roaring.New()
	ranked := make([]models.PageID, 0, len(ids))

	for _, id := range ids {
		if bm.CheckedAdd(uint32(id)) {
			ranked = append(ranked, id)
		}
	}
	bm.RunOptimize()

	return &RetainedSet{bm: bm, ranked: ranked}
}

// NewRetainedSetFromScores builds a set from a ranking result.
func NewRetainedSetFromScores(scores []models.NodeScore) *RetainedSet {
	ids := make([]models.PageID, len(scores))
	for i, s := range scores {
		ids[i] = s.ID
	}

	s := NewRetainedSet(ids)
	s.scores = slices.Clone(scores)

	return s
}

// Contains reports whether id was retained.
func (s *RetainedSet) Contains(id models.PageID) bool {
	return s.bm.Contains(uint32(id))
}

// Len returns the number of retained ids.
func (s *RetainedSet) Len() int { return len(s.ranked) }

// IDs returns the retained ids in rank order.
func (s *RetainedSet) IDs() []models.PageID { return slices.Clone(s.ranked) }

// SizeInBytes reports the serialized bitmap size.
func (s *RetainedSet) SizeInBytes() uint64 { return s.bm.GetSerializedSizeInBytes() }

// Save writes the ranked ids, one per line, and, when scores are known, the
// "id<TAB>in<TAB>out<TAB>score" detail file. Pass an empty scoresPath to skip
// the detail file.
func (s *RetainedSet) Save(idsPath, scoresPath string) error {
	w, err := artifact.Create(idsPath)
	if err != nil {
		return err
	}
	defer w.Abort()

	for _, id := range s.ranked {
		if err := w.WriteID(id); err != nil {
			return err
		}
	}

	if scoresPath != "" && s.scores != nil {
		if err := s.saveScores(scoresPath); err != nil {
			return err
		}
	}

	return w.Commit()
}

func (s *RetainedSet) saveScores(path string) error {
	w, err := artifact.Create(path)
	if err != nil {
		return err
	}
	defer w.Abort()

	for _, n := range s.scores {
		err := w.WriteFields(
			n.ID.String(),
			strconv.FormatUint(uint64(n.In), 10),
			strconv.FormatUint(uint64(n.Out), 10),
			strconv.FormatFloat(n.Score, 'f', 6, 64),
		)
		if err != nil {
			return err
		}
	}

	return w.Commit()
}

// LoadRetainedSet reads a ranked id list written by Save.
func LoadRetainedSet(ctx context.Context, path string) (*RetainedSet, error) {
	if err := artifact.Require(path); err != nil {
		return nil, err
	}

	ids, err := artifact.ReadIDs(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading retained set: %w", err)
	}

	return NewRetainedSet(ids), nil
}
