// Package titles maps retained node ids to their titles and back.
package titles

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/models"
)

// Membership reports whether a node was retained.
type Membership interface {
	Contains(models.PageID) bool
}

// Index is an immutable bidirectional id/title mapping.
type Index struct {
	byID    map[models.PageID]string
	byTitle map[string]models.PageID
	entries []models.TitleEntry
	folded  []folded
}

type folded struct {
	key   string
	entry models.TitleEntry
}

// Builder accumulates entries with first-write-wins on both ids and titles.
type Builder struct {
	ix         *Index
	duplicates int64
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{ix: &Index{
		byID:    make(map[models.PageID]string),
		byTitle: make(map[string]models.PageID),
	}}
}

// Add records an entry unless its id or title is already taken. It reports
// whether the entry was kept.
func (b *Builder) Add(e models.TitleEntry) bool {
	if _, ok := b.ix.byID[e.ID]; ok {
		b.duplicates++

		return false
	}

	if _, ok := b.ix.byTitle[e.Title]; ok {
		b.duplicates++

		return false
	}

	b.ix.byID[e.ID] = e.Title
	b.ix.byTitle[e.Title] = e.ID
	b.ix.entries = append(b.ix.entries, e)

	return true
}

// Duplicates returns the number of rejected entries.
func (b *Builder) Duplicates() int64 { return b.duplicates }

// Build freezes the index.
func (b *Builder) Build() *Index {
	ix := b.ix
	b.ix = nil

	ix.folded = make([]folded, len(ix.entries))
	for i, e := range ix.entries {
		ix.folded[i] = folded{key: strings.ToLower(e.Title), entry: e}
	}

	slices.SortFunc(ix.folded, func(a, b folded) int {
		if c := strings.Compare(a.key, b.key); c != 0 {
			return c
		}

		return cmp.Compare(a.entry.ID, b.entry.ID)
	})

	return ix
}

// Title returns the title of id.
func (ix *Index) Title(id models.PageID) (string, bool) {
	t, ok := ix.byID[id]

	return t, ok
}

// ID returns the id of an exact title.
func (ix *Index) ID(title string) (models.PageID, bool) {
	id, ok := ix.byTitle[title]

	return id, ok
}

// Len returns the number of entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Entries returns the entries in insertion order.
func (ix *Index) Entries() []models.TitleEntry { return slices.Clone(ix.entries) }

// Prefix returns up to limit entries whose title starts with prefix, ignoring
// case, ordered by folded title then id.
func (ix *Index) Prefix(prefix string, limit int) []models.TitleEntry {
	if limit <= 0 {
		return nil
	}

	p := strings.ToLower(prefix)
	start, _ := slices.BinarySearchFunc(ix.folded, p, func(f folded, target string) int {
		return strings.Compare(f.key, target)
	})

	var out []models.TitleEntry

	for i := start; i < len(ix.folded) && len(out) < limit; i++ {
		if !strings.HasPrefix(ix.folded[i].key, p) {
			break
		}
		out = append(out, ix.folded[i].entry)
	}

	return out
}

// Stats counts the outcome of a title index build.
type Stats struct {
	Scanned    int64 `json:"scanned"`
	Matched    int64 `json:"matched"`
	Duplicates int64 `json:"duplicates"`
	Skipped    int64 `json:"skipped"`
	Missing    int64 `json:"missing"`
}

// Counters flattens the stats for the run manifest.
func (s Stats) Counters() map[string]int64 {
	return map[string]int64{
		"scanned":    s.Scanned,
		"matched":    s.Matched,
		"duplicates": s.Duplicates,
		"skipped":    s.Skipped,
		"missing":    s.Missing,
	}
}

// Build intersects the canonical titles artifact with the retained set,
// writes the result to outPath and returns the index. retainedLen is used to
// report retained ids that have no canonical title.
func Build(ctx context.Context, canonicalPath string, retained Membership, retainedLen int, outPath string, log *logrus.Logger) (*Index, Stats, error) {
	var st Stats

	if err := artifact.Require(canonicalPath); err != nil {
		return nil, st, err
	}

	w, err := artifact.Create(outPath)
	if err != nil {
		return nil, st, err
	}
	defer w.Abort()

	b := NewBuilder()

	skipped, err := artifact.ReadTitles(ctx, canonicalPath, func(e models.TitleEntry) error {
		st.Scanned++

		if !retained.Contains(e.ID) || !b.Add(e) {
			return nil
		}
		st.Matched++

		return w.WriteIDText(e.ID, e.Title)
	})
	if err != nil {
		return nil, st, err
	}

	if err := w.Commit(); err != nil {
		return nil, st, err
	}

	st.Skipped = skipped
	st.Duplicates = b.Duplicates()
	st.Missing = max(int64(retainedLen)-st.Matched, 0)

	log.WithFields(logrus.Fields{
		"matched":    st.Matched,
		"missing":    st.Missing,
		"duplicates": st.Duplicates,
	}).Info("title index built")

	return b.Build(), st, nil
}

// Load reads a title index artifact.
func Load(ctx context.Context, path string) (*Index, error) {
	if err := artifact.Require(path); err != nil {
		return nil, err
	}

	b := NewBuilder()

	_, err := artifact.ReadTitles(ctx, path, func(e models.TitleEntry) error {
		b.Add(e)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return b.Build(), nil
}
