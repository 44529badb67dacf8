// Package redirects resolves redirect pages to the canonical pages they
// point at. Resolution happens in two phases separated by a hard barrier:
// the complete title map is built first, then redirect candidates are
// looked up in it. Both results are immutable once returned.
package redirects

import (
	"context"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/models"
)

// TitleMap maps canonical titles to page ids.
type TitleMap struct {
	ids        map[string]models.PageID
	duplicates int64
}

// TitleMapBuilder accumulates canonical pages. The first id seen for a title
// wins.
type TitleMapBuilder struct {
	m *TitleMap
}

// NewTitleMapBuilder returns an empty builder.
func NewTitleMapBuilder() *TitleMapBuilder {
	return &TitleMapBuilder{m: &TitleMap{ids: make(map[string]models.PageID)}}
}

// Add records a canonical page.
func (b *TitleMapBuilder) Add(e models.TitleEntry) {
	if _, ok := b.m.ids[e.Title]; ok {
		b.m.duplicates++

		return
	}
	b.m.ids[e.Title] = e.ID
}

// Build freezes the map. The builder must not be used afterwards.
func (b *TitleMapBuilder) Build() *TitleMap {
	m := b.m
	b.m = nil

	return m
}

// Lookup returns the canonical id for title.
func (m *TitleMap) Lookup(title string) (models.PageID, bool) {
	id, ok := m.ids[title]

	return id, ok
}

// Len returns the number of distinct titles.
func (m *TitleMap) Len() int { return len(m.ids) }

// Duplicates returns how many pages lost a title collision.
func (m *TitleMap) Duplicates() int64 { return m.duplicates }

// LoadTitleMap builds the title map from the canonical titles artifact.
// It returns only once the whole artifact has been consumed.
func LoadTitleMap(ctx context.Context, path string) (*TitleMap, int64, error) {
	b := NewTitleMapBuilder()

	skipped, err := artifact.ReadTitles(ctx, path, func(e models.TitleEntry) error {
		b.Add(e)

		return nil
	})
	if err != nil {
		return nil, skipped, err
	}

	return b.Build(), skipped, nil
}

// Map maps redirect page ids to canonical page ids.
type Map struct {
	targets map[models.PageID]models.PageID
}

// Resolve returns the canonical id for id, or id itself when it is not a
// resolved redirect.
func (m *Map) Resolve(id models.PageID) models.PageID {
	if m == nil {
		return id
	}

	if target, ok := m.targets[id]; ok {
		return target
	}

	return id
}

// Lookup reports the target of a resolved redirect.
func (m *Map) Lookup(id models.PageID) (models.PageID, bool) {
	target, ok := m.targets[id]

	return target, ok
}

// Len returns the number of resolved redirects.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}

	return len(m.targets)
}

// Stats counts the outcome of redirect resolution.
type Stats struct {
	Titles          int64 `json:"titles"`
	DuplicateTitles int64 `json:"duplicate_titles"`
	Candidates      int64 `json:"candidates"`
	Resolved        int64 `json:"resolved"`
	Unresolved      int64 `json:"unresolved"`
	Duplicates      int64 `json:"duplicate_candidates"`
	Skipped         int64 `json:"skipped_lines"`
}

// Counters flattens the stats for the run manifest.
func (s Stats) Counters() map[string]int64 {
	return map[string]int64{
		"titles":               s.Titles,
		"duplicate_titles":     s.DuplicateTitles,
		"candidates":           s.Candidates,
		"resolved":             s.Resolved,
		"unresolved":           s.Unresolved,
		"duplicate_candidates": s.Duplicates,
		"skipped_lines":        s.Skipped,
	}
}

// Resolver runs the second phase against a frozen TitleMap.
type Resolver struct {
	titles  *TitleMap
	targets map[models.PageID]models.PageID
	stats   Stats
	log     *logrus.Logger
}

// NewResolver starts phase two. titles must be complete.
func NewResolver(titles *TitleMap, log *logrus.Logger) *Resolver {
	return &Resolver{
		titles:  titles,
		targets: make(map[models.PageID]models.PageID),
		stats:   Stats{Titles: int64(titles.Len()), DuplicateTitles: titles.Duplicates()},
		log:     log,
	}
}

// Add resolves one candidate. A target title missing from the title map is
// dropped and counted as unresolved.
func (r *Resolver) Add(c models.RedirectCandidate) {
	r.stats.Candidates++

	target, ok := r.titles.Lookup(c.TargetTitle)
	if !ok {
		r.stats.Unresolved++
		r.log.WithFields(logrus.Fields{
			"redirect_id":  c.RedirectID,
			"target_title": c.TargetTitle,
		}).Trace(models.ErrUnresolvedRedirect.Error())

		return
	}

	if _, dup := r.targets[c.RedirectID]; dup {
		r.stats.Duplicates++

		return
	}

	r.targets[c.RedirectID] = target
	r.stats.Resolved++
}

// Build freezes the redirect map. The resolver must not be used afterwards.
func (r *Resolver) Build() (*Map, Stats) {
	m := &Map{targets: r.targets}
	r.targets = nil

	return m, r.stats
}

// Resolve runs phase two over the redirect candidates artifact.
func Resolve(ctx context.Context, titles *TitleMap, candidatesPath string, log *logrus.Logger) (*Map, Stats, error) {
	r := NewResolver(titles, log)

	skipped, err := artifact.ReadRedirectCandidates(ctx, candidatesPath, func(c models.RedirectCandidate) error {
		r.Add(c)

		return nil
	})
	if err != nil {
		return nil, r.stats, err
	}

	m, st := r.Build()
	st.Skipped += skipped

	log.WithFields(logrus.Fields{
		"titles":     st.Titles,
		"candidates": st.Candidates,
		"resolved":   st.Resolved,
		"unresolved": st.Unresolved,
	}).Info("redirects resolved")

	return m, st, nil
}

// Load runs both phases from the artifacts in dir.
func Load(ctx context.Context, dir string, log *logrus.Logger) (*Map, Stats, error) {
	titlesPath := filepath.Join(dir, artifact.CanonicalTitles)
	candidatesPath := filepath.Join(dir, artifact.RedirectCandidates)

	if err := artifact.Require(titlesPath, candidatesPath); err != nil {
		return nil, Stats{}, err
	}

	titles, skipped, err := LoadTitleMap(ctx, titlesPath)
	if err != nil {
		return nil, Stats{}, err
	}

	m, st, err := Resolve(ctx, titles, candidatesPath, log)
	st.Skipped += skipped

	return m, st, err
}
