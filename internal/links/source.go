package links

import (
	"context"
	"sync/atomic"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/dump"
	"github.com/wikiroute/wikiroute/internal/models"
)

// EdgeSource produces the resolved edge sequence. Every call to Each replays
// the same sequence from the start.
type EdgeSource interface {
	Each(ctx context.Context, fn func(models.LinkEdge) error) error
}

// DumpSource re-scans the link dump through an Extractor on every pass.
type DumpSource struct {
	Path      string
	Extractor *Extractor

	last Stats
	file *dump.File
}

// Each implements EdgeSource.
func (s *DumpSource) Each(ctx context.Context, fn func(models.LinkEdge) error) error {
	f, err := dump.Open(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	s.file = f
	st, err := s.Extractor.Extract(ctx, f, fn)
	s.last = st

	return err
}

// Progress returns the fraction of the dump consumed by the current pass.
func (s *DumpSource) Progress() float64 {
	if s.file == nil {
		return 0
	}

	return s.file.Progress()
}

// Stats returns the counters of the most recent pass.
func (s *DumpSource) Stats() Stats { return s.last }

// ArtifactSource replays a persisted raw edge artifact.
type ArtifactSource struct {
	Path string

	skipped atomic.Int64
}

// NewArtifactSource returns a source over the edge artifact at path.
func NewArtifactSource(path string) *ArtifactSource {
	return &ArtifactSource{Path: path}
}

// Each implements EdgeSource. Malformed lines are skipped.
func (s *ArtifactSource) Each(ctx context.Context, fn func(models.LinkEdge) error) error {
	skipped, err := artifact.ReadEdges(ctx, s.Path, fn)
	s.skipped.Store(skipped)

	return err
}

// Skipped returns the malformed lines seen by the most recent pass.
func (s *ArtifactSource) Skipped() int64 { return s.skipped.Load() }

// Persist drains src into an edge artifact at path and returns the number
// of edges written. Nothing is published unless the whole pass succeeds.
func Persist(ctx context.Context, src EdgeSource, path string) (int64, error) {
	w, err := artifact.Create(path)
	if err != nil {
		return 0, err
	}
	defer w.Abort()

	err = src.Each(ctx, func(e models.LinkEdge) error {
		return w.WriteIDPair(e.From, e.To)
	})
	if err != nil {
		return w.Lines(), err
	}

	return w.Lines(), w.Commit()
}
