package pages

import (
	"path/filepath"

	"github.com/wikiroute/wikiroute/internal/artifact"
	"github.com/wikiroute/wikiroute/internal/models"
)

// FileSink writes the canonical title and redirect candidate artifacts.
// Neither file becomes visible until Commit succeeds.
type FileSink struct {
	titles    *artifact.Writer
	redirects *artifact.Writer
}

// NewFileSink opens both artifacts inside dir.
func NewFileSink(dir string) (*FileSink, error) {
	titles, err := artifact.Create(filepath.Join(dir, artifact.CanonicalTitles))
	if err != nil {
		return nil, err
	}

	redirects, err := artifact.Create(filepath.Join(dir, artifact.RedirectCandidates))
	if err != nil {
		titles.Abort()

		return nil, err
	}

	return &FileSink{titles: titles, redirects: redirects}, nil
}

// Canonical implements Sink.
func (s *FileSink) Canonical(e models.TitleEntry) error {
	return s.titles.WriteIDText(e.ID, e.Title)
}

// Redirect implements Sink.
func (s *FileSink) Redirect(c models.RedirectCandidate) error {
	return s.redirects.WriteIDText(c.RedirectID, c.TargetTitle)
}

// Commit publishes both artifacts.
func (s *FileSink) Commit() error {
	if err := s.titles.Commit(); err != nil {
		s.redirects.Abort()

		return err
	}

	return s.redirects.Commit()
}

// Abort discards whatever has not been committed.
func (s *FileSink) Abort() {
	s.titles.Abort()
	s.redirects.Abort()
}

// Outputs returns the artifact paths.
func (s *FileSink) Outputs() []string {
	return []string{s.titles.Path(), s.redirects.Path()}
}
