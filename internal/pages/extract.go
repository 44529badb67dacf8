// Package pages splits the page table dump into canonical titles and
// redirect candidates.
package pages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/dump"
	"github.com/wikiroute/wikiroute/internal/models"
)

// Table is the dump table holding page rows.
const Table = "page"

// Page rows are (page_id, namespace, title, is_redirect, ...).
const (
	colID = iota
	colNamespace
	colTitle
	colRedirect
	minFields
)

// Sink receives extracted pages. The two outputs are disjoint.
type Sink interface {
	Canonical(models.TitleEntry) error
	Redirect(models.RedirectCandidate) error
}

// Stats counts what a page scan saw.
type Stats struct {
	Statements        int64 `json:"statements"`
	ForeignStatements int64 `json:"foreign_statements"`
	Rows              int64 `json:"rows"`
	Malformed         int64 `json:"malformed"`
	BadIDs            int64 `json:"bad_ids"`
	OtherNamespace    int64 `json:"other_namespace"`
	Canonical         int64 `json:"canonical"`
	Redirects         int64 `json:"redirects"`
	RedirectTargets   int64 `json:"redirect_targets"`
}

// Counters flattens the stats for the run manifest.
func (s Stats) Counters() map[string]int64 {
	return map[string]int64{
		"statements":         s.Statements,
		"foreign_statements": s.ForeignStatements,
		"rows":               s.Rows,
		"malformed":          s.Malformed,
		"bad_ids":            s.BadIDs,
		"other_namespace":    s.OtherNamespace,
		"canonical":          s.Canonical,
		"redirects":          s.Redirects,
		"redirect_targets":   s.RedirectTargets,
	}
}

// Extractor turns page rows into canonical titles and redirect candidates.
type Extractor struct {
	log           *logrus.Logger
	parser        dump.Parser
	table         string
	targets       map[models.PageID]string
	progressEvery int64

	// OnProgress, when set, is called every progressEvery rows.
	OnProgress func(Stats)
}

// NewExtractor creates an Extractor. targets maps redirect page ids to their
// target titles as read from the redirect table; a redirect page missing from
// it (or a nil map) uses its own title as the target.
func NewExtractor(log *logrus.Logger, targets map[models.PageID]string, progressEvery int64) *Extractor {
	return &Extractor{
		log:           log,
		parser:        dump.Parser{MinFields: minFields},
		table:         Table,
		targets:       targets,
		progressEvery: progressEvery,
	}
}

// Extract scans a page dump and feeds every main-namespace page to sink.
// Short rows and rows with unparseable ids are counted and skipped.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, sink Sink) (Stats, error) {
	var st Stats

	err := dump.Lines(ctx, r, func(line []byte) error {
		if t := dump.Table(line); t != e.table {
			st.ForeignStatements++

			return nil
		}
		st.Statements++

		for row, err := range e.parser.Rows(line) {
			st.Rows++
			if err != nil {
				if !errors.Is(err, models.ErrMalformedRow) {
					return err
				}
				st.Malformed++
				e.log.WithError(err).Debug("skipping malformed page row")

				continue
			}

			if err := e.handle(row, sink, &st); err != nil {
				return err
			}

			if e.progressEvery > 0 && st.Rows%e.progressEvery == 0 {
				e.progress(st)
			}
		}

		return nil
	})
	if err != nil {
		return st, fmt.Errorf("extracting pages: %w", err)
	}

	return st, nil
}

func (e *Extractor) handle(row dump.Row, sink Sink, st *Stats) error {
	if !models.InMainNamespace(row[colNamespace]) {
		st.OtherNamespace++

		return nil
	}

	id, err := models.ParsePageID(row[colID])
	if err != nil {
		st.BadIDs++

		return nil
	}

	title := NormalizeTitle(row[colTitle])

	if strings.TrimSpace(row[colRedirect]) == "1" {
		target := title
		if t, ok := e.targets[id]; ok {
			target = t
			st.RedirectTargets++
		}
		st.Redirects++

		return sink.Redirect(models.RedirectCandidate{RedirectID: id, TargetTitle: target})
	}

	st.Canonical++

	return sink.Canonical(models.TitleEntry{ID: id, Title: title})
}

func (e *Extractor) progress(st Stats) {
	e.log.WithFields(logrus.Fields{
		"rows":      st.Rows,
		"canonical": st.Canonical,
		"redirects": st.Redirects,
		"malformed": st.Malformed,
	}).Info("page scan progress")

	if e.OnProgress != nil {
		e.OnProgress(st)
	}
}

// NormalizeTitle unquotes a dump title field and replaces underscores with
// spaces.
func NormalizeTitle(field string) string {
	return strings.ReplaceAll(dump.Unquote(field), "_", " ")
}
