// Package links turns the link table dump into resolved directed edges.
package links

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wikiroute/wikiroute/internal/dump"
	"github.com/wikiroute/wikiroute/internal/models"
)

// Table is the dump table holding link rows.
const Table = "pagelinks"

// Link rows are (from_id, namespace, to_id, ...).
const (
	colFrom = iota
	colNamespace
	colTo
	minFields
)

const defaultQueueSize = 64

// Resolver maps a destination id to its canonical id.
type Resolver interface {
	Resolve(models.PageID) models.PageID
}

// Stats counts what a link scan saw.
type Stats struct {
	Statements        int64 `json:"statements"`
	ForeignStatements int64 `json:"foreign_statements"`
	Rows              int64 `json:"rows"`
	Malformed         int64 `json:"malformed"`
	BadIDs            int64 `json:"bad_ids"`
	OtherNamespace    int64 `json:"other_namespace"`
	Redirected        int64 `json:"redirected"`
	Edges             int64 `json:"edges"`
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
		"redirected":         s.Redirected,
		"edges":              s.Edges,
	}
}

// Extractor reads link rows and emits (from, resolve(to)) for every row in
// the main namespace. Ids are never checked against known pages.
type Extractor struct {
	log           *logrus.Logger
	parser        dump.Parser
	resolver      Resolver
	queueSize     int
	progressEvery int64

	// OnProgress, when set, is called every progressEvery rows.
	OnProgress func(Stats)
}

// NewExtractor creates an Extractor. queueSize bounds the number of statement
// lines buffered between the reader and the tokenizer.
func NewExtractor(resolver Resolver, log *logrus.Logger, queueSize int, progressEvery int64) *Extractor {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	return &Extractor{
		log:           log,
		parser:        dump.Parser{MinFields: minFields},
		resolver:      resolver,
		queueSize:     queueSize,
		progressEvery: progressEvery,
	}
}

// Extract scans a link dump and calls fn for every resolved edge, in dump
// order. One goroutine reads statement lines while the caller's edges are
// tokenized and emitted on another.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, fn func(models.LinkEdge) error) (Stats, error) {
	var st Stats

	g, gctx := errgroup.WithContext(ctx)
	lines := make(chan []byte, e.queueSize)

	g.Go(func() error {
		defer close(lines)

		return dump.Lines(gctx, r, func(line []byte) error {
			select {
			case lines <- bytes.Clone(line):
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	g.Go(func() error {
		for line := range lines {
			if err := e.statement(line, fn, &st); err != nil {
				return err
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return st, fmt.Errorf("extracting links: %w", err)
	}

	return st, nil
}

func (e *Extractor) statement(line []byte, fn func(models.LinkEdge) error, st *Stats) error {
	if dump.Table(line) != Table {
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

			continue
		}

		if e.progressEvery > 0 && st.Rows%e.progressEvery == 0 {
			e.progress(*st)
		}

		if !models.InMainNamespace(row[colNamespace]) {
			st.OtherNamespace++

			continue
		}

		from, err := models.ParsePageID(row[colFrom])
		if err != nil {
			st.BadIDs++

			continue
		}

		to, err := models.ParsePageID(row[colTo])
		if err != nil {
			st.BadIDs++

			continue
		}

		resolved := e.resolver.Resolve(to)
		if resolved != to {
			st.Redirected++
		}

		st.Edges++

		if err := fn(models.LinkEdge{From: from, To: resolved}); err != nil {
			return err
		}
	}

	return nil
}

func (e *Extractor) progress(st Stats) {
	e.log.WithFields(logrus.Fields{
		"rows":       st.Rows,
		"edges":      st.Edges,
		"redirected": st.Redirected,
		"malformed":  st.Malformed,
	}).Info("link scan progress")

	if e.OnProgress != nil {
		e.OnProgress(st)
	}
}
