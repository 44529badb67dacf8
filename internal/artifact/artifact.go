// Package artifact reads and writes the intermediate files exchanged between
// pipeline stages. Every file is written to a temporary sibling and renamed
// into place on Commit, so a failed stage never leaves a partial output.
package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wikiroute/wikiroute/internal/models"
)

// File names inside a run's data directory.
const (
	CanonicalTitles    = "page_id_title.tsv"
	RedirectCandidates = "redirect_candidates.tsv"
	RedirectMap        = "redirect_map.tsv"
	RawLinks           = "raw_links.tsv"
	TopIDs             = "top_ids.txt"
	TopScores          = "top_scores.tsv"
	Graph              = "graph.csv"
	TopTitles          = "top_id_title.tsv"
	Manifest           = "manifest.json"
)

const writeBufferSize = 1 << 20

// MissingError names an input file that a previous stage should have produced.
type MissingError struct {
	Path string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s (rerun the stage that produces it)", models.ErrMissingArtifact, e.Path)
}

// Unwrap lets callers match models.ErrMissingArtifact.
func (e *MissingError) Unwrap() error {
	return models.ErrMissingArtifact
}

// Require checks that every path exists and is a regular file.
func Require(paths ...string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &MissingError{Path: p}
			}

			return fmt.Errorf("checking artifact %s: %w", p, err)
		}

		if !info.Mode().IsRegular() {
			return &MissingError{Path: p}
		}
	}

	return nil
}

// Writer writes one artifact atomically.
type Writer struct {
	path    string
	f       *os.File
	w       *bufio.Writer
	buf     []byte
	lines   int64
	settled bool
}

// Create opens a temporary file next to path. Call Commit to publish it and
// defer Abort to discard it on any error path.
func Create(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating artifact %s: %w", path, err)
	}

	return &Writer{
		path: path,
		f:    f,
		w:    bufio.NewWriterSize(f, writeBufferSize),
		buf:  make([]byte, 0, 64),
	}, nil
}

// Path returns the final path of the artifact.
func (w *Writer) Path() string { return w.path }

// Lines returns the number of lines written so far.
func (w *Writer) Lines() int64 { return w.lines }

// WriteIDText writes "id<TAB>text".
func (w *Writer) WriteIDText(id models.PageID, text string) error {
	w.buf = strconv.AppendUint(w.buf[:0], uint64(id), 10)
	w.buf = append(w.buf, '\t')
	w.buf = append(w.buf, sanitize(text)...)

	return w.writeLine()
}

// WriteIDPair writes "a<TAB>b".
func (w *Writer) WriteIDPair(a, b models.PageID) error {
	w.buf = strconv.AppendUint(w.buf[:0], uint64(a), 10)
	w.buf = append(w.buf, '\t')
	w.buf = strconv.AppendUint(w.buf, uint64(b), 10)

	return w.writeLine()
}

// WriteID writes a single id on its own line.
func (w *Writer) WriteID(id models.PageID) error {
	w.buf = strconv.AppendUint(w.buf[:0], uint64(id), 10)

	return w.writeLine()
}

// WriteWeightedEdge writes "from,to,weight".
func (w *Writer) WriteWeightedEdge(e models.WeightedEdge) error {
	w.buf = strconv.AppendUint(w.buf[:0], uint64(e.From), 10)
	w.buf = append(w.buf, ',')
	w.buf = strconv.AppendUint(w.buf, uint64(e.To), 10)
	w.buf = append(w.buf, ',')
	w.buf = strconv.AppendUint(w.buf, uint64(e.Weight), 10)

	return w.writeLine()
}

// WriteFields writes tab-joined fields.
func (w *Writer) WriteFields(fields ...string) error {
	w.buf = w.buf[:0]
	for i, f := range fields {
		if i > 0 {
			w.buf = append(w.buf, '\t')
		}
		w.buf = append(w.buf, sanitize(f)...)
	}

	return w.writeLine()
}

// Write implements io.Writer for whole-file payloads such as JSON.
func (w *Writer) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

func (w *Writer) writeLine() error {
	w.buf = append(w.buf, '\n')
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("writing %s: %w", w.path, err)
	}
	w.lines++

	return nil
}

// Commit flushes, syncs and renames the temporary file into place.
func (w *Writer) Commit() error {
	if w.settled {
		return fmt.Errorf("artifact %s already closed", w.path)
	}
	w.settled = true

	tmp := w.f.Name()

	if err := w.w.Flush(); err != nil {
		w.discard()

		return fmt.Errorf("flushing %s: %w", w.path, err)
	}

	if err := w.f.Sync(); err != nil {
		w.discard()

		return fmt.Errorf("syncing %s: %w", w.path, err)
	}

	if err := w.f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup.

		return fmt.Errorf("closing %s: %w", w.path, err)
	}

	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup.

		return fmt.Errorf("publishing %s: %w", w.path, err)
	}

	return nil
}

// Abort discards the temporary file. It is a no-op after Commit.
func (w *Writer) Abort() {
	if w.settled {
		return
	}
	w.settled = true
	w.discard()
}

func (w *Writer) discard() {
	tmp := w.f.Name()
	w.f.Close()    //nolint:errcheck // discarding anyway.
	os.Remove(tmp) //nolint:errcheck // best-effort cleanup.
}

// sanitize keeps a value on one line of one TSV column.
func sanitize(s string) string {
	if !strings.ContainsAny(s, "\t\n\r") {
		return s
	}

	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}
