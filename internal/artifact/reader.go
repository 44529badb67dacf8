package artifact

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wikiroute/wikiroute/internal/models"
)

const (
	readBufferSize = 1 << 20
	// ctxCheckEvery is how many lines are read between cancellation checks.
	ctxCheckEvery = 1 << 16
)

// EachLine calls fn for every non-empty line of the artifact at path.
// The slice passed to fn is reused after fn returns.
func EachLine(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path) //nolint:gosec // artifact paths are derived from the data directory.
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &MissingError{Path: path}
		}

		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return eachLine(ctx, f, fn)
}

func eachLine(ctx context.Context, r io.Reader, fn func(line []byte) error) error {
	br := bufio.NewReaderSize(r, readBufferSize)

	var n int
	for {
		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			// Artifact lines are short; a line this long is corrupt.
			return fmt.Errorf("artifact line exceeds %d bytes", readBufferSize)
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 {
			if ferr := fn(line); ferr != nil {
				return ferr
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading artifact: %w", err)
		}

		n++
		if n%ctxCheckEvery == 0 {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
		}
	}
}

// ReadTitles streams "id<TAB>title" lines. Malformed lines are skipped and
// counted.
func ReadTitles(ctx context.Context, path string, fn func(models.TitleEntry) error) (skipped int64, err error) {
	err = EachLine(ctx, path, func(line []byte) error {
		id, text, ok := splitIDText(line)
		if !ok {
			skipped++

			return nil
		}

		return fn(models.TitleEntry{ID: id, Title: text})
	})

	return skipped, err
}

// ReadRedirectCandidates streams "redirect_id<TAB>target_title" lines.
func ReadRedirectCandidates(ctx context.Context, path string, fn func(models.RedirectCandidate) error) (skipped int64, err error) {
	err = EachLine(ctx, path, func(line []byte) error {
		id, text, ok := splitIDText(line)
		if !ok {
			skipped++

			return nil
		}

		return fn(models.RedirectCandidate{RedirectID: id, TargetTitle: text})
	})

	return skipped, err
}

// ReadEdges streams "from<TAB>to" lines.
func ReadEdges(ctx context.Context, path string, fn func(models.LinkEdge) error) (skipped int64, err error) {
	err = EachLine(ctx, path, func(line []byte) error {
		from, to, ok := splitIDPair(line, '\t')
		if !ok {
			skipped++

			return nil
		}

		return fn(models.LinkEdge{From: from, To: to})
	})

	return skipped, err
}

// ReadIDs loads a newline-separated id list, preserving order.
func ReadIDs(ctx context.Context, path string) ([]models.PageID, error) {
	var ids []models.PageID

	err := EachLine(ctx, path, func(line []byte) error {
		id, err := parseID(bytes.TrimSpace(line))
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		ids = append(ids, id)

		return nil
	})

	return ids, err
}

// ReadGraph streams "from,to,weight" lines of the exported graph.
func ReadGraph(ctx context.Context, path string, fn func(models.WeightedEdge) error) error {
	return EachLine(ctx, path, func(line []byte) error {
		e, err := parseWeightedEdge(line)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		return fn(e)
	})
}

func parseWeightedEdge(line []byte) (models.WeightedEdge, error) {
	last := bytes.LastIndexByte(line, ',')
	if last < 0 {
		return models.WeightedEdge{}, fmt.Errorf("malformed graph line %q", line)
	}

	from, to, ok := splitIDPair(line[:last], ',')
	if !ok {
		return models.WeightedEdge{}, fmt.Errorf("malformed graph line %q", line)
	}

	w, err := strconv.ParseUint(string(line[last+1:]), 10, 8)
	if err != nil || (uint8(w) != models.WeightOneWay && uint8(w) != models.WeightReciprocal) {
		return models.WeightedEdge{}, fmt.Errorf("invalid weight in graph line %q", line)
	}

	return models.WeightedEdge{From: from, To: to, Weight: uint8(w)}, nil
}

func splitIDText(line []byte) (models.PageID, string, bool) {
	idx := bytes.IndexByte(line, '\t')
	if idx <= 0 {
		return 0, "", false
	}

	id, err := parseID(line[:idx])
	if err != nil {
		return 0, "", false
	}

	return id, string(line[idx+1:]), true
}

func splitIDPair(line []byte, sep byte) (models.PageID, models.PageID, bool) {
	idx := bytes.IndexByte(line, sep)
	if idx <= 0 {
		return 0, 0, false
	}

	a, err := parseID(line[:idx])
	if err != nil {
		return 0, 0, false
	}

	b, err := parseID(line[idx+1:])
	if err != nil {
		return 0, 0, false
	}

	return a, b, true
}

func parseID(b []byte) (models.PageID, error) {
	var v uint64
	if len(b) == 0 {
		return 0, models.ErrInvalidID
	}

	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", models.ErrInvalidID, b)
		}

		v = v*10 + uint64(c-'0')
		if v > 0xffffffff {
			return 0, fmt.Errorf("%w: %q", models.ErrInvalidID, b)
		}
	}

	return models.PageID(v), nil
}
