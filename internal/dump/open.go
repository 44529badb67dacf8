package dump

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dsnet/compress/bzip2"

	"github.com/wikiroute/wikiroute/internal/models"
)

// readBufferSize is the bufio buffer for statement lines. Lines longer than
// this are still read in full.
const readBufferSize = 4 << 20

// File is an opened dump, transparently decompressed by file extension.
type File struct {
	io.Reader
	size    int64
	read    *countingReader
	closers []func() error
}

// Open opens a plain, .gz or .bz2 dump. A missing file is reported as
// models.ErrMissingArtifact.
func Open(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // dump path comes from operator configuration.
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrMissingArtifact, path)
		}

		return nil, fmt.Errorf("opening dump %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("stat dump %s: %w", path, err)
	}

	counter := &countingReader{r: f}
	d := &File{size: info.Size(), read: counter, closers: []func() error{f.Close}}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(counter)
		if err != nil {
			f.Close()

			return nil, fmt.Errorf("opening gzip dump %s: %w", path, err)
		}

		d.Reader = gz
		d.closers = append([]func() error{gz.Close}, d.closers...)
	case ".bz2":
		bz, err := bzip2.NewReader(counter, &bzip2.ReaderConfig{})
		if err != nil {
			f.Close()

			return nil, fmt.Errorf("opening bzip2 dump %s: %w", path, err)
		}

		d.Reader = bz
		d.closers = append([]func() error{bz.Close}, d.closers...)
	default:
		d.Reader = counter
	}

	return d, nil
}

// Close releases the decompressor and the underlying file.
func (d *File) Close() error {
	var errs []error
	for _, c := range d.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Progress returns the fraction of the on-disk file consumed so far.
func (d *File) Progress() float64 {
	if d.size <= 0 {
		return 0
	}

	return float64(d.read.n.Load()) / float64(d.size)
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))

	return n, err
}

// Lines calls fn for every newline-terminated line of r that is an insert
// statement. The slice passed to fn is only valid until fn returns.
func Lines(ctx context.Context, r io.Reader, fn func(line []byte) error) error {
	br := bufio.NewReaderSize(r, readBufferSize)

	var long []byte

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			long = append(long, chunk...)

			continue
		}

		line := chunk
		if long != nil {
			line = append(long, chunk...)
			long = nil
		}

		if len(line) > 0 && IsInsert(line) {
			if ferr := fn(trimEOL(line)); ferr != nil {
				return ferr
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading dump: %w", err)
		}
	}
}

func trimEOL(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}

	return line
}
