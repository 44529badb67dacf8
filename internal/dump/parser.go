// Package dump reads relational-database export dumps made of bulk
// INSERT statements and tokenizes them into row tuples.
package dump

import (
	"bytes"
	"fmt"
	"iter"
	"strings"

	"github.com/wikiroute/wikiroute/internal/models"
)

var (
	insertPrefix  = []byte("INSERT INTO ")
	valuesKeyword = []byte("VALUES")
)

// Row is one parenthesized tuple of an insert statement. Fields keep their
// raw dump form: strings are still quoted and escaped, see Unquote.
type Row []string

// MalformedRowError reports a tuple with fewer fields than required.
type MalformedRowError struct {
	Index  int
	Fields int
	Want   int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d has %d fields, want at least %d", e.Index, e.Fields, e.Want)
}

// Unwrap lets callers match models.ErrMalformedRow.
func (e *MalformedRowError) Unwrap() error {
	return models.ErrMalformedRow
}

// Parser splits insert statements into rows.
type Parser struct {
	// MinFields is the minimum number of fields a row must carry.
	MinFields int
}

// IsInsert reports whether line is a bulk insert statement.
func IsInsert(line []byte) bool {
	return bytes.HasPrefix(line, insertPrefix)
}

// Table returns the table name of an insert statement, or "" when line is
// not one.
func Table(line []byte) string {
	if !IsInsert(line) {
		return ""
	}

	rest := line[len(insertPrefix):]
	end := bytes.IndexByte(rest, ' ')
	if end < 0 {
		return ""
	}

	return strings.Trim(string(rest[:end]), "`\"")
}

// Rows lazily yields every tuple of one insert statement. Lines that are not
// insert statements yield nothing. A tuple with fewer than MinFields fields
// yields a *MalformedRowError and iteration continues with the next tuple;
// the caller decides whether to skip or stop.
func (p Parser) Rows(line []byte) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		body, ok := valuesBody(line)
		if !ok {
			return
		}

		index := 0
		for pos := 0; pos < len(body); {
			open := bytes.IndexByte(body[pos:], '(')
			if open < 0 {
				return
			}

			row, next, closed := p.splitTuple(body, pos+open+1)
			pos = next

			if !closed {
				yield(nil, &MalformedRowError{Index: index, Fields: len(row), Want: p.MinFields})

				return
			}

			if len(row) < p.MinFields {
				if !yield(nil, &MalformedRowError{Index: index, Fields: len(row), Want: p.MinFields}) {
					return
				}
			} else if !yield(row, nil) {
				return
			}

			index++
		}
	}
}

// valuesBody returns the part of an insert statement after VALUES, without
// the statement terminator.
func valuesBody(line []byte) ([]byte, bool) {
	if !IsInsert(line) {
		return nil, false
	}

	idx := bytes.Index(line, valuesKeyword)
	if idx < 0 {
		return nil, false
	}

	body := bytes.TrimSpace(line[idx+len(valuesKeyword):])
	body = bytes.TrimSuffix(body, []byte(";"))

	return body, true
}

// splitTuple scans one tuple starting just after its opening parenthesis.
// Commas and parentheses inside single-quoted strings are literal; a
// backslash escapes the next byte and a doubled quote stands for one quote.
func (p Parser) splitTuple(body []byte, start int) (Row, int, bool) {
	row := make(Row, 0, max(p.MinFields, 4))
	fieldStart := start
	inQuote := false

	for i := start; i < len(body); i++ {
		c := body[i]

		if inQuote {
			switch {
			case c == '\\':
				i++
			case c == '\'' && i+1 < len(body) && body[i+1] == '\'':
				i++
			case c == '\'':
				inQuote = false
			}

			continue
		}

		switch c {
		case '\'':
			inQuote = true
		case ',':
			row = append(row, string(bytes.TrimSpace(body[fieldStart:i])))
			fieldStart = i + 1
		case ')':
			row = append(row, string(bytes.TrimSpace(body[fieldStart:i])))

			return row, i + 1, true
		}
	}

	return row, len(body), false
}
