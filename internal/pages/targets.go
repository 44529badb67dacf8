package pages

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/dump"
	"github.com/wikiroute/wikiroute/internal/models"
)

// RedirectTable is the dump table holding redirect targets.
const RedirectTable = "redirect"

// Redirect rows are (rd_from, rd_namespace, rd_title, rd_interwiki, ...).
const (
	rdFrom = iota
	rdNamespace
	rdTitle
	rdInterwiki
)

// TargetStats counts what a redirect-table scan saw.
type TargetStats struct {
	Rows           int64 `json:"rows"`
	Malformed      int64 `json:"malformed"`
	OtherNamespace int64 `json:"other_namespace"`
	Interwiki      int64 `json:"interwiki"`
	Targets        int64 `json:"targets"`
}

// LoadRedirectTargets reads a redirect table dump into a map from redirect
// page id to normalized target title. Only targets in the main namespace are
// kept; the first row for an id wins.
func LoadRedirectTargets(ctx context.Context, log *logrus.Logger, r io.Reader) (map[models.PageID]string, TargetStats, error) {
	var st TargetStats

	targets := make(map[models.PageID]string)
	parser := dump.Parser{MinFields: rdTitle + 1}

	err := dump.Lines(ctx, r, func(line []byte) error {
		if dump.Table(line) != RedirectTable {
			return nil
		}

		for row, err := range parser.Rows(line) {
			st.Rows++
			if err != nil {
				if !errors.Is(err, models.ErrMalformedRow) {
					return err
				}
				st.Malformed++

				continue
			}

			if !models.InMainNamespace(row[rdNamespace]) {
				st.OtherNamespace++

				continue
			}

			if len(row) > rdInterwiki && dump.Unquote(row[rdInterwiki]) != "" {
				st.Interwiki++

				continue
			}

			id, err := models.ParsePageID(row[rdFrom])
			if err != nil {
				st.Malformed++

				continue
			}

			if _, ok := targets[id]; ok {
				continue
			}

			targets[id] = NormalizeTitle(row[rdTitle])
		}

		return nil
	})
	if err != nil {
		return nil, st, fmt.Errorf("loading redirect targets: %w", err)
	}

	st.Targets = int64(len(targets))

	log.WithFields(logrus.Fields{
		"rows":            st.Rows,
		"targets":         st.Targets,
		"malformed":       st.Malformed,
		"other_namespace": st.OtherNamespace,
	}).Info("redirect targets loaded")

	return targets, st, nil
}
