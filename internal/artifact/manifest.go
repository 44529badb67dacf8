package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// StageRecord describes one completed stage.
type StageRecord struct {
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	Duration    string           `json:"duration"`
	Counters    map[string]int64 `json:"counters"`
	Outputs     []string         `json:"outputs"`
}

// RunManifest records what each stage produced in a data directory.
type RunManifest struct {
	RunID     string                 `json:"run_id"`
	Version   string                 `json:"version"`
	UpdatedAt time.Time              `json:"updated_at"`
	Stages    map[string]StageRecord `json:"stages"`
}

// LoadManifest reads the manifest at path. A missing manifest yields an
// empty one.
func LoadManifest(path string) (*RunManifest, error) {
	m := &RunManifest{Stages: map[string]StageRecord{}}

	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the data directory.
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}

		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	if m.Stages == nil {
		m.Stages = map[string]StageRecord{}
	}

	return m, nil
}

// Save writes the manifest atomically.
func (m *RunManifest) Save(path string) error {
	m.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	w, err := Create(path)
	if err != nil {
		return err
	}
	defer w.Abort()

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	return w.Commit()
}
