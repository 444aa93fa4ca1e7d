package sink

import (
	"context"
	"fmt"

	"github.com/google/renameio/v2"

	"github.com/yourorg/token-features/internal/model"
)

// FileSink writes the record as indented JSON to a fixed path, replacing
// the file on every write.
type FileSink struct {
	path string
}

// NewFileSink creates a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// snapshotPerm keeps the snapshot readable by consumers running as other users.
const snapshotPerm = 0o644

// Write replaces the snapshot atomically: readers see the old file or the new
// one, never a partial write.
func (s *FileSink) Write(_ context.Context, _ string, record model.FeatureRecord) error {
	data, err := record.MarshalIndent()
	if err != nil {
		return persistErr(s.Name(), fmt.Errorf("marshal record: %w", err))
	}

	if err := renameio.WriteFile(s.path, data, snapshotPerm, renameio.IgnoreUmask()); err != nil {
		return persistErr(s.Name(), err)
	}
	return nil
}

func (s *FileSink) Name() string {
	return "file:" + s.path
}
