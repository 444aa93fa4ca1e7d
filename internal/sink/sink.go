// Package sink persists feature records. Every sink keeps at most one
// snapshot per token id: a write replaces the previous one.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yourorg/token-features/internal/model"
)

// ErrPersist wraps every failure to write a snapshot.
var ErrPersist = errors.New("persist failure")

// ErrNotFound is returned by readers when no snapshot exists.
var ErrNotFound = errors.New("snapshot not found")

// Sink receives the finished record of one token.
type Sink interface {
	Write(ctx context.Context, tokenID string, record model.FeatureRecord) error
	Name() string
}

func persistErr(sink string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersist, sink, err)
}

// Multi writes to every sink in order and joins their errors.
type Multi []Sink

// Write fans the record out; a failing sink does not stop the others.
func (m Multi) Write(ctx context.Context, tokenID string, record model.FeatureRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, tokenID, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Name lists the member sinks, e.g. "file+redis".
func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}
