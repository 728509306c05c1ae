package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/result"
	"github.com/veriscope/console/pkg/httputil"
)

// SnapshotVersion is bumped whenever the persisted layout changes.
// Older snapshots are discarded rather than migrated.
const SnapshotVersion = 1

// ErrOutdated means a snapshot was written by another layout version
var ErrOutdated = errors.New("snapshot version is outdated")

// Snapshot is the persisted form of a State
type Snapshot struct {
	Version              int                       `json:"version" validate:"required"`
	Kind                 registry.Kind             `json:"kind" validate:"required,oneof=photo signature"`
	SavedAt              time.Time                 `json:"savedAt"`
	ReferenceFile        *registry.FileDescriptor  `json:"referenceFile"`
	ProvidedFiles        []registry.FileDescriptor `json:"providedFiles" validate:"dive"`
	CurrentProvidedIndex int                       `json:"currentProvidedIndex" validate:"gte=0"`
	CompareResult        *result.Result            `json:"compareResult"`
}

// StorageKey is the store key a kind's snapshot lives under
func StorageKey(kind registry.Kind) string {
	return string(kind) + "ComparisonState"
}

// NewSnapshot captures s for kind
func NewSnapshot(kind registry.Kind, s State, now time.Time) Snapshot {
	provided := s.Provided
	if provided == nil {
		provided = []registry.FileDescriptor{}
	}
	return Snapshot{
		Version:              SnapshotVersion,
		Kind:                 kind,
		SavedAt:              now.UTC(),
		ReferenceFile:        s.Reference,
		ProvidedFiles:        provided,
		CurrentProvidedIndex: s.Cursor,
		CompareResult:        s.Result,
	}
}

// State rebuilds the selection a snapshot holds
func (s Snapshot) State() State {
	st := State{
		Reference: s.ReferenceFile,
		Provided:  s.ProvidedFiles,
		Cursor:    s.CurrentProvidedIndex,
		Result:    s.CompareResult,
	}
	if len(st.Provided) == 0 {
		st.Provided = nil
	}
	return st
}

// Encode serializes a snapshot
func Encode(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses and validates a stored snapshot for kind. Anything that
// does not hold a consistent selection is an error; callers discard it.
func Decode(data []byte, kind registry.Kind) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: got version %d, want %d", ErrOutdated, s.Version, SnapshotVersion)
	}
	if err := httputil.Validate(&s); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	if s.Kind != kind {
		return nil, fmt.Errorf("snapshot is for %s, not %s", s.Kind, kind)
	}

	st := s.State()
	if err := st.Check(); err != nil {
		return nil, fmt.Errorf("inconsistent snapshot: %w", err)
	}
	return &s, nil
}
