// Package selection holds the per-kind comparison selection and its
// persisted snapshot form.
package selection

import (
	"fmt"

	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/result"
)

// State is what the operator has picked for one comparison kind.
// A storage URL is never both the reference and a provided file, and
// Cursor always points into Provided (or is 0 when Provided is empty).
type State struct {
	Reference *registry.FileDescriptor
	Provided  []registry.FileDescriptor
	Cursor    int
	Result    *result.Result
}

// SetReference picks the reference file. The same file is dropped from the
// provided set if it was there.
func (s *State) SetReference(fd registry.FileDescriptor) {
	s.Reference = &fd
	s.Provided = without(s.Provided, fd.StorageURL)
	s.clamp()
}

// SetProvided replaces the provided set. Duplicates and the current
// reference are dropped; the cursor goes back to the first file.
func (s *State) SetProvided(files []registry.FileDescriptor) {
	seen := make(map[string]bool, len(files))
	out := make([]registry.FileDescriptor, 0, len(files))
	for _, f := range files {
		if seen[f.StorageURL] || (s.Reference != nil && f.StorageURL == s.Reference.StorageURL) {
			continue
		}
		seen[f.StorageURL] = true
		out = append(out, f)
	}
	s.Provided = out
	s.Cursor = 0
}

// Next moves the cursor forward, wrapping to the first file
func (s *State) Next() {
	if n := len(s.Provided); n > 0 {
		s.Cursor = (s.Cursor + 1) % n
	}
}

// Prev moves the cursor back, wrapping to the last file
func (s *State) Prev() {
	if n := len(s.Provided); n > 0 {
		s.Cursor = (s.Cursor - 1 + n) % n
	}
}

// SetCursor jumps to index i
func (s *State) SetCursor(i int) error {
	if i < 0 || i >= len(s.Provided) {
		return fmt.Errorf("index %d out of range [0, %d)", i, len(s.Provided))
	}
	s.Cursor = i
	return nil
}

// Current is the provided file under the cursor, or nil
func (s *State) Current() *registry.FileDescriptor {
	if len(s.Provided) == 0 {
		return nil
	}
	f := s.Provided[s.Cursor]
	return &f
}

// ProvidedURLs lists the provided storage URLs in order
func (s *State) ProvidedURLs() []string {
	out := make([]string, len(s.Provided))
	for i, f := range s.Provided {
		out[i] = f.StorageURL
	}
	return out
}

// Empty reports whether nothing is selected and no result is held
func (s *State) Empty() bool {
	return s.Reference == nil && len(s.Provided) == 0 && s.Result == nil
}

// Clone returns a deep enough copy for handing out of a lock
func (s *State) Clone() State {
	out := State{Cursor: s.Cursor, Result: s.Result}
	if s.Reference != nil {
		ref := *s.Reference
		out.Reference = &ref
	}
	if s.Provided != nil {
		out.Provided = make([]registry.FileDescriptor, len(s.Provided))
		copy(out.Provided, s.Provided)
	}
	return out
}

// Check verifies the selection invariants
func (s *State) Check() error {
	if len(s.Provided) == 0 {
		if s.Cursor != 0 {
			return fmt.Errorf("cursor %d with no provided files", s.Cursor)
		}
	} else if s.Cursor < 0 || s.Cursor >= len(s.Provided) {
		return fmt.Errorf("cursor %d out of range [0, %d)", s.Cursor, len(s.Provided))
	}

	seen := make(map[string]bool, len(s.Provided))
	for _, f := range s.Provided {
		if seen[f.StorageURL] {
			return fmt.Errorf("provided file %q listed twice", f.StorageURL)
		}
		seen[f.StorageURL] = true
	}
	if s.Reference != nil && seen[s.Reference.StorageURL] {
		return fmt.Errorf("file %q is both reference and provided", s.Reference.StorageURL)
	}
	return nil
}

func (s *State) clamp() {
	if len(s.Provided) == 0 || s.Cursor < 0 {
		s.Cursor = 0
		return
	}
	if s.Cursor >= len(s.Provided) {
		s.Cursor = len(s.Provided) - 1
	}
}

func without(files []registry.FileDescriptor, url string) []registry.FileDescriptor {
	out := files[:0:0]
	for _, f := range files {
		if f.StorageURL != url {
			out = append(out, f)
		}
	}
	return out
}
