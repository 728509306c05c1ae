// Package registry lists, uploads and deletes the files the verification API stores.
package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind is the comparison domain a file belongs to
type Kind string

const (
	KindPhoto     Kind = "photo"
	KindSignature Kind = "signature"
)

// ParseKind accepts photo or signature, in any case
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPhoto:
		return KindPhoto, nil
	case KindSignature:
		return KindSignature, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Noun is the word used in operator-facing messages
func (k Kind) Noun() string {
	if k == KindSignature {
		return "signature"
	}
	return "image"
}

// Slot is the role of an uploaded file in a comparison
type Slot string

const (
	SlotReference Slot = "reference"
	SlotProvided  Slot = "provided"
)

// ParseSlot accepts reference or provided
func ParseSlot(s string) (Slot, error) {
	switch Slot(strings.ToLower(strings.TrimSpace(s))) {
	case SlotReference:
		return SlotReference, nil
	case SlotProvided:
		return SlotProvided, nil
	}
	return "", fmt.Errorf("unknown slot %q", s)
}

// FileDescriptor is one uploaded asset known to the backend.
// StorageURL is the identity; ResolvedURL and Path are derived from it.
type FileDescriptor struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name" validate:"required"`
	StorageURL  string     `json:"url" validate:"required"`
	ResolvedURL string     `json:"fullUrl"`
	Path        string     `json:"path,omitempty"`
	Size        int64      `json:"size,omitempty"`
	UploadedAt  *time.Time `json:"uploadedAt,omitempty"`
	Ext         string     `json:"ext,omitempty"`
	Slot        Slot       `json:"slot,omitempty"`
	Kind        Kind       `json:"kind,omitempty"`
	Tag         string     `json:"tag,omitempty"`
}

// MarshalJSON keeps UploadedAt in RFC 3339 UTC
func (f FileDescriptor) MarshalJSON() ([]byte, error) {
	type alias FileDescriptor
	out := struct {
		alias
		UploadedAt *string `json:"uploadedAt,omitempty"`
	}{alias: alias(f)}
	if f.UploadedAt != nil {
		s := f.UploadedAt.UTC().Format(time.RFC3339Nano)
		out.UploadedAt = &s
	}
	return json.Marshal(out)
}

// Listing is the registry split into reference and provided files
type Listing struct {
	Reference []FileDescriptor `json:"referenceFiles"`
	Provided  []FileDescriptor `json:"providedFiles"`
}

// Filter narrows the listing to one comparison kind. Files without a
// kind belong to every kind.
func (l Listing) Filter(kind Kind) Listing {
	return Listing{
		Reference: filterKind(l.Reference, kind),
		Provided:  filterKind(l.Provided, kind),
	}
}

// Empty reports whether the listing has no files at all
func (l Listing) Empty() bool {
	return len(l.Reference) == 0 && len(l.Provided) == 0
}

// FindReference looks up a reference file by storage URL
func (l Listing) FindReference(url string) (FileDescriptor, bool) {
	return find(l.Reference, url)
}

// FindProvided looks up a provided file by storage URL
func (l Listing) FindProvided(url string) (FileDescriptor, bool) {
	return find(l.Provided, url)
}

func filterKind(files []FileDescriptor, kind Kind) []FileDescriptor {
	out := make([]FileDescriptor, 0, len(files))
	for _, f := range files {
		if f.Kind == kind || f.Kind == "" {
			out = append(out, f)
		}
	}
	return out
}

func find(files []FileDescriptor, url string) (FileDescriptor, bool) {
	for _, f := range files {
		if f.StorageURL == url {
			return f, true
		}
	}
	return FileDescriptor{}, false
}

// extension returns the lower-cased suffix after the last dot, or ""
func extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
