// Package result normalizes verification responses into one presentation model.
//
// The caller knows which endpoint it called, so decoding is strict per kind:
// DecodePhoto and DecodeSignature each accept one shape and fall back to an
// unrecognized result rather than probing for fields.
package result

import (
	"fmt"
)

// Kind discriminates the result union
type Kind string

const (
	KindPhoto        Kind = "photo"
	KindSignature    Kind = "signature"
	KindUnrecognized Kind = "unrecognized"
)

// Entry is one compared item: a photo, or one signature found in a document
type Entry struct {
	Index      int      `json:"index"`
	Confidence *float64 `json:"confidence,omitempty"`
	RawStatus  string   `json:"status,omitempty"`
	Decision   Decision `json:"decision"`
	Matched    bool     `json:"matched"`
	Report     Report   `json:"report,omitempty"`
	Image      string   `json:"image,omitempty"`
}

// Group holds the entries found in one provided file
type Group struct {
	FileIndex int     `json:"fileIndex"`
	Filename  string  `json:"filename"`
	Entries   []Entry `json:"entries"`
}

// Best returns the highest-confidence entry of the group, or nil when no
// entry has a confidence. The first entry wins ties.
func (g Group) Best() *Entry {
	var best *Entry
	for i := range g.Entries {
		e := &g.Entries[i]
		if e.Confidence == nil {
			continue
		}
		if best == nil || *e.Confidence > *best.Confidence {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// Match is an entry together with the file it came from
type Match struct {
	FileIndex int    `json:"fileIndex"`
	Filename  string `json:"filename"`
	Entry     Entry  `json:"entry"`
}

// Result is the normalized outcome of one comparison
type Result struct {
	Kind      Kind     `json:"kind" validate:"required,oneof=photo signature unrecognized"`
	Groups    []Group  `json:"groups"`
	TotalCost *float64 `json:"totalCost,omitempty"`
	Best      *Match   `json:"best,omitempty"`
}

// Recognized reports whether the response matched the expected shape
func (r *Result) Recognized() bool {
	return r != nil && r.Kind != KindUnrecognized
}

// EntryCount is the number of entries across all groups
func (r *Result) EntryCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, g := range r.Groups {
		n += len(g.Entries)
	}
	return n
}

// Filenames lists the group filenames in order, without duplicates
func (r *Result) Filenames() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]bool, len(r.Groups))
	out := make([]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		if g.Filename == "" || seen[g.Filename] {
			continue
		}
		seen[g.Filename] = true
		out = append(out, g.Filename)
	}
	return out
}

// FindBest scans every group for the highest-confidence entry
func (r *Result) FindBest() *Match {
	if r == nil {
		return nil
	}
	var best *Match
	for _, g := range r.Groups {
		e := g.Best()
		if e == nil {
			continue
		}
		if best == nil || *e.Confidence > *best.Entry.Confidence {
			best = &Match{FileIndex: g.FileIndex, Filename: g.Filename, Entry: *e}
		}
	}
	return best
}

func finish(r *Result) *Result {
	if r.Groups == nil {
		r.Groups = []Group{}
	}
	r.Best = r.FindBest()
	return r
}

func unrecognized(totalCost *float64) *Result {
	return finish(&Result{Kind: KindUnrecognized, TotalCost: totalCost})
}

func documentName(fileIndex int) string {
	return fmt.Sprintf("Document %d", fileIndex+1)
}
