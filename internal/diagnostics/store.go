package diagnostics

import (
	"slices"
	"sort"
)

// Store holds the last published record list per document URI.
type Store struct {
	byURI map[string][]Record
}

func NewStore() *Store {
	return &Store{byURI: make(map[string][]Record)}
}

// Set replaces the list for uri. The slice is copied.
func (s *Store) Set(uri string, records []Record) {
	s.byURI[uri] = slices.Clone(records)
}

// Get returns a copy of the list for uri.
func (s *Store) Get(uri string) []Record {
	return slices.Clone(s.byURI[uri])
}

func (s *Store) Delete(uri string) bool {
	_, ok := s.byURI[uri]
	delete(s.byURI, uri)
	return ok
}

// URIs returns the stored URIs in sorted order.
func (s *Store) URIs() []string {
	out := make([]string, 0, len(s.byURI))
	for uri := range s.byURI {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Clear() {
	clear(s.byURI)
}

// Accumulator collects streamed records per document within one pass.
type Accumulator struct {
	byURI map[string][]Record
}

func NewAccumulator() *Accumulator {
	return &Accumulator{byURI: make(map[string][]Record)}
}

// Append adds rec to its document's list and returns the whole list so far.
func (a *Accumulator) Append(rec Record) []Record {
	list := append(a.byURI[rec.URI], rec)
	a.byURI[rec.URI] = list
	return slices.Clone(list)
}

func (a *Accumulator) Forget(uri string) {
	delete(a.byURI, uri)
}

// Reset empties every list. Called at the start of each pass.
func (a *Accumulator) Reset() {
	clear(a.byURI)
}

func (a *Accumulator) Len(uri string) int {
	return len(a.byURI[uri])
}
