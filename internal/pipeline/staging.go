package pipeline

import "os"

// Entry binds a logical artifact name to its location on disk.
type Entry struct {
	// Name is the stable logical name the artifact is packaged under.
	Name string
	// Path is the artifact's current location.
	Path string
}

// StagingSet is an ordered collection of artifacts destined for the archive.
// Steps append entries as they succeed; packaging consumes only entries whose
// path still exists on disk.
type StagingSet struct {
	entries []Entry
	index   map[string]int
}

// NewStagingSet returns an empty staging set.
func NewStagingSet() *StagingSet {
	return &StagingSet{
		index: make(map[string]int),
	}
}

// Add records an artifact under a logical name.
// Re-adding a name replaces its path but keeps the original position.
func (s *StagingSet) Add(name, path string) {
	if i, ok := s.index[name]; ok {
		s.entries[i].Path = path
		return
	}

	s.index[name] = len(s.entries)
	s.entries = append(s.entries, Entry{Name: name, Path: path})
}

// Entries returns all staged entries in insertion order.
func (s *StagingSet) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Existing returns staged entries whose path exists on disk, in insertion order.
// This is the packaging-time existence check, independent of step bookkeeping.
func (s *StagingSet) Existing() []Entry {
	present := make([]Entry, 0, len(s.entries))

	for _, e := range s.entries {
		if _, err := os.Stat(e.Path); err != nil {
			continue
		}

		present = append(present, e)
	}

	return present
}

// Contains reports whether an artifact was staged under the given name.
func (s *StagingSet) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of staged entries.
func (s *StagingSet) Len() int {
	return len(s.entries)
}
