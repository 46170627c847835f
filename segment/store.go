package segment

import (
	"sort"
	"sync"

	"storyreel/types"
)

// Store holds the ordered segment collection for one pipeline job with
// thread-safe access. Every mutation rebuilds the slice through a pure
// mapping step keyed by segment id, so concurrent async completions can
// never clobber each other's records.
type Store struct {
	mu       sync.RWMutex
	segments []types.Segment
}

// NewStore creates an empty segment store.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a whole new collection, e.g. after partitioning or
// re-synthesis.
func (s *Store) Replace(segments []types.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append([]types.Segment{}, segments...)
}

// Snapshot returns a copy of the current collection in timeline order.
func (s *Store) Snapshot() []types.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Segment{}, s.segments...)
}

// Len returns the current segment count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// Get returns the segment with the given id.
func (s *Store) Get(id string) (types.Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, seg := range s.segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return types.Segment{}, false
}

// Update rebuilds the collection, applying fn to the one record matching id.
// Records that don't match pass through untouched. Returns false when no
// segment has that id.
func (s *Store) Update(id string, fn func(types.Segment) types.Segment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	next := make([]types.Segment, len(s.segments))
	for i, seg := range s.segments {
		if seg.ID == id {
			next[i] = fn(seg)
			found = true
		} else {
			next[i] = seg
		}
	}
	if found {
		s.segments = next
	}
	return found
}

// WithImages returns the segments that have a generated image, sorted by the
// parsed start time of their timestamp label. This is the export engine's
// input order regardless of insertion order.
func (s *Store) WithImages() []types.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return OrderedWithImages(s.segments)
}

// OrderedWithImages filters out segments without an image and sorts the rest
// by the parsed start time of their timestamp label, so insertion order never
// leaks into an export artifact.
func OrderedWithImages(segments []types.Segment) []types.Segment {
	out := make([]types.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.ImageURL != "" {
			out = append(out, seg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ParseLabelStart(out[i].TimestampLabel) < ParseLabelStart(out[j].TimestampLabel)
	})
	return out
}
