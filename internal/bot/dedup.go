package bot

import "sync"

// recencySet is a fixed-capacity FIFO set of recently seen identifiers,
// used to suppress duplicate inbound events. When full, the oldest entry
// is evicted.
type recencySet struct {
	mu    sync.Mutex
	ring  []string
	next  int
	full  bool
	index map[string]struct{}
}

func newRecencySet(capacity int) *recencySet {
	if capacity < 1 {
		capacity = 1
	}
	return &recencySet{
		ring:  make([]string, capacity),
		index: make(map[string]struct{}, capacity),
	}
}

// Add records id and reports whether it was new.
func (s *recencySet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; ok {
		return false
	}
	if s.full {
		delete(s.index, s.ring[s.next])
	}
	s.ring[s.next] = id
	s.index[id] = struct{}{}
	s.next++
	if s.next == len(s.ring) {
		s.next = 0
		s.full = true
	}
	return true
}
