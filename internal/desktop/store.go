package desktop

import (
	"fmt"
	"slices"

	"meazure/internal/identity"
)

// Store maps snapshot identities to snapshots and tracks how many positions
// reference each one. A snapshot is removed together with its count when the
// count drops to zero.
//
// Store is not safe for concurrent use.
type Store struct {
	desktops map[identity.ID]*Desktop
	refs     map[identity.ID]int
	newID    identity.Generator
}

// NewStore creates an empty store. A nil generator uses random identities.
func NewStore(gen identity.Generator) *Store {
	if gen == nil {
		gen = identity.New
	}
	return &Store{
		desktops: make(map[identity.ID]*Desktop),
		refs:     make(map[identity.ID]int),
		newID:    gen,
	}
}

// Intern returns the identity of a stored snapshot equal to d, ignoring d.ID.
// If none exists a copy of d is stored under a fresh identity. The reference
// count is not changed; the caller must Acquire.
func (s *Store) Intern(d *Desktop) identity.ID {
	for id, existing := range s.desktops {
		if existing.Equal(d) {
			return id
		}
	}

	c := d.Clone()
	c.ID = s.newID()
	s.desktops[c.ID] = c
	return c.ID
}

// Insert stores d under its own identity without deduplication. It is used
// when decoding files, whose snapshots are already unique.
func (s *Store) Insert(d *Desktop) error {
	if d.ID.IsZero() {
		return ErrInvalidID
	}
	if _, ok := s.desktops[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, d.ID)
	}
	s.desktops[d.ID] = d.Clone()
	return nil
}

// Acquire adds a reference to id.
func (s *Store) Acquire(id identity.ID) {
	s.refs[id]++
}

// Release drops a reference to id. When the last reference goes the
// snapshot is erased. Releasing an untracked id does nothing.
func (s *Store) Release(id identity.ID) {
	n, ok := s.refs[id]
	if !ok {
		return
	}
	if n <= 1 {
		delete(s.refs, id)
		delete(s.desktops, id)
		return
	}
	s.refs[id] = n - 1
}

// Get returns the snapshot stored under id. The result must not be modified.
func (s *Store) Get(id identity.ID) (*Desktop, error) {
	d, ok := s.desktops[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// Contains reports whether a snapshot is stored under id.
func (s *Store) Contains(id identity.ID) bool {
	_, ok := s.desktops[id]
	return ok
}

// RefCount returns the number of references held on id.
func (s *Store) RefCount(id identity.ID) int {
	return s.refs[id]
}

// Len returns the number of stored snapshots, referenced or not.
func (s *Store) Len() int {
	return len(s.desktops)
}

// Referenced returns the snapshots with at least one reference, ordered by
// identity so that output is stable.
func (s *Store) Referenced() []*Desktop {
	out := make([]*Desktop, 0, len(s.refs))
	for id := range s.refs {
		if d, ok := s.desktops[id]; ok {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b *Desktop) int {
		return a.ID.Compare(b.ID)
	})
	return out
}

// Prune removes snapshots that nothing references and returns how many were
// removed.
func (s *Store) Prune() int {
	removed := 0
	for id := range s.desktops {
		if s.refs[id] == 0 {
			delete(s.desktops, id)
			removed++
		}
	}
	return removed
}

// Clear empties the store. Outstanding references become dangling and
// releasing them is a no-op.
func (s *Store) Clear() {
	clear(s.desktops)
	clear(s.refs)
}
