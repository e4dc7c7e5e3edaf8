package position

import "fmt"

// Store is a dense, zero-based sequence of positions. Deleting a position
// releases its snapshot reference; Replace leaves reference management of
// the incoming position to the caller, which must construct it before the
// old one is released.
//
// Store is not safe for concurrent use.
type Store struct {
	positions []*Position
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds p at index Len() and returns that index.
func (s *Store) Append(p *Position) int {
	s.positions = append(s.positions, p)
	return len(s.positions) - 1
}

// Replace puts p at index and releases the position it displaces.
func (s *Store) Replace(index int, p *Position) error {
	if err := s.check(index); err != nil {
		return err
	}
	old := s.positions[index]
	s.positions[index] = p
	old.Release()
	return nil
}

// Delete removes the position at index, releasing it, and shifts every
// later position down by one.
func (s *Store) Delete(index int) error {
	if err := s.check(index); err != nil {
		return err
	}
	old := s.positions[index]
	copy(s.positions[index:], s.positions[index+1:])
	s.positions[len(s.positions)-1] = nil
	s.positions = s.positions[:len(s.positions)-1]
	old.Release()
	return nil
}

// DeleteAll releases every position and empties the store.
func (s *Store) DeleteAll() {
	for _, p := range s.positions {
		p.Release()
	}
	clear(s.positions)
	s.positions = s.positions[:0]
}

// Get returns the position at index.
func (s *Store) Get(index int) (*Position, error) {
	if err := s.check(index); err != nil {
		return nil, err
	}
	return s.positions[index], nil
}

func (s *Store) Len() int {
	return len(s.positions)
}

func (s *Store) IsEmpty() bool {
	return len(s.positions) == 0
}

// All returns the positions in index order. The slice is a copy; the
// positions are not.
func (s *Store) All() []*Position {
	out := make([]*Position, len(s.positions))
	copy(out, s.positions)
	return out
}

func (s *Store) check(index int) error {
	if index < 0 || index >= len(s.positions) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(s.positions))
	}
	return nil
}
