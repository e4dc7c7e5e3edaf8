package desktop

import "meazure/internal/identity"

// RefCounter is implemented by stores that count snapshot references.
type RefCounter interface {
	Acquire(id identity.ID)
	Release(id identity.ID)
}

// Ref is a counted reference to a stored snapshot. Creating or cloning a Ref
// acquires a reference; Release gives it back. A released Ref keeps its ID.
type Ref struct {
	counter RefCounter
	id      identity.ID
}

// NewRef acquires a reference to id from counter.
func NewRef(counter RefCounter, id identity.ID) Ref {
	counter.Acquire(id)
	return Ref{counter: counter, id: id}
}

// ID returns the referenced snapshot identity.
func (r Ref) ID() identity.ID {
	return r.id
}

// Valid reports whether r still holds a reference.
func (r Ref) Valid() bool {
	return r.counter != nil
}

// Clone acquires another reference to the same snapshot.
func (r Ref) Clone() Ref {
	if r.counter == nil {
		return Ref{id: r.id}
	}
	return NewRef(r.counter, r.id)
}

// Release gives the reference back. Calling it more than once is safe.
func (r *Ref) Release() {
	if r.counter == nil {
		return
	}
	r.counter.Release(r.id)
	r.counter = nil
}
