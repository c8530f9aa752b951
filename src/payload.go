package pawmedia

import (
	"errors"
	"sync"
)

var ErrPayloadClaimed = errors.New("payload already claimed or unknown")

// PayloadRegistry owns the script values carried by user events while they
// sit in the native queue. The native event holds only the entry id.
type PayloadRegistry struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64][2]*Value
}

func NewPayloadRegistry() *PayloadRegistry {
	return &PayloadRegistry{entries: make(map[uint64][2]*Value)}
}

// Register takes one reference on each of a and b and returns the entry
// id. A nil value is stored as an empty value. Shared values must be
// duplicated by the caller first.
func (r *PayloadRegistry) Register(a, b *Value) uint64 {
	if a == nil {
		a = NewValue("")
	}
	if b == nil {
		b = NewValue("")
	}
	a.Retain()
	b.Retain()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.entries[r.next] = [2]*Value{a, b}
	return r.next
}

// Claim moves the entry out of the registry. It succeeds once per id.
func (r *PayloadRegistry) Claim(id uint64) (*PayloadHandle, error) {
	r.mu.Lock()
	pair, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return nil, ErrPayloadClaimed
	}
	return &PayloadHandle{A: pair[0], B: pair[1]}, nil
}

// Discard drops an entry that never reached the queue.
func (r *PayloadRegistry) Discard(id uint64) {
	if h, err := r.Claim(id); err == nil {
		h.Release()
	}
}

// Outstanding returns the number of entries not yet claimed.
func (r *PayloadRegistry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close releases every entry still in the registry.
func (r *PayloadRegistry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[uint64][2]*Value)
	r.mu.Unlock()
	for _, pair := range entries {
		pair[0].Release()
		pair[1].Release()
	}
}

// PayloadHandle owns the two references of a claimed entry.
type PayloadHandle struct {
	A, B     *Value
	released bool
}

// Release drops both references. Later calls do nothing.
func (h *PayloadHandle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.A.Release()
	h.B.Release()
}
