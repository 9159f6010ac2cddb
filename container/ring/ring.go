/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ring

// Ring is a fixed-capacity FIFO ring of slots.
// items are allocated by one malloc and cannot be resized. Slots are written
// and read in place; Peek/Advance on the producer side and Pop on the
// consumer side, so a value can be filled in the ring without a second copy.
// head == tail is disambiguated by the explicit full flag.
// Ring does no locking; callers serialize access.
type Ring[V any] struct {
	items []V
	head  int // next write index
	tail  int // next read index
	full  bool
}

// New returns a Ring with n slots.
func New[V any](n int) *Ring[V] {
	return NewFromSlice(make([]V, n))
}

// NewFromSlice returns a Ring backed by the given slice.
// The ring does not own items; the caller must not touch it afterwards.
func NewFromSlice[V any](items []V) *Ring[V] {
	return &Ring[V]{items: items}
}

// Init rebinds the ring to the given backing slice and resets the indices.
func (r *Ring[V]) Init(items []V) {
	r.items = items
	r.head = 0
	r.tail = 0
	r.full = false
}

// IsEmpty reports whether the ring holds no slots.
func (r *Ring[V]) IsEmpty() bool {
	return !r.full && r.head == r.tail
}

// IsFull reports whether every slot is in use.
func (r *Ring[V]) IsFull() bool {
	return r.full
}

// Len returns the number of slots in use.
func (r *Ring[V]) Len() int {
	if r.full {
		return len(r.items)
	}
	if r.head >= r.tail {
		return r.head - r.tail
	}
	return len(r.items) - r.tail + r.head
}

// Cap returns the number of slots.
func (r *Ring[V]) Cap() int {
	return len(r.items)
}

// Peek returns the next write slot, or nil if the ring is full.
// The write is not visible until Advance is called.
func (r *Ring[V]) Peek() *V {
	if r.full {
		return nil
	}
	return &r.items[r.head]
}

// Advance commits the slot returned by Peek.
func (r *Ring[V]) Advance() {
	r.head++
	if r.head == len(r.items) {
		r.head = 0
	}
	r.full = r.head == r.tail
}

// Pop returns the oldest slot and retreats the read index, or nil if empty.
// The slot stays valid only until the next Peek/Advance reuses it.
func (r *Ring[V]) Pop() *V {
	if r.IsEmpty() {
		return nil
	}
	v := &r.items[r.tail]
	r.full = false
	r.tail++
	if r.tail == len(r.items) {
		r.tail = 0
	}
	return v
}
