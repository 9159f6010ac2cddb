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

package kernel

import (
	"errors"
	"unsafe"

	"github.com/rkalnins/rmkernel/container/ring"
	"github.com/rkalnins/rmkernel/internal/hack"
	"github.com/rkalnins/rmkernel/port"
)

// ErrQueueFull is returned by Post when the destination queue has no free
// slot. The message is dropped; callers that require delivery must check it.
var ErrQueueFull = errors.New("kernel: message queue full")

// MessageQueue is a bounded ring of fixed-size slots, one per AO. The
// producer side is ISR safe; the consumer side is the activator.
type MessageQueue struct {
	ring ring.Ring[Generic]
}

// Init binds q to the given backing slots. The queue does not own buf.
func (q *MessageQueue) Init(buf []Generic) {
	if len(buf) == 0 {
		panic("kernel: message queue needs at least one slot")
	}
	q.ring.Init(buf)
}

// IsEmpty reports whether q holds no messages.
func (q *MessageQueue) IsEmpty() bool {
	return q.ring.IsEmpty()
}

// Len returns the number of queued messages.
func (q *MessageQueue) Len() int {
	return q.ring.Len()
}

// Post copies msg.Size bytes of msg into ao's queue and readies ao for
// activation. Safe from thread and ISR context. Returns ErrQueueFull without
// side effects when the queue is full. The caller keeps ownership of msg.
func (ao *ActiveObject) Post(msg *Message) error {
	var err error
	port.Critical(func() {
		err = ao.postLocked(msg)
	})
	return err
}

// postLocked is Post with the interrupt mask already held, for the tick path.
func (ao *ActiveObject) postLocked(msg *Message) error {
	if msg.Size < messageMinSize || MessageMaxSize < msg.Size {
		panic("kernel: message size out of range")
	}
	slot := ao.queue.ring.Peek()
	if slot == nil {
		return ErrQueueFull
	}
	hack.Memcpy(unsafe.Pointer(slot), unsafe.Pointer(msg), int(msg.Size))
	ao.queue.ring.Advance()
	trace(ao.id, msg.ID, TraceQueue)
	AddReady(ao)
	return nil
}

// Get dequeues the oldest message of ao's queue. Only the activator calls
// this, after IsEmpty reported false; on an empty queue it returns nil. The
// result points into the queue slot and must be consumed before the slot is
// reused by a later Post.
func (ao *ActiveObject) Get() *Message {
	var m *Message
	port.Critical(func() {
		m = ao.getLocked()
	})
	return m
}

func (ao *ActiveObject) getLocked() *Message {
	slot := ao.queue.ring.Pop()
	if slot == nil {
		return nil
	}
	return (*Message)(unsafe.Pointer(slot))
}
