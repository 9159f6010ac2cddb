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
	"unsafe"

	"github.com/rkalnins/rmkernel/mempool"
)

// MessageMaxSize is the queue slot width in bytes. Every recognized message
// shape must fit a slot; larger payloads go through the memory pool and are
// referenced by key.
const MessageMaxSize = 20

// messageMinSize is the wire footprint of the bare header, id plus size.
const messageMinSize = 5

// Generic is one queue slot, word-aligned so slot pointers can be viewed as
// message records.
type Generic struct {
	words [MessageMaxSize / 4]uint32
}

// Message is the base header every message starts with. Size is the byte
// count of the full concrete record, copied verbatim on Post; it must be in
// [5, MessageMaxSize].
type Message struct {
	ID   uint32
	Size uint8
}

// Handler consumes one dequeued message. It must run to completion without
// blocking, and must not retain m past its return: m aliases the queue slot,
// which a later Post may overwrite.
type Handler func(m *Message)

// DataMessage carries a timestamp and one word of payload.
type DataMessage struct {
	Message
	Timestamp uint32
	Data      uint32
}

// MemoryBlockMessage hands over a pool block by key. BlockSize follows the
// key's size-byte convention: the size in bytes, with 256 wrapping to zero.
type MemoryBlockMessage struct {
	Message
	Key       mempool.Key
	BlockSize uint8
}

// every recognized shape must fit a slot
var (
	_ [MessageMaxSize - unsafe.Sizeof(Message{})]byte
	_ [MessageMaxSize - unsafe.Sizeof(DataMessage{})]byte
	_ [MessageMaxSize - unsafe.Sizeof(MemoryBlockMessage{})]byte
	_ [MessageMaxSize % 4]struct{}
)

// NewMessage returns a bare message with the given id.
func NewMessage(id uint32) Message {
	return Message{ID: id, Size: uint8(unsafe.Sizeof(Message{}))}
}

// NewDataMessage returns a data message with the given id and payload.
func NewDataMessage(id, timestamp, data uint32) DataMessage {
	return DataMessage{
		Message:   Message{ID: id, Size: uint8(unsafe.Sizeof(DataMessage{}))},
		Timestamp: timestamp,
		Data:      data,
	}
}

// NewMemoryBlockMessage returns a message referencing the pool block behind
// key.
func NewMemoryBlockMessage(id uint32, key mempool.Key) MemoryBlockMessage {
	return MemoryBlockMessage{
		Message:   Message{ID: id, Size: uint8(unsafe.Sizeof(MemoryBlockMessage{}))},
		Key:       key,
		BlockSize: uint8(key >> 8),
	}
}

// AsData reinterprets m as a DataMessage. The caller matches on m.ID first;
// the view is valid only as long as m is.
func (m *Message) AsData() *DataMessage {
	return (*DataMessage)(unsafe.Pointer(m))
}

// AsMemoryBlock reinterprets m as a MemoryBlockMessage.
func (m *Message) AsMemoryBlock() *MemoryBlockMessage {
	return (*MemoryBlockMessage)(unsafe.Pointer(m))
}

// NewQueueBuffer returns backing storage for a queue of n slots.
func NewQueueBuffer(n int) []Generic {
	return make([]Generic, n)
}
