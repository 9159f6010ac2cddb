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

// Package mempool is a fixed-block allocator for message payloads that do not
// fit a queue slot. Blocks come from one static arena in 32 byte quanta and
// are addressed by a 16 bit key that encodes its own size and offset, so Get
// and Free need no side table.
package mempool

import (
	"errors"

	"github.com/bytedance/gopkg/lang/dirtmake"

	"github.com/rkalnins/rmkernel/port"
)

const (
	// PoolSize is the arena capacity in bytes.
	PoolSize = 512

	// Quantum is the allocation granularity. The used bitmap carries one bit
	// per quantum.
	Quantum = 32

	quanta = PoolSize / Quantum
)

// Valid block sizes for Alloc.
const (
	Block32  = 32
	Block64  = 64
	Block128 = 128
	Block256 = 256
)

var (
	// ErrBlockFull is returned by Alloc when no free run of quanta fits the
	// requested size.
	ErrBlockFull = errors.New("mempool: no free block")
	// ErrBadSize is returned by Alloc for a size outside the block classes.
	ErrBadSize = errors.New("mempool: invalid block size")
	// ErrBadKey is returned by Free when the key does not decode to an
	// aligned in-range block.
	ErrBadKey = errors.New("mempool: invalid key")
)

// block contents are always written before being read, no need to zero
var pool = dirtmake.Bytes(PoolSize, PoolSize)

// used has bit i set while quantum i is allocated
var used uint32

// Key is a self-describing block handle: the high byte is the block size in
// bytes (256 wraps to zero) and the low byte the quantum index of the block
// in the arena.
type Key uint16

// NewKey builds the handle for a block of the given size at the given
// quantum index. The size byte of a 256 byte block truncates to zero; Size
// decodes it back.
func NewKey(size, index int) Key {
	return Key(size<<8 | index)
}

// Size returns the block size in bytes encoded in the key.
func (k Key) Size() int {
	if s := int(k >> 8); s != 0 {
		return s
	}
	return Block256
}

// Index returns the quantum index of the block in the arena.
func (k Key) Index() int {
	return int(k & 0xFF)
}

// Offset returns the byte offset of the block in the arena.
func (k Key) Offset() int {
	return k.Index() * Quantum
}

func (k Key) valid() bool {
	size := k.Size()
	switch size {
	case Block32, Block64, Block128, Block256:
	default:
		return false
	}
	return k.Index()%(size/Quantum) == 0 && k.Offset()+size <= PoolSize
}

// mask returns the used bits covered by the key's block, shifted into place.
func (k Key) mask() uint32 {
	bits := uint32(k.Size() / Quantum)
	return (1<<bits - 1) << k.Index()
}

// Alloc reserves a block of the given size, one of Block32..Block256.
// Blocks are aligned to their own size, so a 64 byte block lands only on even
// quantum indices. Returns the block, its key, and ErrBlockFull when no
// aligned run of quanta is free.
func Alloc(size int) (block []byte, key Key, err error) {
	switch size {
	case Block32, Block64, Block128, Block256:
	default:
		return nil, 0, ErrBadSize
	}

	blockBits := size / Quantum
	searchMask := uint32(1<<blockBits - 1)

	// the scan is the only reader of used, masking interrupts around the
	// read-modify-write is enough on a single core
	port.Critical(func() {
		for i := 0; i+blockBits <= quanta; i += blockBits {
			if used&searchMask == 0 {
				used |= searchMask
				key = NewKey(size, i)
				off := i * Quantum
				block = pool[off : off+size : off+size]
				return
			}
			searchMask <<= blockBits
		}
	})

	if block == nil {
		return nil, 0, ErrBlockFull
	}
	return block, key, nil
}

// Get returns the block addressed by key. O(1), no validation; passing a key
// that was never returned by Alloc reads an arbitrary arena window, and
// panics if that window runs past the end of the arena.
func Get(key Key) []byte {
	off, size := key.Offset(), key.Size()
	return pool[off : off+size : off+size]
}

// Free releases the block addressed by key so it can be handed out again.
// Freeing an already free block is a no-op.
func Free(key Key) error {
	if !key.valid() {
		return ErrBadKey
	}
	clear := ^key.mask()
	port.Critical(func() {
		used &= clear
	})
	return nil
}
