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
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkalnins/rmkernel/port"
)

// countingPort records PendSV and barrier activity on top of the nop port.
type countingPort struct {
	port.Nop
	onPendSV func()
	barriers int
}

func (p *countingPort) RaisePendSV() {
	if p.onPendSV != nil {
		p.onPendSV()
	}
}

func (p *countingPort) DataSyncBarrier() {
	p.barriers++
}

func usePort(t *testing.T, p port.Port) {
	t.Helper()
	port.Use(p)
	t.Cleanup(func() {
		port.Use(port.Nop{})
	})
}

func TestInit(t *testing.T) {
	inited := false
	os := bootKernel(t, &Callbacks{OnInit: func() { inited = true }})

	assert.True(t, inited)
	assert.Same(t, os, Instance())
	assert.Equal(t, uint32(0), Time())
	assert.Equal(t, uint8(NoPriority), os.CurrentPriority())
	assert.Equal(t, uint8(0), os.Nesting())
	assert.Nil(t, activatedAO)
	assert.Nil(t, timedEvents)
}

func TestInitResetsLists(t *testing.T) {
	bootKernel(t, nil)
	ao := newTestAO(t, 10, 1, discard)
	msg := NewMessage(1)
	require.NoError(t, ao.Post(&msg))

	e := &TimedEvent{}
	e.Init(ao, &msg, 5, EventPeriodic)
	AddTimedEvent(e)

	bootKernel(t, nil)
	assert.Nil(t, activatedAO)
	assert.Nil(t, timedEvents)
	assert.False(t, Schedule())
}

func TestTraceHook(t *testing.T) {
	type record struct {
		ao  uint8
		msg uint32
		op  TraceOp
	}
	var records []record
	bootKernel(t, &Callbacks{OnTrace: func(ao uint8, msg uint32, op TraceOp) {
		records = append(records, record{ao, msg, op})
	}})

	ao := newTestAO(t, 4, 2, discard)
	msg := NewMessage(77)
	require.NoError(t, ao.Post(&msg))
	ActivateAO()

	require.Len(t, records, 2)
	assert.Equal(t, record{4, 77, TraceQueue}, records[0])
	assert.Equal(t, record{4, 77, TraceHandle}, records[1])
}

func TestMessageShapesFitSlots(t *testing.T) {
	assert.LessOrEqual(t, unsafe.Sizeof(DataMessage{}), uintptr(MessageMaxSize))
	assert.LessOrEqual(t, unsafe.Sizeof(MemoryBlockMessage{}), uintptr(MessageMaxSize))
	assert.Equal(t, uintptr(MessageMaxSize), unsafe.Sizeof(Generic{}))

	dm := NewDataMessage(1, 2, 3)
	assert.Equal(t, uint8(unsafe.Sizeof(dm)), dm.Size)
	mb := NewMemoryBlockMessage(1, 0)
	assert.Equal(t, uint8(unsafe.Sizeof(mb)), mb.Size)
}

func TestRunIdleHook(t *testing.T) {
	calls := 0
	bootKernel(t, &Callbacks{OnIdle: func() {
		calls++
		if calls == 3 {
			panic("leave idle")
		}
	}})

	assert.PanicsWithValue(t, "leave idle", Run)
	assert.Equal(t, 3, calls)
}
