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

// Package hostsim is a development-host platform for the kernel. It models
// the interrupt mask with a mutex, PendSV with a coalescing pending bit
// drained by a background activator, and SysTick with a ticker goroutine, so
// kernel code runs unmodified on a laptop for tests and bring-up.
package hostsim

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/bytedance/gopkg/util/gopool"

	"github.com/rkalnins/rmkernel/kernel"
)

// Machine implements port.Port on the host. Install it with port.Use before
// kernel.Init, then Start it to drive ticks and PendSV delivery.
type Machine struct {
	mask sync.Mutex

	pendsv chan struct{} // pending bit, capacity 1
	stop   chan struct{}
	wg     sync.WaitGroup
}

// New returns a stopped machine.
func New() *Machine {
	return &Machine{
		pendsv: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
}

// DisableInterrupts acquires the interrupt mask.
func (m *Machine) DisableInterrupts() {
	m.mask.Lock()
}

// EnableInterrupts releases the interrupt mask.
func (m *Machine) EnableInterrupts() {
	m.mask.Unlock()
}

// RaisePendSV sets the pending bit. Requests coalesce, like the hardware
// bit: the activator runs once per pending request, after the raising
// context unwinds.
func (m *Machine) RaisePendSV() {
	select {
	case m.pendsv <- struct{}{}:
	default:
	}
}

// DataSyncBarrier is a no-op on the host.
func (m *Machine) DataSyncBarrier() {}

// Start launches the SysTick driver at the given period and the PendSV
// activator pump. Call after kernel.Init.
func (m *Machine) Start(tick time.Duration) {
	m.wg.Add(2)

	gopool.Go(func() {
		defer m.wg.Done()
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-t.C:
				kernel.SysTick()
			}
		}
	})

	gopool.Go(func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.stop:
				return
			case <-m.pendsv:
				kernel.ActivateAO()
			}
		}
	})
}

// Stop halts the tick driver and the activator pump. Call once.
func (m *Machine) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// ISR injects a device interrupt: body runs on a pooled worker framed by the
// kernel's ISR enter/exit protocol, so any AO it readies is activated via
// PendSV.
func (m *Machine) ISR(body func()) {
	gopool.Go(func() {
		kernel.ISREnter()
		body()
		kernel.ISRExit()
	})
}

// TraceSink returns a kernel trace hook that writes one record per line to
// w. Records are formatted in mcache scratch buffers; the hook runs on the
// kernel's queue and handle paths and must stay cheap.
func TraceSink(w io.Writer) func(ao uint8, msg uint32, op kernel.TraceOp) {
	return func(ao uint8, msg uint32, op kernel.TraceOp) {
		buf := mcache.Malloc(0, 48)
		if op == kernel.TraceQueue {
			buf = append(buf, "queue  ao="...)
		} else {
			buf = append(buf, "handle ao="...)
		}
		buf = strconv.AppendUint(buf, uint64(ao), 10)
		buf = append(buf, " msg="...)
		buf = strconv.AppendUint(buf, uint64(msg), 10)
		buf = append(buf, '\n')
		w.Write(buf)
		mcache.Free(buf)
	}
}
