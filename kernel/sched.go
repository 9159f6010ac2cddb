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
	"github.com/rkalnins/rmkernel/port"
)

// Run enters the scheduler idle loop after Init. It never returns; AO
// activation is initiated from outside this loop by the port's PendSV
// delivery.
func Run() {
	for {
		if osPtr.onIdle != nil {
			osPtr.onIdle()
		}
	}
}

// Schedule reports whether the head of the ready list preempts the current
// execution priority. The ISR exit path calls it with interrupts masked and
// raises PendSV when it returns true.
func Schedule() bool {
	return activatedAO != nil && activatedAO.priority < osPtr.currentPrio
}

// AddReady links ao into the ready list at its priority position. Idempotent
// for the active AO and for the list head; an AO that is already ready is
// unlinked and reinserted. Ties go last within their priority, and the active
// head is never displaced: an arrival that outranks it is sorted into the
// list behind it, to be picked up once the current drain finishes.
//
// The caller must hold the interrupt mask. Post does; ISRs ready AOs through
// Post rather than calling this directly.
func AddReady(ao *ActiveObject) {
	// already running, or already first in line
	if ao.state == StateActive || ao == activatedAO {
		return
	}

	// unlink to reinsert at the right position, the list may have moved on
	if ao.state == StateReady {
		if ao.prev != nil {
			ao.prev.next = ao.next
		}
		if ao.next != nil {
			ao.next.prev = ao.prev
		}
		ao.next = nil
		ao.prev = nil
	}

	if activatedAO == nil {
		activatedAO = ao
	} else {
		temp := activatedAO
		var parent *ActiveObject

		// never interrupt the running AO, start the walk behind it
		if temp.state == StateActive {
			parent = temp
			temp = temp.next
		}
		for temp != nil && temp.priority <= ao.priority {
			parent = temp
			temp = temp.next
		}

		if parent == nil {
			// new head
			ao.next = activatedAO
			activatedAO.prev = ao
			activatedAO = ao
		} else {
			ao.next = temp
			ao.prev = parent
			parent.next = ao
			if temp != nil {
				temp.prev = ao
			}
		}
	}

	ao.state = StateReady
}

// ActivateAO is the AO activator: it runs the head of the ready list to
// queue-empty, retires it, and repeats until the list drains. The platform
// invokes it on PendSV. List mutations happen with interrupts masked;
// handlers run with interrupts enabled, so arrivals during a drain are queued
// behind the current AO and picked up before the activator returns.
func ActivateAO() {
	p := port.Active()
	p.DisableInterrupts()

	for activatedAO != nil {
		ao := activatedAO
		ao.state = StateActive
		osPtr.currentPrio = ao.priority

		// drain the queue, run-to-completion per message
		for !ao.queue.ring.IsEmpty() {
			msg := ao.getLocked()
			p.EnableInterrupts()

			trace(ao.id, msg.ID, TraceHandle)
			ao.handler(msg)

			p.DisableInterrupts()
		}

		// the mask is still held, so no arrival can slip in between the
		// empty check and retirement
		activateNextLocked()
	}

	p.EnableInterrupts()
}

// activateNextLocked retires the active head and advances the list.
func activateNextLocked() {
	prev := activatedAO
	prev.state = StateWaiting

	activatedAO = prev.next
	prev.next = nil
	prev.prev = nil

	if activatedAO != nil {
		activatedAO.prev = nil
	} else {
		// quiescent
		osPtr.currentPrio = NoPriority
	}
}

// ISREnter marks entry into an application ISR.
func ISREnter() {
	port.Critical(func() {
		osPtr.nesting++
	})
}

// ISRExit must run at the end of every application ISR. With interrupts
// masked it asks Schedule whether a higher-priority AO became ready and, if
// so, raises PendSV so that activation tail-chains onto the interrupt
// return. The trailing barrier flushes the PendSV store on targets with a
// write buffer (ARM erratum 838869).
func ISRExit() {
	p := port.Active()
	p.DisableInterrupts()
	if osPtr.nesting > 0 {
		osPtr.nesting--
	}
	if Schedule() {
		p.RaisePendSV()
	}
	p.EnableInterrupts()
	p.DataSyncBarrier()
}
