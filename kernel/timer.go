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

// EventKind selects one-shot or periodic dispatch.
type EventKind uint8

const (
	// EventSingle fires once and removes itself.
	EventSingle EventKind = iota
	// EventPeriodic fires every period ticks until disabled.
	EventPeriodic
)

// TimedEvent dispatches a message to an AO when its tick count reaches the
// period. Events live in a singly-linked list walked once per SysTick.
type TimedEvent struct {
	dest   *ActiveObject
	msg    *Message
	period uint32 // ticks between dispatches
	count  uint32 // ticks since the last dispatch
	kind   EventKind
	active bool
	next   *TimedEvent
}

// Init populates e to dispatch msg to dest after period ticks, once or
// periodically. The event holds msg by reference; arm it with AddTimedEvent.
func (e *TimedEvent) Init(dest *ActiveObject, msg *Message, period uint32, kind EventKind) {
	e.dest = dest
	e.msg = msg
	e.period = period
	e.kind = kind

	e.count = 0
	e.active = true
	e.next = nil
}

// Disable cancels e. Removal is lazy: the next tick that observes the event
// unlinks it. Repeated calls are no-ops.
func (e *TimedEvent) Disable() {
	e.active = false
}

// AddTimedEvent arms e by pushing it at the head of the event list and
// restarting its countdown. Safe from thread and ISR context.
func AddTimedEvent(e *TimedEvent) {
	port.Critical(func() {
		e.count = 0

		// no self chaining when re-arming the current head
		if e != timedEvents {
			e.next = timedEvents
		}
		timedEvents = e
	})
}

// SysTick is the system tick handler. The port's tick interrupt invokes it
// once per millisecond: it advances time, walks the timed events, runs the
// tick hook and performs the ISR exit protocol.
func SysTick() {
	ISREnter()

	p := port.Active()
	p.DisableInterrupts()
	osPtr.time++
	processTimedEventsLocked()
	p.EnableInterrupts()

	if osPtr.onTick != nil {
		osPtr.onTick()
	}

	ISRExit()
}

// processTimedEventsLocked advances every event by one tick and dispatches
// the expired ones. A full destination queue drops the dispatch; single-shot
// events unlink on fire, disabled events unlink when seen. Interrupt mask
// held by the caller.
func processTimedEventsLocked() {
	head := timedEvents
	var trail *TimedEvent

	for head != nil {
		if !head.active {
			head = unlinkTimedEventLocked(head, trail)
			continue
		}

		head.count++
		if head.count >= head.period {
			_ = head.dest.postLocked(head.msg) // best effort
			head.count = 0

			if head.kind == EventSingle {
				head = unlinkTimedEventLocked(head, trail)
				continue
			}
		}

		trail = head
		head = head.next
	}
}

// unlinkTimedEventLocked splices node out between trail and node.next and
// returns the next node to visit.
func unlinkTimedEventLocked(node, trail *TimedEvent) *TimedEvent {
	next := node.next
	if timedEvents == node {
		timedEvents = next
	}
	if trail != nil {
		trail.next = next
	}
	node.next = nil
	return next
}
