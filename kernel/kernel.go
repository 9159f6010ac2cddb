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

// Package kernel is a cooperative, priority-preemptive active-object runtime
// for single-stack targets. Firmware is structured as active objects that
// exchange fixed-size messages, react to timed events and run each handler to
// completion; preemption happens only across AO boundaries, deferred to the
// platform's PendSV delivery on interrupt exit.
//
// There is no blocking primitive anywhere: a full queue is reported, never
// waited on, and handlers must not suspend.
package kernel

import (
	"github.com/rkalnins/rmkernel/port"
)

// NoPriority is the current-priority value while no AO is active. 0 is the
// highest priority; 0xFF is reserved.
const NoPriority = 0xFF

// EventLogMsgID is reserved for trace records posted as messages.
const EventLogMsgID = 999

// TraceOp tags a trace record with the point that emitted it.
type TraceOp uint8

const (
	// TraceHandle is emitted just before a message is handed to a handler.
	TraceHandle TraceOp = iota
	// TraceQueue is emitted when a message is copied into a queue.
	TraceQueue
)

// Callbacks are the hooks an application may supply to Init. All optional.
type Callbacks struct {
	OnInit func() // end of Init
	OnIdle func() // scheduler idle loop
	OnTick func() // end of each SysTick

	// OnTrace observes the queue and handle point of every message.
	OnTrace func(ao uint8, msg uint32, op TraceOp)
}

// OS is the kernel instance. Create one, hand it to Init, never destroy it.
type OS struct {
	time        uint32 // tick count (ms)
	currentPrio uint8  // priority of the active AO, NoPriority if none
	nesting     uint8  // ISR nesting depth

	onInit  func()
	onIdle  func()
	onTick  func()
	onTrace func(uint8, uint32, TraceOp)
}

// process-wide instance and list heads, reset by Init
var (
	osPtr       *OS
	activatedAO *ActiveObject // ready list head, doubly linked
	timedEvents *TimedEvent   // timed event list head, singly linked
)

// Init brings up the kernel instance: records the hooks, zeroes the tick
// counter and the ready and timed-event lists, and publishes os as the
// process-wide instance. Install the platform with port.Use first. Invokes
// OnInit last, if present.
func Init(os *OS, cfg *Callbacks) {
	if cfg != nil {
		os.onInit = cfg.OnInit
		os.onIdle = cfg.OnIdle
		os.onTick = cfg.OnTick
		os.onTrace = cfg.OnTrace
	}

	os.time = 0
	os.currentPrio = NoPriority
	os.nesting = 0

	osPtr = os
	activatedAO = nil
	timedEvents = nil

	if os.onInit != nil {
		os.onInit()
	}
}

// Instance returns the kernel instance published by Init.
func Instance() *OS {
	return osPtr
}

// Time returns the tick count in milliseconds since Init.
func Time() uint32 {
	var t uint32
	port.Critical(func() {
		t = osPtr.time
	})
	return t
}

// CurrentPriority returns the priority of the active AO, or NoPriority.
func (os *OS) CurrentPriority() uint8 {
	return os.currentPrio
}

// Nesting returns the current ISR nesting depth.
func (os *OS) Nesting() uint8 {
	return os.nesting
}

func trace(ao uint8, msg uint32, op TraceOp) {
	if osPtr.onTrace != nil {
		osPtr.onTrace(ao, msg, op)
	}
}
