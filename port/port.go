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

// Package port defines the hardware abstraction the kernel runs on.
//
// On a real target the implementation is a thin shim over CPSID/CPSIE, the
// PendSV pending bit and DSB. On a development host the hostsim subpackage
// models the same contract with a mutex and goroutines.
package port

// Port is the platform layer consumed by the kernel.
//
// DisableInterrupts/EnableInterrupts delimit a critical section and do not
// nest. RaisePendSV requests deferred activation of ready active objects; the
// platform must eventually run the activator once per pending request, after
// the raising interrupt context has unwound. DataSyncBarrier flushes pending
// stores on targets that need it (ARM erratum 838869) and may be a no-op.
type Port interface {
	DisableInterrupts()
	EnableInterrupts()
	RaisePendSV()
	DataSyncBarrier()
}

// Nop is a Port for single-context use: bring-up code and unit tests that
// drive the kernel from one goroutine only.
type Nop struct{}

func (Nop) DisableInterrupts() {}
func (Nop) EnableInterrupts()  {}
func (Nop) RaisePendSV()       {}
func (Nop) DataSyncBarrier()   {}

// active is the process-wide port, the moral equivalent of binding the
// interrupt macros at link time. Set once by Use before Init.
var active Port = Nop{}

// Use installs the platform port. Call before kernel.Init.
func Use(p Port) {
	active = p
}

// Active returns the installed port.
func Active() Port {
	return active
}

// Critical runs f with interrupts masked.
func Critical(f func()) {
	active.DisableInterrupts()
	f()
	active.EnableInterrupts()
}
