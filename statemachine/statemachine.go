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

// Package statemachine chains commands into sequences driven by an active
// object's messages. An AO handler feeds each dequeued message to Step;
// instant commands complete on the spot while wait-for-end commands hold the
// machine until a message finishes them.
package statemachine

import (
	"github.com/rkalnins/rmkernel/kernel"
)

// EndBehavior tells the machine how a command completes.
type EndBehavior uint8

const (
	// Instant commands complete during Start; the machine chains straight
	// through them.
	Instant EndBehavior = iota
	// WaitForEnd commands complete when OnMessage returns true.
	WaitForEnd
)

// Command is one step of a sequence. OnMessage reports whether the command
// is done; OnMessage and OnEnd may be nil (a nil OnMessage completes on any
// message). Next links the chain, nil ends it.
type Command struct {
	OnStart   func(cmd *Command, instance interface{})
	OnMessage func(cmd *Command, msg *kernel.Message, instance interface{}) bool
	OnEnd     func(cmd *Command, instance interface{})

	EndBehavior EndBehavior
	Next        *Command
}

// StateMachine walks a command chain. Once Start has run, current between
// messages always points at a wait-for-end command, or is nil once the chain
// has ended; instant commands are never observed between messages. Init and
// Reset park the machine on the first command, whatever its end behavior.
type StateMachine struct {
	start   *Command
	current *Command
}

// Init points sm at the first command of the chain.
func (sm *StateMachine) Init(start *Command) {
	sm.start = start
	sm.current = start
}

// Current returns the command the machine is parked on, nil after the end.
func (sm *StateMachine) Current() *Command {
	return sm.current
}

// Done reports whether the chain has ended.
func (sm *StateMachine) Done() bool {
	return sm.current == nil
}

// Reset rewinds the machine to the start of its chain.
func (sm *StateMachine) Reset() {
	sm.current = sm.start
}

// Start starts the current command and chains through every instant command
// (start, then end, then advance) until a wait-for-end command or the end of
// the chain.
func (sm *StateMachine) Start(instance interface{}) {
	for sm.current != nil {
		cmd := sm.current
		if cmd.OnStart != nil {
			cmd.OnStart(cmd, instance)
		}
		if cmd.EndBehavior != Instant {
			return
		}
		if cmd.OnEnd != nil {
			cmd.OnEnd(cmd, instance)
		}
		sm.current = cmd.Next
	}
}

// Step feeds msg to the current command. A command that reports done is
// ended and the machine advances, starting whatever follows. Step returns
// true once the entire chain has ended, false while a command is still
// waiting for more messages.
func (sm *StateMachine) Step(msg *kernel.Message, instance interface{}) bool {
	if sm.current == nil {
		return true
	}

	cmd := sm.current
	done := true
	if cmd.OnMessage != nil {
		done = cmd.OnMessage(cmd, msg, instance)
	}
	if !done {
		return false
	}

	if cmd.OnEnd != nil {
		cmd.OnEnd(cmd, instance)
	}
	sm.current = cmd.Next
	sm.Start(instance)

	return sm.current == nil
}
