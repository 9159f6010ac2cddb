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

package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkalnins/rmkernel/kernel"
)

// journal records lifecycle calls for assertions.
type journal struct {
	calls []string
}

func (j *journal) mark(s string) func(*Command, interface{}) {
	return func(*Command, interface{}) {
		j.calls = append(j.calls, s)
	}
}

func chain(cmds ...*Command) *Command {
	for i := 0; i < len(cmds)-1; i++ {
		cmds[i].Next = cmds[i+1]
	}
	return cmds[0]
}

func TestStartChainsInstants(t *testing.T) {
	j := &journal{}
	c1 := &Command{OnStart: j.mark("c1.start"), OnEnd: j.mark("c1.end"), EndBehavior: Instant}
	c2 := &Command{
		OnStart: j.mark("c2.start"),
		OnEnd:   j.mark("c2.end"),
		OnMessage: func(cmd *Command, msg *kernel.Message, instance interface{}) bool {
			return msg.ID == 7
		},
		EndBehavior: WaitForEnd,
	}
	c3 := &Command{OnStart: j.mark("c3.start"), OnEnd: j.mark("c3.end"), EndBehavior: Instant}

	sm := &StateMachine{}
	sm.Init(chain(c1, c2, c3))
	sm.Start(nil)

	// instants chain through; the machine parks on the wait command
	assert.Equal(t, []string{"c1.start", "c1.end", "c2.start"}, j.calls)
	assert.Equal(t, c2, sm.Current())
	assert.False(t, sm.Done())

	// a message the command rejects leaves the machine in place
	j.calls = nil
	reject := kernel.NewMessage(3)
	assert.False(t, sm.Step(&reject, nil))
	assert.Empty(t, j.calls)
	assert.Equal(t, c2, sm.Current())

	// the finishing message ends c2 and runs the trailing instant
	accept := kernel.NewMessage(7)
	assert.True(t, sm.Step(&accept, nil))
	assert.Equal(t, []string{"c2.end", "c3.start", "c3.end"}, j.calls)
	assert.True(t, sm.Done())
	assert.Nil(t, sm.Current())
}

func TestAllInstantChainEnds(t *testing.T) {
	j := &journal{}
	c1 := &Command{OnStart: j.mark("c1.start"), EndBehavior: Instant}
	c2 := &Command{OnStart: j.mark("c2.start"), EndBehavior: Instant}

	sm := &StateMachine{}
	sm.Init(chain(c1, c2))
	sm.Start(nil)

	assert.Equal(t, []string{"c1.start", "c2.start"}, j.calls)
	assert.True(t, sm.Done())
}

func TestNilOnMessageCompletesOnAnyMessage(t *testing.T) {
	j := &journal{}
	c := &Command{OnStart: j.mark("start"), OnEnd: j.mark("end"), EndBehavior: WaitForEnd}

	sm := &StateMachine{}
	sm.Init(c)
	sm.Start(nil)
	require.Equal(t, c, sm.Current())

	msg := kernel.NewMessage(1)
	assert.True(t, sm.Step(&msg, nil))
	assert.Equal(t, []string{"start", "end"}, j.calls)
}

func TestSequentialWaitCommands(t *testing.T) {
	var got []uint32
	wait := func(want uint32) *Command {
		return &Command{
			OnMessage: func(cmd *Command, msg *kernel.Message, instance interface{}) bool {
				got = append(got, msg.ID)
				return msg.ID == want
			},
			EndBehavior: WaitForEnd,
		}
	}

	sm := &StateMachine{}
	sm.Init(chain(wait(1), wait(2)))
	sm.Start(nil)

	m1 := kernel.NewMessage(1)
	m2 := kernel.NewMessage(2)
	assert.False(t, sm.Step(&m1, nil)) // first done, second now current
	assert.True(t, sm.Step(&m2, nil))
	assert.Equal(t, []uint32{1, 2}, got)
}

func TestInstanceDataThreadsThrough(t *testing.T) {
	type counter struct{ n int }

	c := &Command{
		OnStart: func(cmd *Command, instance interface{}) {
			instance.(*counter).n++
		},
		OnMessage: func(cmd *Command, msg *kernel.Message, instance interface{}) bool {
			instance.(*counter).n += 10
			return true
		},
		OnEnd: func(cmd *Command, instance interface{}) {
			instance.(*counter).n += 100
		},
		EndBehavior: WaitForEnd,
	}

	data := &counter{}
	sm := &StateMachine{}
	sm.Init(c)
	sm.Start(data)
	msg := kernel.NewMessage(1)
	assert.True(t, sm.Step(&msg, data))
	assert.Equal(t, 111, data.n)
}

func TestStepAfterEnd(t *testing.T) {
	sm := &StateMachine{}
	sm.Init(nil)
	sm.Start(nil)
	msg := kernel.NewMessage(1)
	assert.True(t, sm.Step(&msg, nil))
	assert.True(t, sm.Done())
}

func TestReset(t *testing.T) {
	c := &Command{EndBehavior: WaitForEnd}
	sm := &StateMachine{}
	sm.Init(c)
	msg := kernel.NewMessage(1)
	assert.True(t, sm.Step(&msg, nil))
	require.True(t, sm.Done())

	sm.Reset()
	assert.Equal(t, c, sm.Current())
	assert.False(t, sm.Done())
}
