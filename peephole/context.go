/*
 * upeep80 - Universal peephole optimizer for the Intel 8080 and Zilog Z80
 *
 * Copyright upeep80 authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package peephole

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/target"
)

// Context is the view of the unit a pattern matches in.
//
// It is a snapshot of the unit at the start of the current pass:
// rewrites applied earlier in the same pass are not visible.
type Context struct {
	Instructions []asm.Instruction
	// Index is the position of the window's first instruction
	Index  int
	Target target.Target
	Costs  *target.CostModel

	labels map[string]int
	live   asm.LabelSet
	// liveLines has a bit set for each line that defines a live label
	liveLines *bitset.BitSet
}

func newContext(
	instructions []asm.Instruction,
	t target.Target,
	costs *target.CostModel,
) *Context {
	labels := asm.Labels(instructions)
	live := asm.LiveLabels(instructions)

	liveLines := bitset.New(uint(len(instructions)))
	for label := range live { //nolint:maprange
		liveLines.Set(uint(labels[label]))
	}

	return &Context{
		Instructions: instructions,
		Target:       t,
		Costs:        costs,
		labels:       labels,
		live:         live,
		liveLines:    liveLines,
	}
}

// IsLive returns true if the label is referenced anywhere in the unit.
func (c *Context) IsLive(label string) bool {
	return c.live.Contains(label)
}

// hasLiveLabel returns true if the line at the given index defines a live label.
func (c *Context) hasLiveLabel(index int) bool {
	return c.liveLines.Test(uint(index))
}

// LabelIndex returns the index of the line defining the label.
func (c *Context) LabelIndex(label string) (int, bool) {
	index, ok := c.labels[label]
	return index, ok
}

// Resolve returns the index of the first operation at or after the line defining the label,
// i.e. the instruction a jump to the label executes next.
func (c *Context) Resolve(label string) (int, bool) {
	index, ok := c.labels[label]
	if !ok {
		return 0, false
	}
	for ; index < len(c.Instructions); index++ {
		if c.Instructions[index].IsOperation() {
			return index, true
		}
	}
	return 0, false
}

// FollowsWindow returns true if the label is defined right after a window of the given size,
// with nothing but blank lines, comments and other labels in between.
func (c *Context) FollowsWindow(windowSize int, label string) bool {
	for index := c.Index + windowSize; index < len(c.Instructions); index++ {
		instruction := c.Instructions[index]
		if instruction.Label == label {
			return true
		}
		if instruction.IsOperation() {
			return false
		}
	}
	return false
}

// FlagsDeadAfter returns true if the given flags are dead
// when execution falls through a window of the given size.
func (c *Context) FlagsDeadAfter(windowSize int, flags Flags) bool {
	return newFlagScan(c.Instructions, c.labels, c.Target).dead(c.Index+windowSize, flags)
}

// FlagsDeadAt returns true if the given flags are dead
// when execution continues at the label.
// Flags are live at labels outside the unit.
func (c *Context) FlagsDeadAt(label string, flags Flags) bool {
	index, ok := c.labels[label]
	if !ok {
		return false
	}
	return newFlagScan(c.Instructions, c.labels, c.Target).dead(index, flags)
}

// Size returns the encoded size of the instructions in the range [from, to).
// The size is unknown if the range contains an instruction of unknown cost.
func (c *Context) Size(from, to int) (int, bool) {
	if from < 0 || to > len(c.Instructions) || from > to {
		return 0, false
	}
	total, complete := c.Costs.Total(c.Instructions[from:to], c.Target)
	if !complete {
		return 0, false
	}
	return total.Bytes, true
}

// InRelativeRange returns true if a relative jump of the given size,
// replacing the window of the given size, can reach the label.
// The jump's displacement is relative to the end of the jump,
// and must lie between -128 and 127.
func (c *Context) InRelativeRange(windowSize int, jumpSize int, label string) bool {
	index, ok := c.labels[label]
	if !ok {
		return false
	}

	end := c.Index + windowSize

	switch {
	case index <= c.Index:
		size, ok := c.Size(index, c.Index)
		return ok && size+jumpSize <= 128

	case index >= end:
		size, ok := c.Size(end, index)
		return ok && size <= 127

	default:
		return false
	}
}
