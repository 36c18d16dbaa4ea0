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
	"fmt"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/target"
)

// Savings is the estimated benefit of applying a pattern once.
type Savings struct {
	Bytes  int
	Cycles int
}

func (s Savings) IsZero() bool {
	return s.Bytes == 0 && s.Cycles == 0
}

// Form is the mnemonic and operand shape of an instruction a pattern may emit.
type Form struct {
	Mnemonic asm.Mnemonic
	Shape    asm.Shape
	// Example is the instruction the form was derived from
	Example string
}

// FormOf returns the form of the given example instruction, e.g. "LD B,C".
func FormOf(line string) Form {
	instruction := asm.MustParseInstruction(line)
	return Form{
		Mnemonic: instruction.Mnemonic,
		Shape:    instruction.Shape(),
		Example:  instruction.String(),
	}
}

func (f Form) String() string {
	if f.Example != "" {
		return f.Example
	}
	return f.Mnemonic.String()
}

func formsOf(lines ...string) []Form {
	forms := make([]Form, 0, len(lines))
	for _, line := range lines {
		forms = append(forms, FormOf(line))
	}
	return forms
}

// IsLegal returns true if the target can encode the form.
func (f Form) IsLegal(t target.Target) bool {
	return target.IsLegal(f.Mnemonic, f.Shape, t)
}

// Binding is the result of a successful match:
// the matched window, and the operands captured by the pattern.
type Binding struct {
	Window   []asm.Instruction
	Captures map[string]asm.Operand
}

// Capture returns the operand captured under the given name.
func (b Binding) Capture(name string) asm.Operand {
	return b.Captures[name]
}

// MatchFunc decides whether a pattern applies to the window.
// The context gives access to the whole unit, e.g. to check flag liveness.
type MatchFunc func(ctx *Context, window []asm.Instruction) (Binding, bool)

// RewriteFunc produces the replacement for a matched window.
// It must not modify the window.
type RewriteFunc func(binding Binding) []asm.Instruction

// Pattern is a rewrite rule over a fixed-size window of instructions.
type Pattern struct {
	ID          string
	Description string
	WindowSize  int
	// Targets is the set of targets the pattern applies to
	Targets target.Set
	Savings Savings
	// TransfersLabel allows the label of the window's first instruction
	// to move to the first instruction of the replacement,
	// or to the following instruction if the replacement is empty
	TransfersLabel bool
	// Emits lists the forms of the instructions the pattern may produce,
	// apart from instructions of the window it keeps
	Emits   []Form
	Match   MatchFunc
	Rewrite RewriteFunc
}

// AppliesTo returns true if the pattern is enabled for the target,
// and every form it emits is legal on the target.
func (p *Pattern) AppliesTo(t target.Target) bool {
	if !p.Targets.Contains(t) {
		return false
	}
	for _, form := range p.Emits {
		if !form.IsLegal(t) {
			return false
		}
	}
	return true
}

func (p *Pattern) validate() error {
	invalid := func(reason string, args ...any) error {
		return &InvalidPatternError{
			PatternID: p.ID,
			Reason:    fmt.Sprintf(reason, args...),
		}
	}

	switch {
	case p.ID == "":
		return invalid("missing ID")
	case p.WindowSize < 1:
		return invalid("window size must be at least 1, got %d", p.WindowSize)
	case p.Savings.Bytes < 0 || p.Savings.Cycles < 0:
		return invalid("savings must not be negative")
	case p.Savings.IsZero():
		return invalid("savings must not be zero")
	case p.Match == nil:
		return invalid("missing match function")
	case p.Rewrite == nil:
		return invalid("missing rewrite function")
	}

	return nil
}
