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

package asm

import (
	"strings"

	"github.com/upeep80/upeep80/common"
)

// Instruction is one line of an assembly unit.
//
// A line without an operation (Mnemonic is MnemonicNone) is either
// blank, a comment, or only defines a label.
// A line with an unknown mnemonic, e.g. an assembler directive,
// is carried through unchanged and never rewritten.
type Instruction struct {
	Label    string
	Mnemonic Mnemonic
	// Name is the mnemonic as written
	Name     string
	Operands []Operand
	Comment  string
	// Line is the 1-based source line the instruction originates from
	Line int
	// source is the original text of the line. It is empty for new instructions,
	// which are rendered canonically
	source string
}

// NewInstruction returns a new instruction for the given mnemonic and operands.
func NewInstruction(mnemonic Mnemonic, operands ...Operand) Instruction {
	return Instruction{
		Mnemonic: mnemonic,
		Name:     mnemonic.String(),
		Operands: operands,
	}
}

// NewLabel returns a new line which only defines the given label.
func NewLabel(label string) Instruction {
	return Instruction{
		Label: label,
	}
}

// IsOperation returns true if the line has a mnemonic.
func (i Instruction) IsOperation() bool {
	return i.Mnemonic != MnemonicNone
}

// IsTrivia returns true for blank lines, comment-only lines and label-only lines.
func (i Instruction) IsTrivia() bool {
	return i.Mnemonic == MnemonicNone
}

// IsOpaque returns true for operations outside the closed mnemonic set.
func (i Instruction) IsOpaque() bool {
	return i.Mnemonic == MnemonicUnknown
}

// Source returns the original text of the line,
// or the empty string if the instruction is new.
func (i Instruction) Source() string {
	return i.source
}

// Shape returns the operand shape of the instruction.
func (i Instruction) Shape() Shape {
	shape := make(Shape, len(i.Operands))
	for index, operand := range i.Operands {
		shape[index] = operand.Shape()
	}
	return shape
}

// Is returns true if the instruction has the given mnemonic and operand count.
func (i Instruction) Is(mnemonic Mnemonic, operandCount int) bool {
	return i.Mnemonic == mnemonic &&
		len(i.Operands) == operandCount
}

// Target returns the destination operand of a control transfer.
func (i Instruction) Target() (Operand, bool) {
	if !i.Mnemonic.TakesTarget() || len(i.Operands) == 0 {
		return Operand{}, false
	}
	return i.Operands[len(i.Operands)-1], true
}

// Condition returns the condition of a conditional control transfer.
func (i Instruction) Condition() (Condition, bool) {
	if len(i.Operands) == 0 || i.Operands[0].Kind != OperandKindCondition {
		return ConditionNone, false
	}
	return i.Operands[0].Condition, true
}

// IsUnconditionalJump returns true for JP and JR without a condition,
// to an immediate destination.
func (i Instruction) IsUnconditionalJump() bool {
	if (i.Mnemonic != MnemonicJP && i.Mnemonic != MnemonicJR) ||
		len(i.Operands) != 1 {

		return false
	}
	return i.Operands[0].Kind == OperandKindImmediate
}

// WithLabel returns a copy of the instruction with the given label.
// The copy is rendered canonically.
func (i Instruction) WithLabel(label string) Instruction {
	i.Label = label
	i.source = ""
	return i
}

// WithoutLabel returns a copy of the instruction without a label.
func (i Instruction) WithoutLabel() Instruction {
	return i.WithLabel("")
}

// WithOperands returns a copy of the instruction with the given operands.
func (i Instruction) WithOperands(operands ...Operand) Instruction {
	i.Operands = operands
	i.source = ""
	return i
}

// WithLine returns a copy of the instruction attributed to the given source line.
func (i Instruction) WithLine(line int) Instruction {
	i.Line = line
	return i
}

// Equal returns true if both instructions have the same label, operation and comment.
// The source text and line are not compared.
func (i Instruction) Equal(other Instruction) bool {
	if i.Label != other.Label ||
		i.Mnemonic != other.Mnemonic ||
		i.Comment != other.Comment ||
		!common.EqualSlices(i.Operands, other.Operands) {

		return false
	}

	if i.Mnemonic == MnemonicUnknown &&
		i.Name != other.Name {

		return false
	}

	// Unknown operations and trivia are compared verbatim
	if i.Mnemonic == MnemonicUnknown || i.Mnemonic == MnemonicNone {
		for index, operand := range i.Operands {
			if operand.Text != other.Operands[index].Text {
				return false
			}
		}
	}

	return true
}

// SameOperation returns true if both instructions perform the same operation,
// ignoring labels and comments.
func (i Instruction) SameOperation(other Instruction) bool {
	return i.WithLabel("").withoutComment().Equal(other.WithLabel("").withoutComment())
}

func (i Instruction) withoutComment() Instruction {
	i.Comment = ""
	return i
}

// String returns the canonical rendering of the instruction, without label and comment.
func (i Instruction) String() string {
	var b strings.Builder

	if i.Mnemonic == MnemonicUnknown {
		b.WriteString(i.Name)
	} else {
		b.WriteString(i.Mnemonic.String())
	}

	for index, operand := range i.Operands {
		if index == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(operand.String())
	}

	return b.String()
}
