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
	"sort"
	"strings"
)

// Unit is an ordered sequence of instructions, one per source line.
type Unit struct {
	Instructions []Instruction
	// unterminated is true if the source text did not end with a line terminator
	unterminated bool
}

func NewUnit(instructions []Instruction) *Unit {
	return &Unit{
		Instructions: instructions,
	}
}

// Clone returns a copy of the unit which shares no instruction storage with the receiver.
func (u *Unit) Clone() *Unit {
	instructions := make([]Instruction, len(u.Instructions))
	copy(instructions, u.Instructions)
	return u.WithInstructions(instructions)
}

// WithInstructions returns a new unit with the given instructions,
// which renders like the receiver.
func (u *Unit) WithInstructions(instructions []Instruction) *Unit {
	return &Unit{
		Instructions: instructions,
		unterminated: u.unterminated,
	}
}

// Len returns the number of lines of the unit.
func (u *Unit) Len() int {
	return len(u.Instructions)
}

// Operations returns the number of lines which have a mnemonic.
func (u *Unit) Operations() int {
	count := 0
	for _, instruction := range u.Instructions {
		if instruction.IsOperation() {
			count++
		}
	}
	return count
}

// Labels returns the index of the defining line for each label.
func (u *Unit) Labels() map[string]int {
	return Labels(u.Instructions)
}

// Labels returns the index of the defining line for each label.
func Labels(instructions []Instruction) map[string]int {
	labels := map[string]int{}
	for index, instruction := range instructions {
		if instruction.Label != "" {
			labels[instruction.Label] = index
		}
	}
	return labels
}

// LabelSet is a set of label names.
type LabelSet map[string]struct{}

func (s LabelSet) Contains(label string) bool {
	_, ok := s[label]
	return ok
}

func (s LabelSet) Add(label string) {
	s[label] = struct{}{}
}

// Sorted returns the labels in lexicographic order.
func (s LabelSet) Sorted() []string {
	labels := make([]string, 0, len(s))
	for label := range s {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// definitionsByFoldedName groups the labels defined in the instructions by their upper-cased name.
//
// Many assemblers fold the case of symbols, so a reference matches
// every definition which differs only in case.
func definitionsByFoldedName(instructions []Instruction) map[string][]string {
	definitions := map[string][]string{}
	for _, instruction := range instructions {
		label := instruction.Label
		if label == "" {
			continue
		}
		folded := strings.ToUpper(label)
		definitions[folded] = append(definitions[folded], label)
	}
	return definitions
}

func (s LabelSet) addDefinitions(definitions map[string][]string, reference string) {
	for _, label := range definitions[strings.ToUpper(reference)] {
		s.Add(label)
	}
}

// JumpTargets returns the labels defined in the unit
// which are the destination operand of a control transfer.
// References match definitions regardless of case.
func (u *Unit) JumpTargets() LabelSet {
	definitions := definitionsByFoldedName(u.Instructions)
	targets := LabelSet{}

	for _, instruction := range u.Instructions {
		operand, ok := instruction.Target()
		if !ok || operand.Kind != OperandKindImmediate {
			continue
		}
		targets.addDefinitions(definitions, operand.Key())
	}

	return targets
}

// LiveLabels returns the labels defined in the unit which are referenced anywhere,
// i.e. the jump targets, and labels referenced from any other operand,
// e.g. data references like LD HL,TABLE or directives like PUBLIC ENTRY.
//
// A label which is not referenced in the unit is assumed to be dead.
// References match definitions regardless of case,
// so a label is only dead if no spelling of it is referenced.
func (u *Unit) LiveLabels() LabelSet {
	return LiveLabels(u.Instructions)
}

// LiveLabels returns the labels defined in the given instructions which are referenced anywhere.
func LiveLabels(instructions []Instruction) LabelSet {
	definitions := definitionsByFoldedName(instructions)
	live := LabelSet{}

	for _, instruction := range instructions {
		for _, operand := range instruction.Operands {
			for _, symbol := range operand.Symbols() {
				live.addDefinitions(definitions, symbol)
			}
		}
	}

	return live
}

// ReferencesLocation returns true if any operand of the unit
// refers to the location counter.
func (u *Unit) ReferencesLocation() bool {
	for _, instruction := range u.Instructions {
		for _, operand := range instruction.Operands {
			if operand.ReferencesLocation() {
				return true
			}
		}
	}
	return false
}
