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

	"github.com/upeep80/upeep80/errors"
)

// Parse parses assembly text into a unit, one instruction per line.
//
// Blank lines, comment-only lines and label-only lines are kept,
// so that rendering an unmodified unit reproduces the text.
// A line terminator at the end of the text does not produce an additional line.
func Parse(text string) (*Unit, error) {
	lines := splitLines(text)

	instructions := make([]Instruction, 0, len(lines))
	definitions := map[string]int{}

	for index, line := range lines {
		lineNumber := index + 1

		instruction, err := parseLine(line, lineNumber)
		if err != nil {
			return nil, err
		}

		if label := instruction.Label; label != "" {
			if previous, ok := definitions[label]; ok {
				return nil, &ParseError{
					Line:         lineNumber,
					Column:       strings.Index(line, label) + 1,
					Reason:       "label `" + label + "` is already defined",
					PreviousLine: previous,
				}
			}
			definitions[label] = lineNumber
		}

		instructions = append(instructions, instruction)
	}

	unit := NewUnit(instructions)
	unit.unterminated = text != "" && !strings.HasSuffix(text, "\n")
	return unit, nil
}

// ParseInstruction parses a single line.
func ParseInstruction(line string) (Instruction, error) {
	return parseLine(strings.TrimRight(line, "\r\n"), 1)
}

// MustParseInstruction parses a single line, and panics if it is invalid.
func MustParseInstruction(line string) Instruction {
	instruction, err := ParseInstruction(line)
	if err != nil {
		panic(errors.NewUnexpectedError("invalid instruction %q: %w", line, err))
	}
	return instruction
}

func parseLine(line string, lineNumber int) (Instruction, error) {
	fields, err := lexLine(line, lineNumber)
	if err != nil {
		return Instruction{}, err
	}

	instruction := Instruction{
		Label:   fields.label.text,
		Comment: fields.comment,
		Line:    lineNumber,
		source:  line,
	}

	if fields.mnemonic.text != "" {
		mnemonic := LookupMnemonic(fields.mnemonic.text)
		instruction.Mnemonic = mnemonic
		instruction.Name = fields.mnemonic.text

		count := len(fields.operands)
		if count > 0 {
			instruction.Operands = make([]Operand, count)
			for index, operand := range fields.operands {
				instruction.Operands[index] = ParseOperand(mnemonic, index, count, operand.text)
			}
		}
	}

	return instruction, nil
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for index, line := range lines {
		lines[index] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
