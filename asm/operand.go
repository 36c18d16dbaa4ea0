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
	"unicode"
)

//go:generate go run golang.org/x/tools/cmd/stringer -type=OperandKind

// OperandKind classifies an operand by its addressing mode.
type OperandKind uint8

const (
	OperandKindUnknown OperandKind = iota
	// OperandKindRegister is an 8-bit register, e.g. A or IXH
	OperandKindRegister
	// OperandKindRegisterPair is a 16-bit register, e.g. HL or AF'
	OperandKindRegisterPair
	// OperandKindCondition is the condition of a conditional control transfer
	OperandKindCondition
	// OperandKindRegisterIndirect is a memory or port operand addressed by a register, e.g. (HL) or (C)
	OperandKindRegisterIndirect
	// OperandKindIndexed is a memory operand addressed by an index register, e.g. (IX+5)
	OperandKindIndexed
	// OperandKindAddress is a memory or port operand at a direct address, e.g. (1234H)
	OperandKindAddress
	// OperandKindImmediate is an immediate expression, which includes label references
	OperandKindImmediate
	// OperandKindString is a quoted string or character literal
	OperandKindString
)

// Operand is a single operand of an instruction.
//
// Text holds the operand as written.
// Register, Condition, Displacement and Expression are filled in
// depending on the kind of the operand.
type Operand struct {
	Kind         OperandKind
	Register     Register
	Condition    Condition
	Displacement string
	Expression   string
	Text         string
}

// Reg returns an operand for the given register.
func Reg(r Register) Operand {
	kind := OperandKindRegister
	if r.IsPair() {
		kind = OperandKindRegisterPair
	}
	return Operand{
		Kind:     kind,
		Register: r,
		Text:     r.String(),
	}
}

// Cond returns an operand for the given condition.
func Cond(c Condition) Operand {
	return Operand{
		Kind:      OperandKindCondition,
		Condition: c,
		Text:      c.String(),
	}
}

// Indirect returns an operand addressed by the given register, e.g. (HL).
func Indirect(r Register) Operand {
	return Operand{
		Kind:     OperandKindRegisterIndirect,
		Register: r,
		Text:     "(" + r.String() + ")",
	}
}

// Imm returns an immediate operand for the given expression.
func Imm(expression string) Operand {
	return Operand{
		Kind:       OperandKindImmediate,
		Expression: expression,
		Text:       expression,
	}
}

// Addr returns a direct address operand for the given expression, e.g. (1234H).
func Addr(expression string) Operand {
	return Operand{
		Kind:       OperandKindAddress,
		Expression: expression,
		Text:       "(" + expression + ")",
	}
}

// ParseOperand classifies the operand text at the given position of an instruction.
//
// The letter C is a condition only in the condition position of JP, JR, CALL and RET,
// and a register everywhere else.
func ParseOperand(mnemonic Mnemonic, index int, count int, text string) Operand {
	text = strings.TrimSpace(text)

	if mnemonic.TakesCondition() && index == 0 &&
		(count == 2 || (count == 1 && mnemonic == MnemonicRET)) {

		if c, ok := LookupCondition(text); ok {
			return Operand{
				Kind:      OperandKindCondition,
				Condition: c,
				Text:      text,
			}
		}
	}

	if r, ok := LookupRegister(text); ok {
		kind := OperandKindRegister
		if r.IsPair() {
			kind = OperandKindRegisterPair
		}
		return Operand{
			Kind:     kind,
			Register: r,
			Text:     text,
		}
	}

	if isQuoted(text) {
		return Operand{
			Kind: OperandKindString,
			Text: text,
		}
	}

	if inner, ok := parenthesized(text); ok {
		return parseMemoryOperand(inner, text)
	}

	return Operand{
		Kind:       OperandKindImmediate,
		Expression: text,
		Text:       text,
	}
}

func parseMemoryOperand(inner string, text string) Operand {
	compact := Normalize(inner)

	if r, ok := LookupRegister(compact); ok {
		switch r {
		case RegisterBC, RegisterDE, RegisterHL, RegisterSP, RegisterC:
			return Operand{
				Kind:     OperandKindRegisterIndirect,
				Register: r,
				Text:     text,
			}
		case RegisterIX, RegisterIY:
			return Operand{
				Kind:     OperandKindIndexed,
				Register: r,
				Text:     text,
			}
		}
	}

	if len(compact) > 2 {
		if r, ok := LookupRegister(compact[:2]); ok && r.IsIndex() {
			sign := compact[2]
			if sign == '+' || sign == '-' {
				return Operand{
					Kind:         OperandKindIndexed,
					Register:     r,
					Displacement: compact[2:],
					Text:         text,
				}
			}
		}
	}

	return Operand{
		Kind:       OperandKindAddress,
		Expression: strings.TrimSpace(inner),
		Text:       text,
	}
}

// parenthesized returns the contents of text if the whole text
// is a single parenthesized group.
func parenthesized(text string) (string, bool) {
	if len(text) < 2 || text[0] != '(' || text[len(text)-1] != ')' {
		return "", false
	}

	depth := 0
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(text)-1 {
				// e.g. (1)+(2)
				return "", false
			}
		}
	}

	return text[1 : len(text)-1], true
}

func isQuoted(text string) bool {
	if len(text) < 2 {
		return false
	}
	first := text[0]
	return (first == '"' || first == '\'') &&
		text[len(text)-1] == first
}

// Normalize removes whitespace outside of quotes.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	var quote rune
	for _, r := range text {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			b.WriteRune(r)
			continue
		}
		switch {
		case r == '"' || r == '\'':
			quote = r
		case unicode.IsSpace(r):
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// Key returns the normalized form of the operand, used to compare operands.
//
// Registers and conditions compare by name, ignoring case.
// Expressions compare syntactically, ignoring whitespace:
// symbols are case-sensitive, and no arithmetic is evaluated.
func (o Operand) Key() string {
	switch o.Kind {
	case OperandKindRegister, OperandKindRegisterPair:
		return o.Register.String()

	case OperandKindCondition:
		return o.Condition.String()

	case OperandKindRegisterIndirect:
		return "(" + o.Register.String() + ")"

	case OperandKindIndexed:
		return "(" + o.Register.String() + o.displacementKey() + ")"

	case OperandKindAddress:
		return "(" + Normalize(o.Expression) + ")"

	case OperandKindImmediate:
		return Normalize(o.Expression)

	default:
		return Normalize(o.Text)
	}
}

func (o Operand) displacementKey() string {
	if o.Displacement == "" {
		return "+0"
	}
	return Normalize(o.Displacement)
}

// String returns the canonical spelling of the operand.
func (o Operand) String() string {
	switch o.Kind {
	case OperandKindRegister, OperandKindRegisterPair:
		return o.Register.String()

	case OperandKindCondition:
		return o.Condition.String()

	case OperandKindRegisterIndirect:
		return "(" + o.Register.String() + ")"

	case OperandKindIndexed:
		return "(" + o.Register.String() + o.Displacement + ")"

	default:
		return o.Text
	}
}

// Equal returns true if both operands have the same key.
func (o Operand) Equal(other Operand) bool {
	return o.Kind == other.Kind &&
		o.Key() == other.Key()
}

// IsRegister returns true if the operand is the given register.
func (o Operand) IsRegister(r Register) bool {
	return (o.Kind == OperandKindRegister || o.Kind == OperandKindRegisterPair) &&
		o.Register == r
}

// IsMemory returns true for operands which address memory.
// Port operands of IN and OUT are classified as memory operands too.
func (o Operand) IsMemory() bool {
	switch o.Kind {
	case OperandKindRegisterIndirect, OperandKindIndexed, OperandKindAddress:
		return true
	default:
		return false
	}
}

// Symbols returns the identifiers referenced by the operand's expression,
// in order of appearance. Quoted literals are skipped.
func (o Operand) Symbols() []string {
	switch o.Kind {
	case OperandKindRegister,
		OperandKindRegisterPair,
		OperandKindCondition,
		OperandKindRegisterIndirect,
		OperandKindString:

		return nil

	case OperandKindIndexed:
		return symbols(o.Displacement)

	default:
		return symbols(o.Text)
	}
}

func isSymbolStart(c byte) bool {
	return c == '_' || c == '.' || c == '?' || c == '@' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}

func isSymbolPart(c byte) bool {
	return isSymbolStart(c) ||
		c == '$' ||
		(c >= '0' && c <= '9')
}

func symbols(text string) []string {
	var result []string

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '"' || c == '\'':
			// character literals like 'A' and strings like "AB" are not references
			end := strings.IndexByte(text[i+1:], c)
			if end < 0 {
				return result
			}
			i += end + 2

		case c >= '0' && c <= '9', c == '$':
			// numbers like 0FFH or $FF
			i++
			for i < len(text) && isSymbolPart(text[i]) {
				i++
			}

		case isSymbolStart(c):
			start := i
			i++
			for i < len(text) && isSymbolPart(text[i]) {
				i++
			}
			result = append(result, text[start:i])

		default:
			i++
		}
	}

	return result
}

// OperandShape is the part of an operand relevant for encodability.
type OperandShape struct {
	Kind         OperandKind
	Register     Register
	Condition    Condition
	Displacement bool
}

// Shape is the operand shape of an instruction.
type Shape []OperandShape

// Shape returns the shape of the operand.
func (o Operand) Shape() OperandShape {
	return OperandShape{
		Kind:         o.Kind,
		Register:     o.Register,
		Condition:    o.Condition,
		Displacement: o.Displacement != "",
	}
}

// ReferencesLocation returns true if the operand's expression refers to the
// location counter, e.g. JR $+4. Hexadecimal literals like $FF are not references.
func (o Operand) ReferencesLocation() bool {
	text := o.Text
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			if i == 0 || !isSymbolPart(text[i-1]) {
				quote = c
			}
		case '$':
			if i > 0 && isSymbolPart(text[i-1]) {
				continue
			}
			if i+1 < len(text) && isHexDigit(text[i+1]) {
				continue
			}
			return true
		}
	}
	return false
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'f') ||
		(c >= 'A' && c <= 'F')
}
