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

// Register is a CPU register operand.
type Register uint8

const (
	RegisterNone Register = iota

	// 8-bit

	RegisterA
	RegisterB
	RegisterC
	RegisterD
	RegisterE
	RegisterH
	RegisterL
	RegisterI
	RegisterR
	RegisterIXH
	RegisterIXL
	RegisterIYH
	RegisterIYL

	// 16-bit

	RegisterAF
	RegisterAFPrime
	RegisterBC
	RegisterDE
	RegisterHL
	RegisterSP
	RegisterIX
	RegisterIY

	// NOTE: not an actual register, must be last item
	RegisterMax
)

var registerNames = [...]string{
	RegisterNone:    "",
	RegisterA:       "A",
	RegisterB:       "B",
	RegisterC:       "C",
	RegisterD:       "D",
	RegisterE:       "E",
	RegisterH:       "H",
	RegisterL:       "L",
	RegisterI:       "I",
	RegisterR:       "R",
	RegisterIXH:     "IXH",
	RegisterIXL:     "IXL",
	RegisterIYH:     "IYH",
	RegisterIYL:     "IYL",
	RegisterAF:      "AF",
	RegisterAFPrime: "AF'",
	RegisterBC:      "BC",
	RegisterDE:      "DE",
	RegisterHL:      "HL",
	RegisterSP:      "SP",
	RegisterIX:      "IX",
	RegisterIY:      "IY",
}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return ""
}

var registersByName = func() map[string]Register {
	result := make(map[string]Register, len(registerNames))
	for r := RegisterA; r < RegisterMax; r++ {
		result[registerNames[r]] = r
	}
	return result
}()

// LookupRegister returns the register with the given name, ignoring case.
func LookupRegister(name string) (Register, bool) {
	r, ok := registersByName[upperName(name)]
	return r, ok
}

// IsPair returns true for 16-bit registers.
func (r Register) IsPair() bool {
	return r >= RegisterAF && r < RegisterMax
}

// IsMain returns true for the 8-bit registers A, B, C, D, E, H and L.
func (r Register) IsMain() bool {
	return r >= RegisterA && r <= RegisterL
}

// IsIndexHalf returns true for the undocumented 8-bit halves of IX and IY.
func (r Register) IsIndexHalf() bool {
	return r >= RegisterIXH && r <= RegisterIYL
}

// IsIndex returns true for IX and IY.
func (r Register) IsIndex() bool {
	return r == RegisterIX || r == RegisterIY
}

// Halves returns the high and low 8-bit registers of the pairs BC, DE and HL.
func (r Register) Halves() (high Register, low Register, ok bool) {
	switch r {
	case RegisterBC:
		return RegisterB, RegisterC, true
	case RegisterDE:
		return RegisterD, RegisterE, true
	case RegisterHL:
		return RegisterH, RegisterL, true
	default:
		return RegisterNone, RegisterNone, false
	}
}

// Index returns the index register an index half belongs to.
func (r Register) Index() Register {
	switch r {
	case RegisterIXH, RegisterIXL:
		return RegisterIX
	case RegisterIYH, RegisterIYL:
		return RegisterIY
	default:
		return RegisterNone
	}
}

// Condition is a flag condition of a conditional control transfer.
type Condition uint8

const (
	ConditionNone Condition = iota
	ConditionNZ
	ConditionZ
	ConditionNC
	ConditionC
	ConditionPO
	ConditionPE
	ConditionP
	ConditionM

	// NOTE: not an actual condition, must be last item
	ConditionMax
)

var conditionNames = [...]string{
	ConditionNone: "",
	ConditionNZ:   "NZ",
	ConditionZ:    "Z",
	ConditionNC:   "NC",
	ConditionC:    "C",
	ConditionPO:   "PO",
	ConditionPE:   "PE",
	ConditionP:    "P",
	ConditionM:    "M",
}

func (c Condition) String() string {
	if int(c) < len(conditionNames) {
		return conditionNames[c]
	}
	return ""
}

// LookupCondition returns the condition with the given name, ignoring case.
func LookupCondition(name string) (Condition, bool) {
	name = upperName(name)
	for c := ConditionNZ; c < ConditionMax; c++ {
		if conditionNames[c] == name {
			return c, true
		}
	}
	return ConditionNone, false
}

// IsRelative returns true for the conditions JR accepts.
func (c Condition) IsRelative() bool {
	switch c {
	case ConditionNZ, ConditionZ, ConditionNC, ConditionC:
		return true
	default:
		return false
	}
}
