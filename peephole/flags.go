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
	"strings"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/target"
)

// Flags is a set of condition flags of the F register.
// The bit positions follow the F register layout.
type Flags uint8

const (
	FlagC  Flags = 0x01
	FlagN  Flags = 0x02
	FlagPV Flags = 0x04
	FlagH  Flags = 0x10
	FlagZ  Flags = 0x40
	FlagS  Flags = 0x80

	AllFlags = FlagS | FlagZ | FlagH | FlagPV | FlagN | FlagC

	// flagsExceptCarry are the flags written by 8-bit INC and DEC
	flagsExceptCarry = AllFlags &^ FlagC
)

// maxFlagScan bounds the number of operations a flag liveness scan looks at
const maxFlagScan = 32

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}

	var b strings.Builder
	for _, flag := range []struct {
		flag Flags
		name string
	}{
		{FlagS, "S"},
		{FlagZ, "Z"},
		{FlagH, "H"},
		{FlagPV, "P/V"},
		{FlagN, "N"},
		{FlagC, "C"},
	} {
		if f&flag.flag == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(flag.name)
	}
	return b.String()
}

// flagEffect describes how an instruction uses the flags.
// An instruction which transfers control, or whose effect is unknown,
// ends a liveness scan.
type flagEffect struct {
	reads  Flags
	writes Flags
	stop   bool
}

func flagEffectOf(instruction asm.Instruction, t target.Target) flagEffect {
	effect := z80FlagEffectOf(instruction)
	if t == target.Intel8080 {
		effect.writes &= intel8080Writes(instruction)
	}
	return effect
}

// intel8080Writes returns the flags the 8080 version of an instruction may write.
// The 8080 leaves the auxiliary carry (H) alone where the Z80 resets it.
func intel8080Writes(instruction asm.Instruction) Flags {
	switch instruction.Mnemonic {
	case asm.MnemonicCPL:
		return 0

	case asm.MnemonicSCF, asm.MnemonicCCF,
		asm.MnemonicRLCA, asm.MnemonicRRCA, asm.MnemonicRLA, asm.MnemonicRRA:
		return FlagC

	case asm.MnemonicADD:
		operands := instruction.Operands
		if len(operands) == 2 && operands[0].Kind == asm.OperandKindRegisterPair {
			return FlagC
		}
	}
	return AllFlags
}

func z80FlagEffectOf(instruction asm.Instruction) flagEffect {
	operands := instruction.Operands

	switch instruction.Mnemonic {
	case asm.MnemonicNone:
		return flagEffect{}

	case asm.MnemonicUnknown,
		asm.MnemonicHALT:
		return flagEffect{stop: true}

	case asm.MnemonicJP, asm.MnemonicJR, asm.MnemonicDJNZ,
		asm.MnemonicCALL, asm.MnemonicRET, asm.MnemonicRETI, asm.MnemonicRETN,
		asm.MnemonicRST:
		return flagEffect{stop: true}

	case asm.MnemonicINI, asm.MnemonicINIR, asm.MnemonicIND, asm.MnemonicINDR,
		asm.MnemonicOUTI, asm.MnemonicOTIR, asm.MnemonicOUTD, asm.MnemonicOTDR:
		return flagEffect{stop: true}

	case asm.MnemonicADD:
		if len(operands) == 2 && operands[0].Kind == asm.OperandKindRegisterPair {
			return flagEffect{writes: FlagH | FlagN | FlagC}
		}
		return flagEffect{writes: AllFlags}

	case asm.MnemonicADC, asm.MnemonicSBC:
		return flagEffect{reads: FlagC, writes: AllFlags}

	case asm.MnemonicSUB, asm.MnemonicAND, asm.MnemonicOR, asm.MnemonicXOR,
		asm.MnemonicCP, asm.MnemonicNEG:
		return flagEffect{writes: AllFlags}

	case asm.MnemonicINC, asm.MnemonicDEC:
		if len(operands) == 1 && operands[0].Kind == asm.OperandKindRegisterPair {
			return flagEffect{}
		}
		return flagEffect{writes: flagsExceptCarry}

	case asm.MnemonicDAA:
		return flagEffect{reads: FlagH | FlagN | FlagC, writes: AllFlags}

	case asm.MnemonicCPL:
		return flagEffect{writes: FlagH | FlagN}

	case asm.MnemonicCCF:
		return flagEffect{reads: FlagC, writes: FlagH | FlagN | FlagC}

	case asm.MnemonicSCF,
		asm.MnemonicRLCA, asm.MnemonicRRCA:
		return flagEffect{writes: FlagH | FlagN | FlagC}

	case asm.MnemonicRLA, asm.MnemonicRRA:
		return flagEffect{reads: FlagC, writes: FlagH | FlagN | FlagC}

	case asm.MnemonicRL, asm.MnemonicRR:
		return flagEffect{reads: FlagC, writes: AllFlags}

	case asm.MnemonicRLC, asm.MnemonicRRC,
		asm.MnemonicSLA, asm.MnemonicSRA, asm.MnemonicSRL, asm.MnemonicSLL:
		return flagEffect{writes: AllFlags}

	case asm.MnemonicRLD, asm.MnemonicRRD,
		asm.MnemonicBIT,
		asm.MnemonicCPI, asm.MnemonicCPIR, asm.MnemonicCPD, asm.MnemonicCPDR:
		return flagEffect{writes: flagsExceptCarry}

	case asm.MnemonicLDI, asm.MnemonicLDIR, asm.MnemonicLDD, asm.MnemonicLDDR:
		return flagEffect{writes: FlagH | FlagPV | FlagN}

	case asm.MnemonicIN:
		// IN A,(n) leaves the flags alone, IN r,(C) sets them
		if len(operands) == 2 &&
			operands[1].Kind == asm.OperandKindRegisterIndirect {

			return flagEffect{writes: flagsExceptCarry}
		}
		return flagEffect{}

	case asm.MnemonicLD:
		if len(operands) == 2 &&
			operands[0].IsRegister(asm.RegisterA) &&
			(operands[1].IsRegister(asm.RegisterI) || operands[1].IsRegister(asm.RegisterR)) {

			return flagEffect{writes: flagsExceptCarry}
		}
		return flagEffect{}

	case asm.MnemonicPUSH:
		if len(operands) == 1 && operands[0].IsRegister(asm.RegisterAF) {
			return flagEffect{reads: AllFlags}
		}
		return flagEffect{}

	case asm.MnemonicPOP:
		if len(operands) == 1 && operands[0].IsRegister(asm.RegisterAF) {
			return flagEffect{writes: AllFlags}
		}
		return flagEffect{}

	case asm.MnemonicEX:
		if len(operands) == 2 && operands[0].IsRegister(asm.RegisterAF) {
			return flagEffect{reads: AllFlags, writes: AllFlags}
		}
		return flagEffect{}

	case asm.MnemonicSET, asm.MnemonicRES,
		asm.MnemonicEXX, asm.MnemonicNOP, asm.MnemonicDI, asm.MnemonicEI,
		asm.MnemonicIM, asm.MnemonicOUT:
		return flagEffect{}
	}

	return flagEffect{stop: true}
}

// conditionFlags returns the flags a condition tests.
func conditionFlags(condition asm.Condition) Flags {
	switch condition {
	case asm.ConditionNZ, asm.ConditionZ:
		return FlagZ
	case asm.ConditionNC, asm.ConditionC:
		return FlagC
	case asm.ConditionPO, asm.ConditionPE:
		return FlagPV
	case asm.ConditionP, asm.ConditionM:
		return FlagS
	default:
		return AllFlags
	}
}

// FlagsDead returns true if none of the given flags is read
// before it is overwritten, when execution continues at the given index.
//
// Jumps to labels of the instructions are followed.
// The scan gives up, and reports the flags as live,
// at calls, returns, jumps leaving the instructions, and opaque instructions,
// and after a bounded number of operations.
// Running off the end of the instructions counts as dead.
func FlagsDead(instructions []asm.Instruction, index int, flags Flags, t target.Target) bool {
	scan := newFlagScan(instructions, asm.Labels(instructions), t)
	return scan.dead(index, flags)
}

type flagScan struct {
	instructions []asm.Instruction
	labels       map[string]int
	target       target.Target
	budget       int
	// visited records the flags already checked from a jump destination
	visited map[int]Flags
}

func newFlagScan(instructions []asm.Instruction, labels map[string]int, t target.Target) *flagScan {
	return &flagScan{
		instructions: instructions,
		labels:       labels,
		target:       t,
		budget:       maxFlagScan,
		visited:      map[int]Flags{},
	}
}

func (s *flagScan) dead(index int, pending Flags) bool {
	for ; index < len(s.instructions); index++ {
		if pending == 0 {
			return true
		}

		instruction := s.instructions[index]
		if instruction.IsTrivia() {
			continue
		}

		s.budget--
		if s.budget < 0 {
			return false
		}

		switch instruction.Mnemonic {
		case asm.MnemonicJP, asm.MnemonicJR, asm.MnemonicDJNZ:
			condition, conditional := instruction.Condition()
			if conditional && conditionFlags(condition)&pending != 0 {
				return false
			}

			label, ok := jumpLabel(instruction)
			if !ok {
				return false
			}
			destination, ok := s.labels[label]
			if !ok {
				return false
			}

			checked := s.visited[destination]
			if checked&pending != pending {
				s.visited[destination] = checked | pending
				if !s.dead(destination, pending) {
					return false
				}
			}

			if !conditional && instruction.Mnemonic != asm.MnemonicDJNZ {
				return true
			}
			continue
		}

		effect := flagEffectOf(instruction, s.target)
		if effect.stop || effect.reads&pending != 0 {
			return false
		}
		pending &^= effect.writes
	}

	return true
}
