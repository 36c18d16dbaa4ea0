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
	"slices"

	"github.com/SaveTheRbtz/mph"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Mnemonic is the closed set of operations the optimizer understands.
// Lines without an operation use MnemonicNone,
// and mnemonics outside of the set are carried through as MnemonicUnknown.
type Mnemonic uint8

const (
	MnemonicNone Mnemonic = iota
	MnemonicUnknown

	// Loads and exchanges

	MnemonicLD
	MnemonicPUSH
	MnemonicPOP
	MnemonicEX
	MnemonicEXX

	// Block transfer and search

	MnemonicLDI
	MnemonicLDIR
	MnemonicLDD
	MnemonicLDDR
	MnemonicCPI
	MnemonicCPIR
	MnemonicCPD
	MnemonicCPDR

	// Arithmetic and logic

	MnemonicADD
	MnemonicADC
	MnemonicSUB
	MnemonicSBC
	MnemonicAND
	MnemonicOR
	MnemonicXOR
	MnemonicCP
	MnemonicINC
	MnemonicDEC

	// General purpose

	MnemonicDAA
	MnemonicCPL
	MnemonicNEG
	MnemonicCCF
	MnemonicSCF
	MnemonicNOP
	MnemonicHALT
	MnemonicDI
	MnemonicEI
	MnemonicIM

	// Rotates and shifts

	MnemonicRLCA
	MnemonicRLA
	MnemonicRRCA
	MnemonicRRA
	MnemonicRLC
	MnemonicRL
	MnemonicRRC
	MnemonicRR
	MnemonicSLA
	MnemonicSRA
	MnemonicSRL
	MnemonicSLL
	MnemonicRLD
	MnemonicRRD

	// Bit operations

	MnemonicBIT
	MnemonicSET
	MnemonicRES

	// Control transfer

	MnemonicJP
	MnemonicJR
	MnemonicDJNZ
	MnemonicCALL
	MnemonicRET
	MnemonicRETI
	MnemonicRETN
	MnemonicRST

	// Input and output

	MnemonicIN
	MnemonicINI
	MnemonicINIR
	MnemonicIND
	MnemonicINDR
	MnemonicOUT
	MnemonicOUTI
	MnemonicOTIR
	MnemonicOUTD
	MnemonicOTDR

	// NOTE: not an actual mnemonic, must be last item
	MnemonicMax
)

var mnemonicNames = [...]string{
	MnemonicNone:    "",
	MnemonicUnknown: "?",
	MnemonicLD:      "LD",
	MnemonicPUSH:    "PUSH",
	MnemonicPOP:     "POP",
	MnemonicEX:      "EX",
	MnemonicEXX:     "EXX",
	MnemonicLDI:     "LDI",
	MnemonicLDIR:    "LDIR",
	MnemonicLDD:     "LDD",
	MnemonicLDDR:    "LDDR",
	MnemonicCPI:     "CPI",
	MnemonicCPIR:    "CPIR",
	MnemonicCPD:     "CPD",
	MnemonicCPDR:    "CPDR",
	MnemonicADD:     "ADD",
	MnemonicADC:     "ADC",
	MnemonicSUB:     "SUB",
	MnemonicSBC:     "SBC",
	MnemonicAND:     "AND",
	MnemonicOR:      "OR",
	MnemonicXOR:     "XOR",
	MnemonicCP:      "CP",
	MnemonicINC:     "INC",
	MnemonicDEC:     "DEC",
	MnemonicDAA:     "DAA",
	MnemonicCPL:     "CPL",
	MnemonicNEG:     "NEG",
	MnemonicCCF:     "CCF",
	MnemonicSCF:     "SCF",
	MnemonicNOP:     "NOP",
	MnemonicHALT:    "HALT",
	MnemonicDI:      "DI",
	MnemonicEI:      "EI",
	MnemonicIM:      "IM",
	MnemonicRLCA:    "RLCA",
	MnemonicRLA:     "RLA",
	MnemonicRRCA:    "RRCA",
	MnemonicRRA:     "RRA",
	MnemonicRLC:     "RLC",
	MnemonicRL:      "RL",
	MnemonicRRC:     "RRC",
	MnemonicRR:      "RR",
	MnemonicSLA:     "SLA",
	MnemonicSRA:     "SRA",
	MnemonicSRL:     "SRL",
	MnemonicSLL:     "SLL",
	MnemonicRLD:     "RLD",
	MnemonicRRD:     "RRD",
	MnemonicBIT:     "BIT",
	MnemonicSET:     "SET",
	MnemonicRES:     "RES",
	MnemonicJP:      "JP",
	MnemonicJR:      "JR",
	MnemonicDJNZ:    "DJNZ",
	MnemonicCALL:    "CALL",
	MnemonicRET:     "RET",
	MnemonicRETI:    "RETI",
	MnemonicRETN:    "RETN",
	MnemonicRST:     "RST",
	MnemonicIN:      "IN",
	MnemonicINI:     "INI",
	MnemonicINIR:    "INIR",
	MnemonicIND:     "IND",
	MnemonicINDR:    "INDR",
	MnemonicOUT:     "OUT",
	MnemonicOUTI:    "OUTI",
	MnemonicOTIR:    "OTIR",
	MnemonicOUTD:    "OUTD",
	MnemonicOTDR:    "OTDR",
}

func (m Mnemonic) String() string {
	if int(m) < len(mnemonicNames) {
		return mnemonicNames[m]
	}
	return "?"
}

// knownMnemonics lists the spellings of all known mnemonics,
// in the order of the Mnemonic constants, starting at MnemonicLD
var knownMnemonics = mnemonicNames[MnemonicLD:]

var mnemonicTable = mph.Build(knownMnemonics[:])

// KnownMnemonics returns the spellings of all known mnemonics.
func KnownMnemonics() []string {
	return slices.Clone(knownMnemonics)
}

// upperName folds a mnemonic, register or condition spelling to its canonical case.
// A Caser is stateful, so one is created per call.
func upperName(name string) string {
	return cases.Upper(language.Und).String(name)
}

// LookupMnemonic returns the mnemonic for the given spelling, ignoring case.
// Spellings outside the known set result in MnemonicUnknown.
func LookupMnemonic(name string) Mnemonic {
	if name == "" {
		return MnemonicNone
	}
	index, ok := mnemonicTable.Lookup(upperName(name))
	if !ok {
		return MnemonicUnknown
	}
	return MnemonicLD + Mnemonic(index)
}

// IsKnown returns true if the mnemonic is an actual operation of the closed set.
func (m Mnemonic) IsKnown() bool {
	return m >= MnemonicLD && m < MnemonicMax
}

// IsControlTransfer returns true for mnemonics which may transfer control
// to a location other than the next instruction.
func (m Mnemonic) IsControlTransfer() bool {
	switch m {
	case MnemonicJP,
		MnemonicJR,
		MnemonicDJNZ,
		MnemonicCALL,
		MnemonicRET,
		MnemonicRETI,
		MnemonicRETN,
		MnemonicRST:
		return true
	default:
		return false
	}
}

// TakesTarget returns true for control transfers which name their destination as an operand.
func (m Mnemonic) TakesTarget() bool {
	switch m {
	case MnemonicJP,
		MnemonicJR,
		MnemonicDJNZ,
		MnemonicCALL,
		MnemonicRST:
		return true
	default:
		return false
	}
}

// TakesCondition returns true for mnemonics whose first operand may be a condition.
func (m Mnemonic) TakesCondition() bool {
	switch m {
	case MnemonicJP,
		MnemonicJR,
		MnemonicCALL,
		MnemonicRET:
		return true
	default:
		return false
	}
}
