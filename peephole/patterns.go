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
	"slices"
	"strconv"
	"strings"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/target"
)

// maxJumpChain bounds the number of jumps followed when threading a jump
const maxJumpChain = 16

func bind(window []asm.Instruction, captures map[string]asm.Operand) Binding {
	return Binding{
		Window:   window,
		Captures: captures,
	}
}

func keepFirst(binding Binding) []asm.Instruction {
	return []asm.Instruction{binding.Window[0]}
}

func removeAll(Binding) []asm.Instruction {
	return nil
}

// replaceWith returns a rewrite which replaces the window with the given instruction.
// The comment of the window's first instruction is kept.
func replaceWith(mnemonic asm.Mnemonic, operands ...asm.Operand) RewriteFunc {
	return func(binding Binding) []asm.Instruction {
		instruction := asm.NewInstruction(mnemonic, operands...)
		instruction.Comment = binding.Window[0].Comment
		return []asm.Instruction{instruction}
	}
}

// matches returns true if the instruction has the given mnemonic and operands.
func matches(instruction asm.Instruction, mnemonic asm.Mnemonic, operands ...asm.Operand) bool {
	if !instruction.Is(mnemonic, len(operands)) {
		return false
	}
	for index, operand := range operands {
		if !instruction.Operands[index].Equal(operand) {
			return false
		}
	}
	return true
}

func isRegisterOperand(operand asm.Operand) bool {
	return operand.Kind == asm.OperandKindRegister ||
		operand.Kind == asm.OperandKindRegisterPair
}

// overlaps returns true if the registers share storage, e.g. H and HL.
func overlaps(a, b asm.Register) bool {
	if a == b {
		return true
	}
	contains := func(pair, r asm.Register) bool {
		if high, low, ok := pair.Halves(); ok {
			return r == high || r == low
		}
		if r.IsIndexHalf() {
			return r.Index() == pair
		}
		return false
	}
	return contains(a, b) || contains(b, a)
}

// jumpLabel returns the destination of a control transfer to an immediate address.
func jumpLabel(instruction asm.Instruction) (string, bool) {
	operand, ok := instruction.Target()
	if !ok || operand.Kind != asm.OperandKindImmediate {
		return "", false
	}
	return operand.Key(), true
}

// literalValue returns the value of a numeric literal, in one of the
// notations commonly accepted by assemblers: 10, 0AH, $0A, 0x0A, 1010B, %1010, 12O, 12Q.
func literalValue(expression string) (uint64, bool) {
	text := asm.Normalize(expression)
	base := 10

	switch {
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		text = text[2:]
		base = 16

	case strings.HasPrefix(text, "$"):
		text = text[1:]
		base = 16

	case strings.HasPrefix(text, "%"):
		text = text[1:]
		base = 2

	case len(text) > 1 && text[0] >= '0' && text[0] <= '9':
		suffixed := true
		switch text[len(text)-1] {
		case 'h', 'H':
			base = 16
		case 'b', 'B':
			base = 2
		case 'o', 'O', 'q', 'Q':
			base = 8
		case 'd', 'D':
			base = 10
		default:
			suffixed = false
		}
		if suffixed {
			text = text[:len(text)-1]
		}
	}

	value, err := strconv.ParseUint(text, base, 16)
	if err != nil {
		return 0, false
	}
	return value, true
}

// isLiteral returns true if the operand is an immediate with the given value.
func isLiteral(operand asm.Operand, value uint64) bool {
	if operand.Kind != asm.OperandKindImmediate {
		return false
	}
	actual, ok := literalValue(operand.Expression)
	return ok && actual == value
}

// accumulatorOperand returns the source operand of an 8-bit arithmetic instruction,
// which may be written with or without the accumulator, e.g. SUB 1 or SUB A,1.
func accumulatorOperand(instruction asm.Instruction) (asm.Operand, bool) {
	switch len(instruction.Operands) {
	case 1:
		return instruction.Operands[0], true
	case 2:
		if instruction.Operands[0].IsRegister(asm.RegisterA) {
			return instruction.Operands[1], true
		}
	}
	return asm.Operand{}, false
}

var redundantLoadElimination = &Pattern{
	ID:          "redundant-load-elimination",
	Description: "Removes a load which repeats the preceding load",
	WindowSize:  2,
	Targets:     target.AllTargets,
	Savings:     Savings{Bytes: 1, Cycles: 4},
	Match: func(_ *Context, window []asm.Instruction) (Binding, bool) {
		first, second := window[0], window[1]
		if !first.Is(asm.MnemonicLD, 2) || !first.SameOperation(second) {
			return Binding{}, false
		}

		destination, source := first.Operands[0], first.Operands[1]
		// R advances between the loads, so the second load is not redundant
		if !isRegisterOperand(destination) ||
			destination.Register == asm.RegisterR {

			return Binding{}, false
		}

		switch source.Kind {
		case asm.OperandKindImmediate:
			// constant

		case asm.OperandKindRegister, asm.OperandKindRegisterPair:
			// R changes on every instruction fetch, I also loads flags
			if source.Register == asm.RegisterR ||
				source.Register == asm.RegisterI ||
				overlaps(destination.Register, source.Register) {

				return Binding{}, false
			}

		default:
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"destination": destination,
			"source":      source,
		}), true
	},
	Rewrite: keepFirst,
}

var selfLoad = &Pattern{
	ID:             "self-load",
	Description:    "Removes a load of a register into itself",
	WindowSize:     1,
	Targets:        target.AllTargets,
	Savings:        Savings{Bytes: 1, Cycles: 4},
	TransfersLabel: true,
	Match: func(_ *Context, window []asm.Instruction) (Binding, bool) {
		load := window[0]
		if !load.Is(asm.MnemonicLD, 2) {
			return Binding{}, false
		}

		destination, source := load.Operands[0], load.Operands[1]
		if destination.Kind != asm.OperandKindRegister ||
			!destination.Equal(source) {

			return Binding{}, false
		}

		register := destination.Register
		if !register.IsMain() && !register.IsIndexHalf() {
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"register": destination,
		}), true
	},
	Rewrite: removeAll,
}

var inverseOpCancellation = &Pattern{
	ID:             "inverse-op-cancellation",
	Description:    "Removes an increment immediately undone by a decrement, or vice versa",
	WindowSize:     2,
	Targets:        target.AllTargets,
	Savings:        Savings{Bytes: 2, Cycles: 8},
	TransfersLabel: true,
	Match: func(ctx *Context, window []asm.Instruction) (Binding, bool) {
		first, second := window[0], window[1]

		var inverse asm.Mnemonic
		switch {
		case first.Is(asm.MnemonicINC, 1):
			inverse = asm.MnemonicDEC
		case first.Is(asm.MnemonicDEC, 1):
			inverse = asm.MnemonicINC
		default:
			return Binding{}, false
		}

		operand := first.Operands[0]
		if !matches(second, inverse, operand) {
			return Binding{}, false
		}

		switch operand.Kind {
		case asm.OperandKindRegisterPair:
			// 16-bit increments and decrements leave the flags alone

		case asm.OperandKindRegister:
			if !ctx.FlagsDeadAfter(len(window), flagsExceptCarry) {
				return Binding{}, false
			}

		default:
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"operand": operand,
		}), true
	},
	Rewrite: removeAll,
}

var pushPopCancellation = &Pattern{
	ID:             "push-pop-cancellation",
	Description:    "Removes a push immediately followed by a pop of the same register pair",
	WindowSize:     2,
	Targets:        target.AllTargets,
	Savings:        Savings{Bytes: 2, Cycles: 21},
	TransfersLabel: true,
	Match: func(_ *Context, window []asm.Instruction) (Binding, bool) {
		push, pop := window[0], window[1]
		if !push.Is(asm.MnemonicPUSH, 1) {
			return Binding{}, false
		}

		pair := push.Operands[0]
		if pair.Kind != asm.OperandKindRegisterPair ||
			!matches(pop, asm.MnemonicPOP, pair) {

			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"pair": pair,
		}), true
	},
	Rewrite: removeAll,
}

var exchangeCancellation = &Pattern{
	ID:             "exchange-cancellation",
	Description:    "Removes two consecutive exchanges of DE and HL",
	WindowSize:     2,
	Targets:        target.AllTargets,
	Savings:        Savings{Bytes: 2, Cycles: 8},
	TransfersLabel: true,
	Match: func(_ *Context, window []asm.Instruction) (Binding, bool) {
		de, hl := asm.Reg(asm.RegisterDE), asm.Reg(asm.RegisterHL)
		if !matches(window[0], asm.MnemonicEX, de, hl) ||
			!matches(window[1], asm.MnemonicEX, de, hl) {

			return Binding{}, false
		}
		return bind(window, nil), true
	},
	Rewrite: removeAll,
}

var exxCancellation = &Pattern{
	ID:             "exx-cancellation",
	Description:    "Removes two consecutive exchanges with the alternate register set",
	WindowSize:     2,
	Targets:        target.NewSet(target.Z80),
	Savings:        Savings{Bytes: 2, Cycles: 8},
	TransfersLabel: true,
	Match: func(_ *Context, window []asm.Instruction) (Binding, bool) {
		first, second := window[0], window[1]

		if matches(first, asm.MnemonicEXX) && matches(second, asm.MnemonicEXX) {
			return bind(window, nil), true
		}

		af, afPrime := asm.Reg(asm.RegisterAF), asm.Reg(asm.RegisterAFPrime)
		if matches(first, asm.MnemonicEX, af, afPrime) &&
			matches(second, asm.MnemonicEX, af, afPrime) {

			return bind(window, nil), true
		}

		return Binding{}, false
	},
	Rewrite: removeAll,
}

var jumpToNext = &Pattern{
	ID:             "jump-to-next",
	Description:    "Removes a jump to the immediately following instruction",
	WindowSize:     1,
	Targets:        target.AllTargets,
	Savings:        Savings{Bytes: 3, Cycles: 10},
	TransfersLabel: true,
	Match: func(ctx *Context, window []asm.Instruction) (Binding, bool) {
		jump := window[0]
		if jump.Mnemonic != asm.MnemonicJP && jump.Mnemonic != asm.MnemonicJR {
			return Binding{}, false
		}

		label, ok := jumpLabel(jump)
		if !ok || !ctx.FollowsWindow(len(window), label) {
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"label": asm.Imm(label),
		}), true
	},
	Rewrite: removeAll,
}

// threadJump follows the chain of unconditional jumps starting at the label,
// and returns the final destination.
// It fails if the label is not itself an unconditional jump, or the chain is a cycle.
func threadJump(ctx *Context, label string) (string, bool) {
	visited := map[string]struct{}{
		label: {},
	}

	current := label
	for hop := 0; hop < maxJumpChain; hop++ {
		index, ok := ctx.Resolve(current)
		if !ok {
			break
		}

		next := ctx.Instructions[index]
		if !next.IsUnconditionalJump() {
			break
		}

		destination := next.Operands[0].Key()
		if _, ok := visited[destination]; ok {
			return "", false
		}
		visited[destination] = struct{}{}

		current = destination
	}

	if current == label {
		return "", false
	}
	return current, true
}

var jumpThreading = &Pattern{
	ID:          "jump-threading",
	Description: "Retargets a jump to a jump to the final destination",
	WindowSize:  1,
	Targets:     target.AllTargets,
	Savings:     Savings{Bytes: 0, Cycles: 10},
	Emits:       formsOf("JP TARGET", "JP NZ,TARGET"),
	Match: func(ctx *Context, window []asm.Instruction) (Binding, bool) {
		jump := window[0]
		if jump.Mnemonic != asm.MnemonicJP {
			return Binding{}, false
		}

		label, ok := jumpLabel(jump)
		if !ok || ctx.FollowsWindow(len(window), label) {
			return Binding{}, false
		}

		destination, ok := threadJump(ctx, label)
		if !ok {
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"destination": asm.Imm(destination),
		}), true
	},
	Rewrite: func(binding Binding) []asm.Instruction {
		jump := binding.Window[0]
		operands := slices.Clone(jump.Operands)
		operands[len(operands)-1] = binding.Capture("destination")
		return []asm.Instruction{
			jump.WithOperands(operands...),
		}
	},
}

var jumpToReturn = &Pattern{
	ID:             "jump-to-return",
	Description:    "Replaces a jump to a return with the return",
	WindowSize:     1,
	Targets:        target.AllTargets,
	Savings:        Savings{Bytes: 2, Cycles: 10},
	TransfersLabel: true,
	Emits:          formsOf("RET"),
	Match: func(ctx *Context, window []asm.Instruction) (Binding, bool) {
		jump := window[0]
		if !jump.Is(asm.MnemonicJP, 1) {
			return Binding{}, false
		}

		label, ok := jumpLabel(jump)
		if !ok || ctx.FollowsWindow(len(window), label) {
			return Binding{}, false
		}

		index, ok := ctx.Resolve(label)
		if !ok || !matches(ctx.Instructions[index], asm.MnemonicRET) {
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"label": asm.Imm(label),
		}), true
	},
	Rewrite: replaceWith(asm.MnemonicRET),
}

var tailCall = &Pattern{
	ID:             "tail-call",
	Description:    "Replaces a call followed by a return with a jump",
	WindowSize:     2,
	Targets:        target.AllTargets,
	Savings:        Savings{Bytes: 1, Cycles: 17},
	TransfersLabel: true,
	Emits:          formsOf("JP TARGET"),
	Match: func(_ *Context, window []asm.Instruction) (Binding, bool) {
		call, ret := window[0], window[1]
		if !call.Is(asm.MnemonicCALL, 1) || !matches(ret, asm.MnemonicRET) {
			return Binding{}, false
		}

		destination := call.Operands[0]
		if destination.Kind != asm.OperandKindImmediate {
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"destination": destination,
		}), true
	},
	Rewrite: func(binding Binding) []asm.Instruction {
		jump := asm.NewInstruction(asm.MnemonicJP, binding.Capture("destination"))
		jump.Comment = binding.Window[0].Comment
		return []asm.Instruction{jump}
	},
}

var loadStoreFusion = &Pattern{
	ID:          "load-store-fusion",
	Description: "Removes a load of a register from the address it was just stored to",
	WindowSize:  2,
	Targets:     target.AllTargets,
	Savings:     Savings{Bytes: 3, Cycles: 13},
	Match: func(_ *Context, window []asm.Instruction) (Binding, bool) {
		store := window[0]
		if !store.Is(asm.MnemonicLD, 2) {
			return Binding{}, false
		}

		address, register := store.Operands[0], store.Operands[1]
		if !address.IsMemory() || !isRegisterOperand(register) {
			return Binding{}, false
		}

		if !matches(window[1], asm.MnemonicLD, register, address) {
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"address":  address,
			"register": register,
		}), true
	},
	Rewrite: keepFirst,
}

var pushPopTransfer = &Pattern{
	ID:             "push-pop-transfer",
	Description:    "Replaces a transfer of a register pair through the stack with register loads",
	WindowSize:     2,
	Targets:        target.AllTargets,
	Savings:        Savings{Bytes: 0, Cycles: 11},
	TransfersLabel: true,
	Emits:          formsOf("LD B,C"),
	Match: func(_ *Context, window []asm.Instruction) (Binding, bool) {
		push, pop := window[0], window[1]
		if !push.Is(asm.MnemonicPUSH, 1) || !pop.Is(asm.MnemonicPOP, 1) {
			return Binding{}, false
		}

		source, destination := push.Operands[0], pop.Operands[0]
		if source.Kind != asm.OperandKindRegisterPair ||
			destination.Kind != asm.OperandKindRegisterPair ||
			source.Register == destination.Register {

			return Binding{}, false
		}

		if _, _, ok := source.Register.Halves(); !ok {
			return Binding{}, false
		}
		if _, _, ok := destination.Register.Halves(); !ok {
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"source":      source,
			"destination": destination,
		}), true
	},
	Rewrite: func(binding Binding) []asm.Instruction {
		sourceHigh, sourceLow, _ := binding.Capture("source").Register.Halves()
		destinationHigh, destinationLow, _ := binding.Capture("destination").Register.Halves()

		high := asm.NewInstruction(asm.MnemonicLD, asm.Reg(destinationHigh), asm.Reg(sourceHigh))
		high.Comment = binding.Window[0].Comment

		return []asm.Instruction{
			high,
			asm.NewInstruction(asm.MnemonicLD, asm.Reg(destinationLow), asm.Reg(sourceLow)),
		}
	},
}

var compareZero = &Pattern{
	ID:             "compare-zero",
	Description:    "Replaces a comparison with zero by OR A, when P/V and N are not used afterwards",
	WindowSize:     1,
	Targets:        target.AllTargets,
	Savings:        Savings{Bytes: 1, Cycles: 3},
	TransfersLabel: true,
	Emits:          formsOf("OR A"),
	Match: func(ctx *Context, window []asm.Instruction) (Binding, bool) {
		compare := window[0]
		if compare.Mnemonic != asm.MnemonicCP {
			return Binding{}, false
		}

		operand, ok := accumulatorOperand(compare)
		if !ok || !isLiteral(operand, 0) {
			return Binding{}, false
		}

		if !ctx.FlagsDeadAfter(len(window), FlagPV|FlagN) {
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"value": operand,
		}), true
	},
	Rewrite: replaceWith(asm.MnemonicOR, asm.Reg(asm.RegisterA)),
}

// stepByOne returns a pattern replacing an 8-bit addition or subtraction of one
// with an increment or decrement, which leaves the carry flag alone.
func stepByOne(id string, description string, arithmetic asm.Mnemonic, step asm.Mnemonic) *Pattern {
	return &Pattern{
		ID:             id,
		Description:    description,
		WindowSize:     1,
		Targets:        target.AllTargets,
		Savings:        Savings{Bytes: 1, Cycles: 2},
		TransfersLabel: true,
		Emits:          formsOf(step.String() + " A"),
		Match: func(ctx *Context, window []asm.Instruction) (Binding, bool) {
			instruction := window[0]
			if instruction.Mnemonic != arithmetic {
				return Binding{}, false
			}

			operands := instruction.Operands
			// ADD requires the accumulator, SUB may omit it
			if arithmetic == asm.MnemonicADD &&
				(len(operands) != 2 || !operands[0].IsRegister(asm.RegisterA)) {

				return Binding{}, false
			}

			operand, ok := accumulatorOperand(instruction)
			if !ok || !isLiteral(operand, 1) {
				return Binding{}, false
			}

			if !ctx.FlagsDeadAfter(len(window), FlagC) {
				return Binding{}, false
			}

			return bind(window, map[string]asm.Operand{
				"value": operand,
			}), true
		},
		Rewrite: replaceWith(step, asm.Reg(asm.RegisterA)),
	}
}

var addOne = stepByOne(
	"add-one",
	"Replaces ADD A,1 with INC A, when the carry is not used afterwards",
	asm.MnemonicADD,
	asm.MnemonicINC,
)

var subtractOne = stepByOne(
	"subtract-one",
	"Replaces SUB 1 with DEC A, when the carry is not used afterwards",
	asm.MnemonicSUB,
	asm.MnemonicDEC,
)

// blockCopy returns a pattern replacing the byte copy loop
//
//	L:  LD A,(HL)
//	    LD (DE),A
//	    INC HL
//	    INC DE
//	    DEC BC
//	    LD A,B
//	    OR C
//	    JP NZ,L
//
// with the block transfer instruction, followed by XOR A,
// which leaves A and the flags as the loop does.
// The pointers are either both incremented or both decremented.
func blockCopy(id string, description string, step asm.Mnemonic, transfer asm.Mnemonic) *Pattern {
	a, b, c := asm.Reg(asm.RegisterA), asm.Reg(asm.RegisterB), asm.Reg(asm.RegisterC)
	hl, de, bc := asm.Reg(asm.RegisterHL), asm.Reg(asm.RegisterDE), asm.Reg(asm.RegisterBC)

	return &Pattern{
		ID:             id,
		Description:    description,
		WindowSize:     8,
		Targets:        target.NewSet(target.Z80),
		Savings:        Savings{Bytes: 7, Cycles: 25},
		TransfersLabel: true,
		Emits:          formsOf(transfer.String(), "XOR A"),
		Match: func(_ *Context, window []asm.Instruction) (Binding, bool) {
			label := window[0].Label
			if label == "" {
				return Binding{}, false
			}

			if !matches(window[0], asm.MnemonicLD, a, asm.Indirect(asm.RegisterHL)) ||
				!matches(window[1], asm.MnemonicLD, asm.Indirect(asm.RegisterDE), a) {

				return Binding{}, false
			}

			steps := (matches(window[2], step, hl) && matches(window[3], step, de)) ||
				(matches(window[2], step, de) && matches(window[3], step, hl))
			if !steps || !matches(window[4], asm.MnemonicDEC, bc) {
				return Binding{}, false
			}

			test := (matches(window[5], asm.MnemonicLD, a, b) && matches(window[6], asm.MnemonicOR, c)) ||
				(matches(window[5], asm.MnemonicLD, a, c) && matches(window[6], asm.MnemonicOR, b))
			if !test {
				return Binding{}, false
			}

			jump := window[7]
			if jump.Mnemonic != asm.MnemonicJP && jump.Mnemonic != asm.MnemonicJR {
				return Binding{}, false
			}
			condition, ok := jump.Condition()
			if !ok || condition != asm.ConditionNZ {
				return Binding{}, false
			}
			destination, ok := jumpLabel(jump)
			if !ok || destination != label {
				return Binding{}, false
			}

			return bind(window, map[string]asm.Operand{
				"label": asm.Imm(label),
			}), true
		},
		Rewrite: func(Binding) []asm.Instruction {
			return []asm.Instruction{
				asm.NewInstruction(transfer),
				asm.NewInstruction(asm.MnemonicXOR, a),
			}
		},
	}
}

var z80BlockCopy = blockCopy(
	"z80-block-copy",
	"Replaces an ascending byte copy loop with LDIR",
	asm.MnemonicINC,
	asm.MnemonicLDIR,
)

var z80BlockCopyReverse = blockCopy(
	"z80-block-copy-reverse",
	"Replaces a descending byte copy loop with LDDR",
	asm.MnemonicDEC,
	asm.MnemonicLDDR,
)

var z80DJNZ = &Pattern{
	ID:             "z80-djnz",
	Description:    "Replaces DEC B and a conditional jump on non-zero with DJNZ",
	WindowSize:     2,
	Targets:        target.NewSet(target.Z80),
	Savings:        Savings{Bytes: 2, Cycles: 1},
	TransfersLabel: true,
	Emits:          formsOf("DJNZ TARGET"),
	Match: func(ctx *Context, window []asm.Instruction) (Binding, bool) {
		decrement, jump := window[0], window[1]
		if !matches(decrement, asm.MnemonicDEC, asm.Reg(asm.RegisterB)) {
			return Binding{}, false
		}

		if (jump.Mnemonic != asm.MnemonicJP && jump.Mnemonic != asm.MnemonicJR) ||
			len(jump.Operands) != 2 {

			return Binding{}, false
		}
		condition, ok := jump.Condition()
		if !ok || condition != asm.ConditionNZ {
			return Binding{}, false
		}
		label, ok := jumpLabel(jump)
		if !ok {
			return Binding{}, false
		}

		// DJNZ leaves the flags alone, so the flags DEC B sets must be dead on both paths
		if !ctx.FlagsDeadAfter(len(window), flagsExceptCarry) ||
			!ctx.FlagsDeadAt(label, flagsExceptCarry) {

			return Binding{}, false
		}

		const djnzSize = 2
		if !ctx.InRelativeRange(len(window), djnzSize, label) {
			return Binding{}, false
		}

		return bind(window, map[string]asm.Operand{
			"label": asm.Imm(label),
		}), true
	},
	Rewrite: func(binding Binding) []asm.Instruction {
		djnz := asm.NewInstruction(asm.MnemonicDJNZ, binding.Capture("label"))
		djnz.Comment = binding.Window[1].Comment
		return []asm.Instruction{djnz}
	},
}

var builtinPatterns = []*Pattern{
	redundantLoadElimination,
	selfLoad,
	inverseOpCancellation,
	pushPopCancellation,
	exchangeCancellation,
	exxCancellation,
	jumpToNext,
	jumpThreading,
	jumpToReturn,
	tailCall,
	loadStoreFusion,
	pushPopTransfer,
	compareZero,
	addOne,
	subtractOne,
	z80BlockCopy,
	z80BlockCopyReverse,
	z80DJNZ,
}

// BuiltinPatterns returns the built-in patterns, for all targets.
func BuiltinPatterns() []*Pattern {
	return slices.Clone(builtinPatterns)
}
