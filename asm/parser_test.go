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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upeep80/upeep80/errors"
	. "github.com/upeep80/upeep80/test_utils/common_utils"
)

func TestParse(t *testing.T) {

	t.Parallel()

	t.Run("label, mnemonic, operands and comment", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse("LOOP:\tLD A,(HL)\t; load\n")
		require.NoError(t, err)
		require.Len(t, unit.Instructions, 1)

		instruction := unit.Instructions[0]
		assert.Equal(t, "LOOP", instruction.Label)
		assert.Equal(t, MnemonicLD, instruction.Mnemonic)
		assert.Equal(t, "LD", instruction.Name)
		assert.Equal(t, "load", instruction.Comment)
		assert.Equal(t, 1, instruction.Line)

		require.Len(t, instruction.Operands, 2)
		assert.Equal(t, OperandKindRegister, instruction.Operands[0].Kind)
		assert.Equal(t, RegisterA, instruction.Operands[0].Register)
		assert.Equal(t, OperandKindRegisterIndirect, instruction.Operands[1].Kind)
		assert.Equal(t, RegisterHL, instruction.Operands[1].Register)
	})

	t.Run("lower case", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse("  ld hl,1234h\n")
		require.NoError(t, err)

		instruction := unit.Instructions[0]
		assert.Equal(t, MnemonicLD, instruction.Mnemonic)
		assert.Equal(t, "ld", instruction.Name)
		assert.True(t, instruction.Operands[0].IsRegister(RegisterHL))
		assert.Equal(t, OperandKindImmediate, instruction.Operands[1].Kind)
		assert.Equal(t, "1234h", instruction.Operands[1].Key())
	})

	t.Run("trivia", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse(Lines(
			"",
			"; header",
			"START:",
			"\tNOP",
		))
		require.NoError(t, err)
		require.Len(t, unit.Instructions, 4)

		assert.True(t, unit.Instructions[0].IsTrivia())
		assert.True(t, unit.Instructions[1].IsTrivia())
		assert.Equal(t, "header", unit.Instructions[1].Comment)
		assert.True(t, unit.Instructions[2].IsTrivia())
		assert.Equal(t, "START", unit.Instructions[2].Label)
		assert.True(t, unit.Instructions[3].IsOperation())
		assert.Equal(t, 4, unit.Instructions[3].Line)
	})

	t.Run("unknown mnemonic is opaque", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse("TABLE: DB 1, 2, \"a,b\" ; data\n")
		require.NoError(t, err)

		instruction := unit.Instructions[0]
		assert.True(t, instruction.IsOpaque())
		assert.Equal(t, "DB", instruction.Name)
		require.Len(t, instruction.Operands, 3)
		assert.Equal(t, OperandKindString, instruction.Operands[2].Kind)
		assert.Equal(t, `"a,b"`, instruction.Operands[2].Text)
		assert.Equal(t, "data", instruction.Comment)
	})

	t.Run("alternate register set", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse("\tEX AF,AF'\n")
		require.NoError(t, err)

		instruction := unit.Instructions[0]
		assert.Equal(t, MnemonicEX, instruction.Mnemonic)
		require.Len(t, instruction.Operands, 2)
		assert.True(t, instruction.Operands[1].IsRegister(RegisterAFPrime))
	})

	t.Run("character literals", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse("\tCP ';' ; semicolon\n\tLD A,''''\n")
		require.NoError(t, err)

		assert.Equal(t, OperandKindString, unit.Instructions[0].Operands[0].Kind)
		assert.Equal(t, "';'", unit.Instructions[0].Operands[0].Text)
		assert.Equal(t, "semicolon", unit.Instructions[0].Comment)
		assert.Equal(t, "''''", unit.Instructions[1].Operands[1].Text)
	})

	t.Run("condition and register C", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse(Lines(
			"\tJP C,DONE",
			"\tLD A,C",
			"\tRET C",
			"DONE:\tJP (HL)",
		))
		require.NoError(t, err)

		jump := unit.Instructions[0]
		assert.Equal(t, OperandKindCondition, jump.Operands[0].Kind)
		assert.Equal(t, ConditionC, jump.Operands[0].Condition)

		load := unit.Instructions[1]
		assert.True(t, load.Operands[1].IsRegister(RegisterC))

		ret := unit.Instructions[2]
		condition, ok := ret.Condition()
		require.True(t, ok)
		assert.Equal(t, ConditionC, condition)

		indirect := unit.Instructions[3]
		assert.Equal(t, OperandKindRegisterIndirect, indirect.Operands[0].Kind)
	})

	t.Run("indexed", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse("\tLD A,(IX + 5)\n\tLD (iy-2),b\n\tLD A,(1234H)\n")
		require.NoError(t, err)

		first := unit.Instructions[0].Operands[1]
		assert.Equal(t, OperandKindIndexed, first.Kind)
		assert.Equal(t, RegisterIX, first.Register)
		assert.Equal(t, "+5", first.Displacement)
		assert.Equal(t, "(IX+5)", first.Key())

		second := unit.Instructions[1].Operands[0]
		assert.Equal(t, OperandKindIndexed, second.Kind)
		assert.Equal(t, RegisterIY, second.Register)
		assert.Equal(t, "-2", second.Displacement)

		third := unit.Instructions[2].Operands[1]
		assert.Equal(t, OperandKindAddress, third.Kind)
		assert.Equal(t, "1234H", third.Expression)
	})

	t.Run("public label", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse("ENTRY::\tRET\n")
		require.NoError(t, err)
		assert.Equal(t, "ENTRY", unit.Instructions[0].Label)
		assert.Equal(t, MnemonicRET, unit.Instructions[0].Mnemonic)
	})

	t.Run("carriage returns", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse("\tNOP\r\n\tHALT\r\n")
		require.NoError(t, err)
		require.Len(t, unit.Instructions, 2)
		assert.Equal(t, MnemonicHALT, unit.Instructions[1].Mnemonic)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		unit, err := Parse("")
		require.NoError(t, err)
		assert.Equal(t, 0, unit.Len())
	})
}

func TestParseErrors(t *testing.T) {

	t.Parallel()

	test := func(name string, text string, expected *ParseError) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(text)
			RequireError(t, err)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, expected, parseErr)
			assert.True(t, errors.IsUserError(err))
			assert.False(t, errors.IsInternalError(err))
		})
	}

	test(
		"unterminated string",
		"\tDB \"abc\n",
		&ParseError{
			Line:   1,
			Column: 5,
			Reason: "unterminated string literal",
		},
	)

	test(
		"unterminated character",
		"\tNOP\n\tLD A,'x\n",
		&ParseError{
			Line:   2,
			Column: 7,
			Reason: "unterminated character literal",
		},
	)

	test(
		"label redefinition",
		"L1:\tNOP\nL1:\tNOP\n",
		&ParseError{
			Line:         2,
			Column:       1,
			Reason:       "label `L1` is already defined",
			PreviousLine: 1,
		},
	)

	test(
		"statement starting with a number",
		"123\n",
		&ParseError{
			Line:   1,
			Column: 1,
			Reason: "unexpected character '1' at start of statement",
		},
	)

	test(
		"mnemonic after label",
		"L1: 5\n",
		&ParseError{
			Line:   1,
			Column: 5,
			Reason: "cannot tokenize mnemonic starting with '5'",
		},
	)

	test(
		"second label",
		"L1: L2: NOP\n",
		&ParseError{
			Line:   1,
			Column: 5,
			Reason: "unexpected second label \"L2\"",
		},
	)

	test(
		"missing operand",
		"\tLD A,\n",
		&ParseError{
			Line:   1,
			Column: 7,
			Reason: "missing operand",
		},
	)
}

func TestParseErrorNotes(t *testing.T) {

	t.Parallel()

	_, err := Parse("L1:\tNOP\nL1:\tNOP\n")
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)

	notes := parseErr.ErrorNotes()
	require.Len(t, notes, 1)
	assert.Equal(t, "previously defined on line 1", notes[0].Message())
	assert.Equal(t, "2:1: label `L1` is already defined", err.Error())
}

func TestMustParseInstruction(t *testing.T) {

	t.Parallel()

	instruction := MustParseInstruction("\tPUSH BC")
	assert.Equal(t, MnemonicPUSH, instruction.Mnemonic)

	assert.Panics(t, func() {
		MustParseInstruction("\tLD A,\"")
	})
}
