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

package pretty

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/peephole"
	"github.com/upeep80/upeep80/target"
)

func TestPrintParseError(t *testing.T) {

	t.Parallel()

	const code = "X1: NOP\nX1: NOP\n"

	_, err := asm.Parse(code)
	require.Error(t, err)

	var sb strings.Builder
	printer := NewErrorPrettyPrinter(&sb, false)
	err = printer.PrettyPrintError(err, "test.asm", code)
	require.NoError(t, err)
	require.Equal(t,
		"error: 2:1: label `X1` is already defined\n"+
			" --> test.asm:2:1\n"+
			"  |\n"+
			"2 | X1: NOP\n"+
			"  | ^^^\n"+
			"  = note: previously defined on line 1\n",
		sb.String(),
	)
}

func TestPrintBrokenCode(t *testing.T) {

	t.Parallel()

	const code = "\tNOP\n\tNOP"

	var sb strings.Builder
	printer := NewErrorPrettyPrinter(&sb, false)
	err := printer.PrettyPrintError(
		&peephole.TargetLegalityViolation{
			PatternID:   "test",
			Instruction: asm.MustParseInstruction("\tEXX"),
			Target:      target.Intel8080,
			// NOTE: line number is after end of code
			Line: 5,
		},
		"test.asm",
		code,
	)
	require.NoError(t, err)
	require.Equal(t,
		"internal error: pattern `test` emitted `EXX` on line 5, which is not a valid Intel8080 instruction\n"+
			" --> test.asm:5:0\n",
		sb.String(),
	)
}

func TestPrintTabs(t *testing.T) {

	t.Parallel()

	const code = "\tDJNZ LOOP\t; go\n"

	unit, err := asm.Parse(code)
	require.NoError(t, err)

	var sb strings.Builder
	printer := NewErrorPrettyPrinter(&sb, false)
	err = printer.PrettyPrintError(
		target.Check(unit, target.Intel8080),
		"test.asm",
		code,
	)
	require.NoError(t, err)
	require.Equal(t,
		"error: `DJNZ LOOP` is not a valid Intel8080 instruction\n"+
			" --> test.asm:1:0\n"+
			"  |\n"+
			"1 | \tDJNZ LOOP\t; go\n"+
			"  | \t^^^^^^^^^ only valid on Z80\n",
		sb.String(),
	)
}

func TestPrintChildErrors(t *testing.T) {

	t.Parallel()

	const code = "\tEXX\n\tRET\n\tLDIR\n"

	unit, err := asm.Parse(code)
	require.NoError(t, err)

	var sb strings.Builder
	printer := NewErrorPrettyPrinter(&sb, false)
	err = printer.PrettyPrintError(
		target.Check(unit, target.Intel8080),
		"test.asm",
		code,
	)
	require.NoError(t, err)
	require.Equal(t,
		"error: `EXX` is not a valid Intel8080 instruction\n"+
			" --> test.asm:1:0\n"+
			"  |\n"+
			"1 | \tEXX\n"+
			"  | \t^^^ only valid on Z80\n"+
			"\n"+
			"error: `LDIR` is not a valid Intel8080 instruction\n"+
			" --> test.asm:3:0\n"+
			"  |\n"+
			"3 | \tLDIR\n"+
			"  | \t^^^^ only valid on Z80\n",
		sb.String(),
	)
}

func TestPrintColor(t *testing.T) {

	t.Parallel()

	const code = "X1: NOP\nX1: NOP\n"

	_, err := asm.Parse(code)
	require.Error(t, err)

	var sb strings.Builder
	printer := NewErrorPrettyPrinter(&sb, true)
	err = printer.PrettyPrintError(err, "test.asm", code)
	require.NoError(t, err)

	assert.Contains(t, sb.String(), "\x1b[")
	assert.Contains(t, sb.String(), "label `X1` is already defined")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}

func TestPrintWriteFailure(t *testing.T) {

	t.Parallel()

	_, err := asm.Parse("X1: NOP\nX1: NOP\n")
	require.Error(t, err)

	printer := NewErrorPrettyPrinter(failingWriter{}, false)
	err = printer.PrettyPrintError(err, "test.asm", "")
	require.ErrorIs(t, err, assert.AnError)
}
