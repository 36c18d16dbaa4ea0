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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/target"
	. "github.com/upeep80/upeep80/test_utils/common_utils"
)

func optimizeText(t *testing.T, tgt target.Target, text string) (string, *Report) {
	t.Helper()

	unit, err := asm.Parse(text)
	require.NoError(t, err)

	optimized, report, err := Optimize(unit, tgt, 0)
	require.NoError(t, err)
	require.True(t, report.Converged)

	return asm.Render(optimized), report
}

func appliedPatterns(report *Report) []string {
	ids := make([]string, 0, len(report.Applied))
	for _, application := range report.Applied {
		ids = append(ids, application.PatternID)
	}
	return ids
}

type patternTestCase struct {
	name     string
	targets  []target.Target
	code     []string
	expected []string
	applied  []string
}

func testPatterns(t *testing.T, testCases []patternTestCase) {
	for _, testCase := range testCases {
		targets := testCase.targets
		if targets == nil {
			targets = target.All
		}

		for _, tgt := range targets {
			t.Run(testCase.name+"/"+tgt.String(), func(t *testing.T) {
				t.Parallel()

				output, report := optimizeText(t, tgt, Lines(testCase.code...))

				expected := testCase.expected
				if expected == nil {
					expected = testCase.code
				}
				assert.Equal(t, Lines(expected...), output)

				applied := testCase.applied
				if applied == nil {
					applied = []string{}
				}
				assert.Equal(t, applied, appliedPatterns(report))
			})
		}
	}
}

func TestRedundantLoadElimination(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "immediate",
			code:     []string{"\tLD A,0", "\tLD A,0"},
			expected: []string{"\tLD A,0"},
			applied:  []string{"redundant-load-elimination"},
		},
		{
			name:     "register pair",
			code:     []string{"\tLD HL,TABLE", "\tld hl, TABLE", "\tRET"},
			expected: []string{"\tLD HL,TABLE", "\tRET"},
			applied:  []string{"redundant-load-elimination"},
		},
		{
			name: "different source",
			code: []string{"\tLD A,0", "\tLD A,1"},
		},
		{
			name: "memory source",
			code: []string{"\tLD A,(HL)", "\tLD A,(HL)"},
		},
		{
			name:    "refresh register",
			targets: []target.Target{target.Z80},
			code:    []string{"\tLD A,R", "\tLD A,R"},
		},
		{
			name:    "refresh register destination",
			targets: []target.Target{target.Z80},
			code:    []string{"\tLD R,A", "\tLD R,A", "\tLD A,R"},
		},
		{
			name: "live label on second load",
			code: []string{"\tLD A,0", "AGAIN:\tLD A,0", "\tJP AGAIN"},
		},
		{
			name:     "dead label on second load",
			code:     []string{"\tLD A,0", "UNUSED:\tLD A,0"},
			expected: []string{"\tLD A,0"},
			applied:  []string{"redundant-load-elimination"},
		},
	})
}

func TestSelfLoad(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "removed",
			code:     []string{"\tLD B,B", "\tRET"},
			expected: []string{"\tRET"},
			applied:  []string{"self-load"},
		},
		{
			name:     "live label moves to next instruction",
			code:     []string{"ENTRY:\tLD C,C", "\tRET", "\tDW ENTRY"},
			expected: []string{"ENTRY:\tRET", "\tDW ENTRY"},
			applied:  []string{"self-load"},
		},
		{
			name: "live label without following instruction",
			code: []string{"\tDW ENTRY", "ENTRY:\tLD C,C"},
		},
	})
}

func TestInverseOpCancellation(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "flags overwritten",
			code:     []string{"\tINC A", "\tDEC A", "\tXOR A"},
			expected: []string{"\tXOR A"},
			applied:  []string{"inverse-op-cancellation"},
		},
		{
			name: "flags read",
			code: []string{"\tDEC E", "\tINC E", "\tRET Z"},
		},
		{
			name:     "register pair leaves flags alone",
			code:     []string{"\tINC HL", "\tDEC HL", "\tRET Z"},
			expected: []string{"\tRET Z"},
			applied:  []string{"inverse-op-cancellation"},
		},
		{
			name:     "half carry overwritten by Z80 CPL",
			targets:  []target.Target{target.Z80},
			code:     []string{"\tINC A", "\tDEC A", "\tCPL", "\tDAA", "\tRET"},
			expected: []string{"\tCPL", "\tDAA", "\tRET"},
			applied:  []string{"inverse-op-cancellation"},
		},
		{
			name:    "half carry kept by 8080 CPL",
			targets: []target.Target{target.Intel8080},
			code:    []string{"\tINC A", "\tDEC A", "\tCPL", "\tDAA", "\tRET"},
		},
		{
			name: "memory",
			code: []string{"\tINC (HL)", "\tDEC (HL)"},
		},
		{
			name: "different registers",
			code: []string{"\tINC B", "\tDEC C"},
		},
	})
}

func TestStackAndExchangeCancellation(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "push pop",
			code:     []string{"\tPUSH BC", "\tPOP BC", "\tRET"},
			expected: []string{"\tRET"},
			applied:  []string{"push-pop-cancellation"},
		},
		{
			name:     "exchange",
			code:     []string{"\tEX DE,HL", "\tEX DE,HL", "\tRET"},
			expected: []string{"\tRET"},
			applied:  []string{"exchange-cancellation"},
		},
		{
			name:     "alternate registers",
			targets:  []target.Target{target.Z80},
			code:     []string{"\tEXX", "\tEXX", "\tEX AF,AF'", "\tEX AF,AF'", "\tRET"},
			expected: []string{"\tRET"},
			applied:  []string{"exx-cancellation", "exx-cancellation"},
		},
	})
}

func TestPushPopTransfer(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "HL to DE",
			code:     []string{"\tPUSH HL", "\tPOP DE", "\tRET"},
			expected: []string{"\tLD D,H", "\tLD E,L", "\tRET"},
			applied:  []string{"push-pop-transfer"},
		},
		{
			name: "AF",
			code: []string{"\tPUSH AF", "\tPOP BC", "\tRET"},
		},
	})
}

func TestJumpToNext(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "conditional",
			code:     []string{"\tJP Z,NEXT", "NEXT:\tRET"},
			expected: []string{"NEXT:\tRET"},
			applied:  []string{"jump-to-next"},
		},
		{
			name:     "relative, across comments",
			targets:  []target.Target{target.Z80},
			code:     []string{"\tJR NEXT", "; skip", "NEXT:", "\tRET"},
			expected: []string{"; skip", "NEXT:", "\tRET"},
			applied:  []string{"jump-to-next"},
		},
		{
			name: "jump over an instruction",
			code: []string{"\tJP Z,NEXT", "\tNOP", "NEXT:\tRET"},
		},
		{
			name:     "live label of jump",
			code:     []string{"\tDW SKIP", "SKIP:\tJP NEXT", "NEXT:\tRET"},
			expected: []string{"\tDW SKIP", "SKIP:", "NEXT:\tRET"},
			applied:  []string{"jump-to-next"},
		},
	})
}

func TestJumpThreading(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name: "chain",
			code: []string{
				"\tJP Z,FIRST",
				"\tRET",
				"FIRST:\tJP SECOND",
				"\tNOP",
				"SECOND:\tXOR A",
				"\tRET",
			},
			expected: []string{
				"\tJP Z,SECOND",
				"\tRET",
				"FIRST:\tJP SECOND",
				"\tNOP",
				"SECOND:\tXOR A",
				"\tRET",
			},
			applied: []string{"jump-threading"},
		},
		{
			name: "cycle",
			code: []string{
				"START:\tJP FIRST",
				"\tNOP",
				"FIRST:\tJP SECOND",
				"\tNOP",
				"SECOND:\tJP FIRST",
			},
		},
	})

	t.Run("savings are estimated", func(t *testing.T) {
		t.Parallel()

		_, report := optimizeText(t, target.Z80, Lines(
			"\tJP FIRST",
			"\tNOP",
			"FIRST:\tJP SECOND",
			"\tNOP",
			"SECOND:\tHALT",
		))

		require.Len(t, report.Applied, 1)
		AssertEqualWithDiff(t,
			Application{
				PatternID: "jump-threading",
				FirstLine: 1,
				LastLine:  1,
				Bytes:     0,
				Cycles:    10,
				Iteration: 1,
				Estimated: true,
			},
			report.Applied[0],
		)
	})
}

func TestJumpToReturn(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "return",
			code:     []string{"\tJP EXIT\t; leave", "\tNOP", "EXIT:\tRET"},
			expected: []string{"\tRET\t\t\t; leave", "\tNOP", "EXIT:\tRET"},
			applied:  []string{"jump-to-return"},
		},
		{
			name:     "followed by tail call",
			code:     []string{"\tCALL WORK", "\tJP EXIT", "\tNOP", "EXIT:\tRET"},
			expected: []string{"\tJP WORK", "\tNOP", "EXIT:\tRET"},
			applied:  []string{"jump-to-return", "tail-call"},
		},
		{
			name: "conditional return",
			code: []string{"\tJP EXIT", "\tNOP", "EXIT:\tRET Z"},
		},
	})
}

func TestTailCall(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "call and return",
			code:     []string{"\tCALL WORK", "\tRET"},
			expected: []string{"\tJP WORK"},
			applied:  []string{"tail-call"},
		},
		{
			name: "live label on return",
			code: []string{"\tCALL WORK", "DONE:\tRET", "\tDW DONE"},
		},
		{
			name: "conditional call",
			code: []string{"\tCALL NZ,WORK", "\tRET"},
		},
	})
}

func TestLoadStoreFusion(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "direct address",
			code:     []string{"\tLD (COUNT),A", "\tLD A,(COUNT)"},
			expected: []string{"\tLD (COUNT),A"},
			applied:  []string{"load-store-fusion"},
		},
		{
			name:     "indexed",
			targets:  []target.Target{target.Z80},
			code:     []string{"\tLD (IX+2),B", "\tLD B,(IX+2)"},
			expected: []string{"\tLD (IX+2),B"},
			applied:  []string{"load-store-fusion"},
		},
		{
			name: "different address",
			code: []string{"\tLD (COUNT),A", "\tLD A,(COUNT+1)"},
		},
	})
}

func TestFlagSensitivePatterns(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "compare with zero",
			code:     []string{"\tCP 0", "\tJP Z,DONE", "\tINC A", "DONE:\tLD (N),A"},
			expected: []string{"\tOR A", "\tJP Z,DONE", "\tINC A", "DONE:\tLD (N),A"},
			applied:  []string{"compare-zero"},
		},
		{
			name:     "compare with hexadecimal zero",
			code:     []string{"LOOP:\tCP A,00H", "\tJP NZ,LOOP"},
			expected: []string{"LOOP:\tOR A", "\tJP NZ,LOOP"},
			applied:  []string{"compare-zero"},
		},
		{
			name: "compare with zero, flags reach caller",
			code: []string{"\tCP 0", "\tRET Z"},
		},
		{
			name: "compare with zero, parity read",
			code: []string{"\tCP 0", "\tJP PE,EVEN"},
		},
		{
			name:     "add one",
			code:     []string{"\tADD A,1", "\tOR A"},
			expected: []string{"\tINC A", "\tOR A"},
			applied:  []string{"add-one"},
		},
		{
			name: "add one, carry read",
			code: []string{"\tADD A,1", "\tJP C,OVERFLOW"},
		},
		{
			name:     "subtract one",
			code:     []string{"\tSUB 1", "\tAND 0FH"},
			expected: []string{"\tDEC A", "\tAND 0FH"},
			applied:  []string{"subtract-one"},
		},
		{
			name: "subtract one, carry read",
			code: []string{"\tSUB 1", "\tRET C"},
		},
	})
}

func copyLoop(step string, jump string) []string {
	return []string{
		"COPY:\tLD A,(HL)",
		"\tLD (DE),A",
		"\t" + step + " HL",
		"\t" + step + " DE",
		"\tDEC BC",
		"\tLD A,B",
		"\tOR C",
		"\t" + jump + " NZ,COPY",
		"\tRET",
	}
}

func TestBlockCopy(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "ascending",
			targets:  []target.Target{target.Z80},
			code:     copyLoop("INC", "JR"),
			expected: []string{"COPY:\tLDIR", "\tXOR A", "\tRET"},
			applied:  []string{"z80-block-copy"},
		},
		{
			name:     "descending",
			targets:  []target.Target{target.Z80},
			code:     copyLoop("DEC", "JP"),
			expected: []string{"COPY:\tLDDR", "\tXOR A", "\tRET"},
			applied:  []string{"z80-block-copy-reverse"},
		},
		{
			name:    "Intel 8080",
			targets: []target.Target{target.Intel8080},
			code:    copyLoop("INC", "JP"),
		},
		{
			name:    "mixed directions",
			targets: []target.Target{target.Z80},
			code: []string{
				"COPY:\tLD A,(HL)",
				"\tLD (DE),A",
				"\tINC HL",
				"\tDEC DE",
				"\tDEC BC",
				"\tLD A,B",
				"\tOR C",
				"\tJP NZ,COPY",
			},
		},
	})
}

func djnzLoop(body int) []string {
	lines := []string{
		"\tLD B,8",
		"LOOP:\tRLA",
	}
	for i := 0; i < body; i++ {
		lines = append(lines, "\tAND A")
	}
	return append(lines,
		"\tDEC B",
		"\tJP NZ,LOOP",
		"\tXOR A",
	)
}

func TestDJNZ(t *testing.T) {

	t.Parallel()

	testPatterns(t, []patternTestCase{
		{
			name:     "loop",
			targets:  []target.Target{target.Z80},
			code:     djnzLoop(0),
			expected: []string{"\tLD B,8", "LOOP:\tRLA", "\tDJNZ LOOP", "\tXOR A"},
			applied:  []string{"z80-djnz"},
		},
		{
			name:    "Intel 8080",
			targets: []target.Target{target.Intel8080},
			code:    djnzLoop(0),
		},
		{
			name:    "flags read after loop",
			targets: []target.Target{target.Z80},
			code:    []string{"LOOP:\tRLA", "\tDEC B", "\tJP NZ,LOOP", "\tRET Z"},
		},
		{
			name:    "flags read at loop start",
			targets: []target.Target{target.Z80},
			code:    []string{"LOOP:\tRET Z", "\tDEC B", "\tJR NZ,LOOP", "\tXOR A"},
		},
	})

	t.Run("range", func(t *testing.T) {
		t.Parallel()

		// The loop body and DJNZ itself must not exceed 128 bytes
		output, report := optimizeText(t, target.Z80, Lines(djnzLoop(125)...))
		assert.Equal(t, []string{"z80-djnz"}, appliedPatterns(report))
		assert.Contains(t, output, "\tDJNZ LOOP\n")

		code := Lines(djnzLoop(126)...)
		output, report = optimizeText(t, target.Z80, code)
		assert.Empty(t, report.Applied)
		assert.Equal(t, code, output)
		assert.False(t, strings.Contains(output, "DJNZ"))
	})
}
