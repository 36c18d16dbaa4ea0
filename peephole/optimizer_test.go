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
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/errors"
	"github.com/upeep80/upeep80/target"
	. "github.com/upeep80/upeep80/test_utils/common_utils"
)

func parseUnit(t *testing.T, lines ...string) *asm.Unit {
	t.Helper()

	unit, err := asm.Parse(Lines(lines...))
	require.NoError(t, err)
	return unit
}

func TestOptimizeScenarios(t *testing.T) {

	t.Parallel()

	t.Run("repeated load", func(t *testing.T) {
		t.Parallel()

		unit := parseUnit(t, "LD A,0", "LD A,0")

		optimized, report, err := Optimize(unit, target.Intel8080, DefaultMaxIterations)
		require.NoError(t, err)

		assert.Equal(t, Lines("LD A,0"), asm.Render(optimized))

		AssertEqualWithDiff(t,
			&Report{
				Target: target.Intel8080,
				Applied: []Application{
					{
						PatternID: "redundant-load-elimination",
						FirstLine: 1,
						LastLine:  2,
						Bytes:     2,
						Cycles:    7,
						Iteration: 1,
					},
				},
				BytesSaved:   2,
				CyclesSaved:  7,
				Iterations:   2,
				Converged:    true,
				Before:       target.Cost{Bytes: 4, Cycles: 14},
				After:        target.Cost{Bytes: 2, Cycles: 7},
				CostComplete: true,
			},
			report,
		)
	})

	t.Run("increment and decrement", func(t *testing.T) {
		t.Parallel()

		unit := parseUnit(t, "INC A", "DEC A")

		optimized, report, err := Optimize(unit, target.Z80, DefaultMaxIterations)
		require.NoError(t, err)

		assert.Equal(t, "", asm.Render(optimized))
		assert.Equal(t, []string{"inverse-op-cancellation"}, appliedPatterns(report))
		assert.Equal(t, 2, report.BytesSaved)
		assert.Equal(t, 8, report.CyclesSaved)
		assert.True(t, report.Converged)
	})

	t.Run("jump to next", func(t *testing.T) {
		t.Parallel()

		for _, tgt := range target.All {
			unit := parseUnit(t, "JP DONE", "DONE: RET")

			optimized, report, err := Optimize(unit, tgt, DefaultMaxIterations)
			require.NoError(t, err)

			assert.Equal(t, Lines("DONE: RET"), asm.Render(optimized))
			assert.Equal(t, []string{"jump-to-next"}, appliedPatterns(report))
		}
	})

	t.Run("register copy back", func(t *testing.T) {
		t.Parallel()

		for _, tgt := range target.All {
			unit := parseUnit(t, "LD A,B", "LD B,A")

			optimized, report, err := Optimize(unit, tgt, DefaultMaxIterations)
			require.NoError(t, err)

			assert.Equal(t, Lines("LD A,B", "LD B,A"), asm.Render(optimized))
			assert.Empty(t, report.Applied)
			assert.True(t, report.Converged)
			assert.Equal(t, 1, report.Iterations)
		}
	})
}

func TestOptimizeDoesNotModifyInput(t *testing.T) {

	t.Parallel()

	text := Lines(
		"ENTRY:\tLD C,C",
		"\tPUSH HL",
		"\tPOP DE",
		"\tRET",
		"\tDW ENTRY",
	)

	unit, err := asm.Parse(text)
	require.NoError(t, err)

	optimized, report, err := Optimize(unit, target.Z80, 0)
	require.NoError(t, err)
	require.True(t, report.Changed())

	assert.Equal(t, text, asm.Render(unit))
	assert.NotEqual(t, text, asm.Render(optimized))
}

func TestOptimizeLocationCounter(t *testing.T) {

	t.Parallel()

	text := Lines(
		"\tJR $+4",
		"\tLD A,0",
		"\tLD A,0",
	)

	unit, err := asm.Parse(text)
	require.NoError(t, err)

	optimized, report, err := Optimize(unit, target.Z80, 0)
	require.NoError(t, err)

	assert.Equal(t, text, asm.Render(optimized))
	assert.Empty(t, report.Applied)
	assert.NotEmpty(t, report.Skipped)
	assert.True(t, report.Converged)
	assert.Equal(t, 0, report.Iterations)
}

func nopPattern(id string, rewrite RewriteFunc) *Pattern {
	return &Pattern{
		ID:         id,
		WindowSize: 1,
		Targets:    target.AllTargets,
		Savings:    Savings{Bytes: 1, Cycles: 1},
		Match: func(_ *Context, window []asm.Instruction) (Binding, bool) {
			if !matches(window[0], asm.MnemonicNOP) {
				return Binding{}, false
			}
			return Binding{}, true
		},
		Rewrite: rewrite,
	}
}

func optimizeWith(
	t *testing.T,
	tgt target.Target,
	config *Config,
	patterns []*Pattern,
	lines ...string,
) (*asm.Unit, *Report, error) {
	t.Helper()

	library, err := NewLibrary(tgt, patterns)
	require.NoError(t, err)

	return NewOptimizer(library, config).Optimize(parseUnit(t, lines...))
}

func TestOptimizeLabels(t *testing.T) {

	t.Parallel()

	t.Run("label is not transferred", func(t *testing.T) {
		t.Parallel()

		pattern := nopPattern("remove-nop", removeAll)

		optimized, report, err := optimizeWith(t,
			target.Z80,
			nil,
			[]*Pattern{pattern},
			"\tDW HERE",
			"HERE:\tNOP",
			"\tRET",
		)
		require.NoError(t, err)

		assert.Equal(t, Lines("\tDW HERE", "HERE:\tNOP", "\tRET"), asm.Render(optimized))
		assert.Empty(t, report.Applied)
	})

	t.Run("label is transferred to the following instruction", func(t *testing.T) {
		t.Parallel()

		pattern := nopPattern("remove-nop", removeAll)
		pattern.TransfersLabel = true

		optimized, _, err := optimizeWith(t,
			target.Z80,
			nil,
			[]*Pattern{pattern},
			"\tDW HERE",
			"HERE:\tNOP",
			"\tRET",
		)
		require.NoError(t, err)

		assert.Equal(t, Lines("\tDW HERE", "HERE:\tRET"), asm.Render(optimized))
	})

	t.Run("label is transferred to a label line", func(t *testing.T) {
		t.Parallel()

		pattern := nopPattern("remove-nop", removeAll)
		pattern.TransfersLabel = true

		optimized, _, err := optimizeWith(t,
			target.Z80,
			nil,
			[]*Pattern{pattern},
			"\tDW HERE",
			"HERE:\tNOP",
			"; done",
			"\tRET",
		)
		require.NoError(t, err)

		assert.Equal(t, Lines("\tDW HERE", "HERE:", "; done", "\tRET"), asm.Render(optimized))
	})

	t.Run("reference in different case keeps label", func(t *testing.T) {
		t.Parallel()

		for _, t2 := range target.All {
			unit, err := asm.Parse(Lines(
				"\tJP done",
				"DONE:\tLD B,B",
				"\tRET",
			))
			require.NoError(t, err)

			optimized, report, err := Optimize(unit, t2, 0)
			require.NoError(t, err)

			assert.Equal(t,
				Lines("\tJP done", "DONE:\tRET"),
				asm.Render(optimized),
				t2.String(),
			)
			require.Len(t, report.Applied, 1)
			assert.Equal(t, "self-load", report.Applied[0].PatternID)
		}
	})

	t.Run("replacement with own label", func(t *testing.T) {
		t.Parallel()

		pattern := nopPattern("labelled-halt", func(Binding) []asm.Instruction {
			return []asm.Instruction{
				asm.NewInstruction(asm.MnemonicHALT).WithLabel("INNER"),
			}
		})
		pattern.TransfersLabel = true

		optimized, report, err := optimizeWith(t,
			target.Z80,
			nil,
			[]*Pattern{pattern},
			"\tDW HERE",
			"HERE:\tNOP",
		)
		require.NoError(t, err)

		assert.Equal(t, Lines("\tDW HERE", "HERE:", "INNER:\tHALT"), asm.Render(optimized))

		require.Len(t, report.Applied, 1)
		assert.True(t, report.Applied[0].Estimated)

		// new lines are attributed to the rewritten line
		for _, instruction := range optimized.Instructions[1:] {
			assert.Equal(t, 2, instruction.Line)
		}
	})
}

func TestOptimizeStrict(t *testing.T) {

	t.Parallel()

	newPattern := func() *Pattern {
		return nopPattern("nop-to-exx", func(Binding) []asm.Instruction {
			return []asm.Instruction{
				asm.NewInstruction(asm.MnemonicEXX),
			}
		})
	}

	t.Run("skipped", func(t *testing.T) {
		t.Parallel()

		var buffer bytes.Buffer
		config := NewConfig().WithLogger(zerolog.New(&buffer))

		optimized, report, err := optimizeWith(t,
			target.Intel8080,
			config,
			[]*Pattern{newPattern()},
			"\tNOP",
		)
		require.NoError(t, err)

		assert.Equal(t, Lines("\tNOP"), asm.Render(optimized))
		assert.Empty(t, report.Applied)
		assert.Contains(t, buffer.String(), "cannot encode")
	})

	t.Run("strict", func(t *testing.T) {
		t.Parallel()

		_, _, err := optimizeWith(t,
			target.Intel8080,
			NewConfig().WithStrict(),
			[]*Pattern{newPattern()},
			"\tNOP",
		)
		RequireError(t, err)

		var violation *TargetLegalityViolation
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "nop-to-exx", violation.PatternID)
		assert.Equal(t, asm.MnemonicEXX, violation.Instruction.Mnemonic)
		assert.Equal(t, target.Intel8080, violation.Target)
		assert.Equal(t, 1, violation.Line)
		assert.True(t, errors.IsInternalError(err))
	})

	t.Run("legal on Z80", func(t *testing.T) {
		t.Parallel()

		optimized, _, err := optimizeWith(t,
			target.Z80,
			NewConfig().WithStrict(),
			[]*Pattern{newPattern()},
			"\tNOP",
		)
		require.NoError(t, err)
		assert.Equal(t, Lines("\tEXX"), asm.Render(optimized))
	})
}

func TestOptimizeCostIncrease(t *testing.T) {

	t.Parallel()

	pattern := nopPattern("nop-to-call", func(Binding) []asm.Instruction {
		return []asm.Instruction{
			asm.NewInstruction(asm.MnemonicCALL, asm.Imm("WORK")),
		}
	})

	optimized, report, err := optimizeWith(t,
		target.Z80,
		nil,
		[]*Pattern{pattern},
		"\tNOP",
	)
	require.NoError(t, err)

	assert.Equal(t, Lines("\tNOP"), asm.Render(optimized))
	assert.Empty(t, report.Applied)
}

func TestOptimizePanic(t *testing.T) {

	t.Parallel()

	pattern := nopPattern("panics", removeAll)
	pattern.Match = func(*Context, []asm.Instruction) (Binding, bool) {
		panic("boom")
	}

	_, _, err := optimizeWith(t,
		target.Z80,
		nil,
		[]*Pattern{pattern},
		"\tNOP",
	)
	require.Error(t, err)

	var externalError errors.ExternalError
	require.ErrorAs(t, err, &externalError)
	assert.Equal(t, "boom", externalError.Recovered)
}

func TestOptimizeNonConvergence(t *testing.T) {

	t.Parallel()

	pattern := nopPattern("nop-forever", func(Binding) []asm.Instruction {
		return []asm.Instruction{
			asm.NewInstruction(asm.MnemonicNOP),
		}
	})

	optimized, report, err := optimizeWith(t,
		target.Z80,
		NewConfig().WithMaxIterations(5),
		[]*Pattern{pattern},
		"\tNOP",
	)
	require.NoError(t, err)

	assert.Equal(t, Lines("\tNOP"), asm.Render(optimized))
	assert.False(t, report.Converged)
	assert.Equal(t, 5, report.Iterations)
	assert.Len(t, report.Applied, 5)
}

func TestOptimizeTrace(t *testing.T) {

	t.Parallel()

	var mutex sync.Mutex
	var operations []string

	config := NewConfig()
	config.OnRecordTrace = func(operationName string, _ time.Duration, attrs []attribute.KeyValue) {
		mutex.Lock()
		defer mutex.Unlock()
		operations = append(operations, operationName)
		assert.NotEmpty(t, attrs)
	}

	library := MustBuild(target.Z80)

	_, _, err := NewOptimizer(library, config).Optimize(parseUnit(t, "LD A,0", "LD A,0"))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{tracingPass, tracingPass, tracingOptimize},
		operations,
	)
}

func TestOptimizeLogging(t *testing.T) {

	t.Parallel()

	var buffer bytes.Buffer
	config := NewConfig().WithLogger(zerolog.New(&buffer).Level(zerolog.DebugLevel))

	_, _, err := NewOptimizer(MustBuild(target.Z80), config).
		Optimize(parseUnit(t, "LD A,0", "LD A,0"))
	require.NoError(t, err)

	output := buffer.String()
	assert.Contains(t, output, `"pattern":"redundant-load-elimination"`)
	assert.Contains(t, output, `"message":"applied rewrite"`)
}

func TestConfig(t *testing.T) {

	t.Parallel()

	config := &Config{}
	assert.Equal(t, DefaultMaxIterations, config.maxIterations())
	assert.Same(t, target.DefaultCostModel(), config.costs())

	config.MaxIterations = -1
	assert.Equal(t, DefaultMaxIterations, config.maxIterations())

	config = NewConfig().WithMaxIterations(3)
	assert.Equal(t, 3, config.maxIterations())
}
