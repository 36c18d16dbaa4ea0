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
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/errors"
	"github.com/upeep80/upeep80/target"
)

// DefaultMaxIterations is the pass limit used when none is configured.
const DefaultMaxIterations = 64

const (
	tracingOptimize = "optimize"
	tracingPass     = "pass"
)

// OnRecordTraceFunc is called with the duration of an operation of the optimizer.
type OnRecordTraceFunc func(
	operationName string,
	duration time.Duration,
	attrs []attribute.KeyValue,
)

// Config contains the optimizer configuration.
// It holds no state of an optimization, and may be shared.
type Config struct {
	// MaxIterations is the maximum number of passes.
	// Zero or less means DefaultMaxIterations
	MaxIterations int
	// Strict makes a pattern emitting an instruction the target cannot encode
	// an error, instead of skipping the rewrite
	Strict bool
	Logger zerolog.Logger
	// Costs is the cost model used to measure rewrites.
	// Nil means the default cost model
	Costs         *target.CostModel
	OnRecordTrace OnRecordTraceFunc
}

func NewConfig() *Config {
	return &Config{
		MaxIterations: DefaultMaxIterations,
		Logger:        zerolog.Nop(),
	}
}

func (c *Config) WithMaxIterations(maxIterations int) *Config {
	c.MaxIterations = maxIterations
	return c
}

func (c *Config) WithStrict() *Config {
	c.Strict = true
	return c
}

func (c *Config) WithLogger(logger zerolog.Logger) *Config {
	c.Logger = logger
	return c
}

func (c *Config) maxIterations() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}

func (c *Config) costs() *target.CostModel {
	if c.Costs == nil {
		return target.DefaultCostModel()
	}
	return c.Costs
}

func (c *Config) reportTrace(operationName string, duration time.Duration, attrs ...attribute.KeyValue) {
	if c.OnRecordTrace == nil {
		return
	}
	c.OnRecordTrace(operationName, duration, attrs)
}

// Optimizer rewrites units with the patterns of a library until no pattern applies.
type Optimizer struct {
	library *Library
	config  *Config
}

// NewOptimizer returns an optimizer for the library.
// A nil config means the default configuration.
func NewOptimizer(library *Library, config *Config) *Optimizer {
	if config == nil {
		config = NewConfig()
	}
	return &Optimizer{
		library: library,
		config:  config,
	}
}

// Optimize optimizes the unit with the built-in patterns for the target.
func Optimize(unit *asm.Unit, t target.Target, maxIterations int) (*asm.Unit, *Report, error) {
	library, err := Build(t)
	if err != nil {
		return nil, nil, err
	}

	config := NewConfig().WithMaxIterations(maxIterations)
	return NewOptimizer(library, config).Optimize(unit)
}

// Optimize returns the optimized unit, and a report of the applied rewrites.
//
// The given unit is not modified.
// If the passes do not converge within the iteration limit,
// the unit reached so far is returned, and the report is not converged.
func (o *Optimizer) Optimize(unit *asm.Unit) (*asm.Unit, *Report, error) {
	t := o.library.Target()
	costs := o.config.costs()
	logger := o.config.Logger

	report := &Report{
		Target: t,
	}

	instructions := slices.Clone(unit.Instructions)
	report.Before, report.CostComplete = costs.Total(instructions, t)

	if o.config.OnRecordTrace != nil {
		start := time.Now()
		defer func() {
			o.config.reportTrace(
				tracingOptimize,
				time.Since(start),
				attribute.String("Target", t.String()),
				attribute.Int("Iterations", report.Iterations),
				attribute.Int("Rewrites", len(report.Applied)),
			)
		}()
	}

	// Rewrites change the size of the code, which changes the value of the location counter
	if unit.ReferencesLocation() {
		report.Skipped = "the code refers to the location counter"
		report.Converged = true
		report.After = report.Before

		logger.Warn().Msg("not optimizing code which refers to the location counter")

		return unit.Clone(), report, nil
	}

	maxIterations := o.config.maxIterations()

	for iteration := 1; iteration <= maxIterations; iteration++ {
		rewritten, applied, err := o.pass(instructions, iteration, report)
		if err != nil {
			return nil, nil, err
		}

		report.Iterations = iteration

		logger.Debug().
			Int("iteration", iteration).
			Int("rewrites", applied).
			Msg("pass")

		if applied == 0 {
			report.Converged = true
			break
		}

		instructions = rewritten
	}

	if !report.Converged {
		logger.Warn().
			Int("iterations", report.Iterations).
			Msg("optimization did not converge")
	}

	after, complete := costs.Total(instructions, t)
	report.After = after
	report.CostComplete = report.CostComplete && complete

	return unit.WithInstructions(instructions), report, nil
}

// rewrite is an accepted application of a pattern at a position.
type rewrite struct {
	pattern     *Pattern
	window      []asm.Instruction
	replacement []asm.Instruction
	// consumed is the number of input lines the replacement stands for.
	// It exceeds the window size if the label was carried over to the following instruction
	consumed  int
	savings   Savings
	estimated bool
}

func (r rewrite) application(iteration int) Application {
	return Application{
		PatternID: r.pattern.ID,
		FirstLine: r.window[0].Line,
		LastLine:  r.window[len(r.window)-1].Line,
		Bytes:     r.savings.Bytes,
		Cycles:    r.savings.Cycles,
		Iteration: iteration,
		Estimated: r.estimated,
	}
}

// pass scans the instructions once, left to right.
// Rewrites do not overlap: scanning resumes after a replacement.
func (o *Optimizer) pass(
	instructions []asm.Instruction,
	iteration int,
	report *Report,
) (
	output []asm.Instruction,
	applied int,
	err error,
) {
	if o.config.OnRecordTrace != nil {
		start := time.Now()
		defer func() {
			o.config.reportTrace(
				tracingPass,
				time.Since(start),
				attribute.Int("Iteration", iteration),
				attribute.Int("Instructions", len(instructions)),
				attribute.Int("Rewrites", applied),
			)
		}()
	}

	ctx := newContext(instructions, o.library.Target(), o.config.costs())

	output = make([]asm.Instruction, 0, len(instructions))

	for index := 0; index < len(instructions); {
		instruction := instructions[index]

		if instruction.IsOperation() && !instruction.IsOpaque() {
			ctx.Index = index

			var result rewrite
			var ok bool
			result, ok, err = o.rewriteAt(ctx)
			if err != nil {
				return nil, 0, err
			}

			if ok {
				application := result.application(iteration)
				report.record(application)

				o.config.Logger.Debug().
					Str("pattern", application.PatternID).
					Int("first_line", application.FirstLine).
					Int("last_line", application.LastLine).
					Int("bytes", application.Bytes).
					Int("cycles", application.Cycles).
					Msg("applied rewrite")

				output = append(output, result.replacement...)
				index += result.consumed
				applied++
				continue
			}
		}

		output = append(output, instruction)
		index++
	}

	return output, applied, nil
}

// rewriteAt tries the window sizes in ascending order,
// and for each size the patterns in library order.
// The first match whose rewrite is accepted wins.
func (o *Optimizer) rewriteAt(ctx *Context) (rewrite, bool, error) {
	remaining := len(ctx.Instructions) - ctx.Index

	for _, size := range o.library.windowSizes {
		if size > remaining {
			break
		}

		end := ctx.Index + size
		window := ctx.Instructions[ctx.Index:end:end]

		for _, pattern := range o.library.patternsOfSize(size) {
			replacement, ok, err := o.apply(ctx, pattern, window)
			if err != nil {
				return rewrite{}, false, err
			}
			if !ok {
				continue
			}

			result, ok, err := o.accept(ctx, pattern, window, replacement)
			if err != nil {
				return rewrite{}, false, err
			}
			if ok {
				return result, true, nil
			}
		}
	}

	return rewrite{}, false, nil
}

// apply matches the pattern against the window, and produces the replacement.
// Patterns may be supplied by the caller: a panic is returned as an external error.
func (o *Optimizer) apply(
	ctx *Context,
	pattern *Pattern,
	window []asm.Instruction,
) (
	replacement []asm.Instruction,
	ok bool,
	err error,
) {
	defer func() {
		if recovered := recover(); recovered != nil {
			o.config.Logger.Error().
				Str("pattern", pattern.ID).
				Int("line", window[0].Line).
				Interface("panic", recovered).
				Msg("pattern panicked")

			replacement = nil
			ok = false
			err = errors.NewExternalError(recovered)
		}
	}()

	binding, ok := pattern.Match(ctx, window)
	if !ok {
		return nil, false, nil
	}
	if binding.Window == nil {
		binding.Window = window
	}

	return slices.Clone(pattern.Rewrite(binding)), true, nil
}

// accept checks the rewrite is safe and beneficial, and completes the replacement:
// it keeps the labels of the window, and attributes new instructions to the window's line.
func (o *Optimizer) accept(
	ctx *Context,
	pattern *Pattern,
	window []asm.Instruction,
	replacement []asm.Instruction,
) (rewrite, bool, error) {

	logger := o.config.Logger
	t := ctx.Target
	line := window[0].Line

	// A live label inside the window must stay in place,
	// i.e. the replacement must end with the instructions starting at the label
	for offset := 1; offset < len(window); offset++ {
		if !ctx.hasLiveLabel(ctx.Index + offset) {
			continue
		}
		if !endsWith(replacement, window[offset:]) {
			return rewrite{}, false, nil
		}
	}

	consumed := len(window)
	carried := 0

	// A live label on the first line must survive
	label := window[0].Label
	if label != "" &&
		ctx.hasLiveLabel(ctx.Index) &&
		!definesLabel(replacement, label) {

		if !pattern.TransfersLabel {
			return rewrite{}, false, nil
		}

		switch {
		case len(replacement) > 0:
			if replacement[0].Label == "" {
				replacement[0] = replacement[0].WithLabel(label)
			} else {
				replacement = slices.Insert(replacement, 0, asm.NewLabel(label))
			}

		default:
			next := ctx.Index + len(window)
			if !hasOperation(ctx.Instructions[next:]) {
				return rewrite{}, false, nil
			}

			follower := ctx.Instructions[next]
			if follower.IsOperation() &&
				!follower.IsOpaque() &&
				follower.Label == "" {

				replacement = []asm.Instruction{follower.WithLabel(label)}
				consumed++
				carried = 1
			} else {
				replacement = []asm.Instruction{asm.NewLabel(label)}
			}
		}
	}

	emitted := replacement[:len(replacement)-carried]

	for index, instruction := range emitted {
		if instruction.Line == 0 {
			emitted[index] = instruction.WithLine(line)
		}

		if isOriginal(instruction, window) {
			continue
		}

		if !target.IsLegalInstruction(instruction, t) {
			if o.config.Strict {
				return rewrite{}, false, &TargetLegalityViolation{
					PatternID:   pattern.ID,
					Instruction: instruction,
					Target:      t,
					Line:        line,
				}
			}

			logger.Warn().
				Str("pattern", pattern.ID).
				Int("line", line).
				Str("instruction", instruction.String()).
				Msg("skipping rewrite with instruction the target cannot encode")

			return rewrite{}, false, nil
		}
	}

	savings := pattern.Savings
	estimated := true

	costs := ctx.Costs
	before, completeBefore := costs.Total(window, t)
	after, completeAfter := costs.Total(emitted, t)
	if completeBefore && completeAfter {
		delta := before.Sub(after)
		if delta.Bytes < 0 || delta.Cycles < 0 {
			logger.Warn().
				Str("pattern", pattern.ID).
				Int("line", line).
				Int("bytes", delta.Bytes).
				Int("cycles", delta.Cycles).
				Msg("skipping rewrite which increases the cost")

			return rewrite{}, false, nil
		}

		// The static cost does not capture savings on the executed path,
		// e.g. of a threaded jump
		if delta != (target.Cost{}) {
			savings = Savings{
				Bytes:  delta.Bytes,
				Cycles: delta.Cycles,
			}
			estimated = false
		}
	}

	return rewrite{
		pattern:     pattern,
		window:      window,
		replacement: replacement,
		consumed:    consumed,
		savings:     savings,
		estimated:   estimated,
	}, true, nil
}

func endsWith(instructions []asm.Instruction, suffix []asm.Instruction) bool {
	if len(instructions) < len(suffix) {
		return false
	}
	return equalInstructions(instructions[len(instructions)-len(suffix):], suffix)
}

func equalInstructions(a, b []asm.Instruction) bool {
	return slices.EqualFunc(a, b, asm.Instruction.Equal)
}

func definesLabel(instructions []asm.Instruction, label string) bool {
	for _, instruction := range instructions {
		if instruction.Label == label {
			return true
		}
	}
	return false
}

func hasOperation(instructions []asm.Instruction) bool {
	for _, instruction := range instructions {
		if instruction.IsOperation() {
			return true
		}
	}
	return false
}

// isOriginal returns true if the instruction performs the same operation
// as one of the window's instructions.
func isOriginal(instruction asm.Instruction, window []asm.Instruction) bool {
	for _, original := range window {
		if original.IsOperation() && original.SameOperation(instruction) {
			return true
		}
	}
	return !instruction.IsOperation()
}
