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

package upeep80

import (
	"encoding/hex"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/sha3"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/peephole"
	"github.com/upeep80/upeep80/target"
)

// Options configures Optimize.
type Options struct {
	Target target.Target
	// MaxIterations limits the number of passes.
	// Zero or less means peephole.DefaultMaxIterations
	MaxIterations int
	// Strict reports rewrites which would emit an instruction the target cannot encode,
	// instead of skipping them
	Strict bool
	// Disabled lists the IDs of built-in patterns which must not be applied
	Disabled []string
	// Canonical renders every line canonically, instead of only the rewritten ones
	Canonical     bool
	Logger        *zerolog.Logger
	OnRecordTrace peephole.OnRecordTraceFunc
}

// Result is the outcome of Optimize.
type Result struct {
	Text   string
	Unit   *asm.Unit
	Report *peephole.Report
	// SourceDigest and OutputDigest are the hex-encoded SHA3-256 digests
	// of the input and the output text
	SourceDigest string
	OutputDigest string
}

var builtinLibraries = map[target.Target]func() (*peephole.Library, error){}

func init() {
	for _, t := range target.All {
		builtinLibraries[t] = sync.OnceValues(func() (*peephole.Library, error) {
			return peephole.Build(t)
		})
	}
}

// BuiltinLibrary returns the library of built-in patterns for the target.
// Libraries are built once, and are shared.
func BuiltinLibrary(t target.Target) (*peephole.Library, error) {
	build, ok := builtinLibraries[t]
	if !ok {
		return nil, &target.UnknownTargetError{
			Name: t.String(),
		}
	}
	return build()
}

// OptimizeASM optimizes assembly text for the named target,
// using all built-in patterns.
func OptimizeASM(text string, targetName string) (string, error) {
	t, err := target.Parse(targetName)
	if err != nil {
		return "", err
	}

	result, err := Optimize(text, Options{Target: t})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// OptimizePeephole optimizes a parsed unit for the target,
// using all built-in patterns. The given unit is not modified.
func OptimizePeephole(unit *asm.Unit, t target.Target) (*asm.Unit, *peephole.Report, error) {
	return optimizeUnit(unit, Options{Target: t})
}

// Optimize parses, optimizes and renders assembly text.
func Optimize(text string, options Options) (*Result, error) {
	unit, err := asm.Parse(text)
	if err != nil {
		return nil, err
	}

	optimized, report, err := optimizeUnit(unit, options)
	if err != nil {
		return nil, err
	}

	renderer := asm.Renderer{
		Canonical:     options.Canonical,
		CommentColumn: asm.DefaultCommentColumn,
	}
	output := renderer.Render(optimized)

	return &Result{
		Text:         output,
		Unit:         optimized,
		Report:       report,
		SourceDigest: Digest(text),
		OutputDigest: Digest(output),
	}, nil
}

func optimizeUnit(unit *asm.Unit, options Options) (*asm.Unit, *peephole.Report, error) {
	library, err := BuiltinLibrary(options.Target)
	if err != nil {
		return nil, nil, err
	}

	if len(options.Disabled) > 0 {
		library, err = library.Without(options.Disabled...)
		if err != nil {
			return nil, nil, err
		}
	}

	config := peephole.NewConfig().
		WithMaxIterations(options.MaxIterations)
	if options.Strict {
		config = config.WithStrict()
	}
	if options.Logger != nil {
		config = config.WithLogger(*options.Logger)
	}
	config.OnRecordTrace = options.OnRecordTrace

	return peephole.NewOptimizer(library, config).Optimize(unit)
}

// Digest returns the hex-encoded SHA3-256 digest of the text.
func Digest(text string) string {
	sum := sha3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
