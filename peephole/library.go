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
	"sort"

	"github.com/upeep80/upeep80/common"
	"github.com/upeep80/upeep80/target"
)

// Library is an ordered, immutable set of patterns for one target.
//
// Patterns are ordered by estimated cycle savings, then byte savings,
// both descending, then by ID. A library may be shared between optimizers.
type Library struct {
	target   target.Target
	patterns []*Pattern
	byID     map[string]*Pattern
	// bySize groups the patterns by window size, in library order
	bySize      map[int][]*Pattern
	windowSizes []int
}

// Build returns the library of built-in patterns which apply to the target.
func Build(t target.Target) (*Library, error) {
	patterns := make([]*Pattern, 0, len(builtinPatterns))
	for _, pattern := range builtinPatterns {
		if pattern.AppliesTo(t) {
			patterns = append(patterns, pattern)
		}
	}
	return NewLibrary(t, patterns)
}

// MustBuild is like Build, but panics if the built-in patterns are invalid.
func MustBuild(t target.Target) *Library {
	library, err := Build(t)
	if err != nil {
		panic(err)
	}
	return library
}

// NewLibrary returns a library of the given patterns.
// Patterns which do not apply to the target are not included.
func NewLibrary(t target.Target, patterns []*Pattern) (*Library, error) {
	library := &Library{
		target: t,
		bySize: map[int][]*Pattern{},
	}

	seen := make(map[string]struct{}, len(patterns))

	for _, pattern := range patterns {
		if pattern == nil {
			return nil, &InvalidPatternError{
				Reason: "nil pattern",
			}
		}

		err := pattern.validate()
		if err != nil {
			return nil, err
		}

		if _, ok := seen[pattern.ID]; ok {
			return nil, &InvalidPatternError{
				PatternID: pattern.ID,
				Reason:    "duplicate ID",
			}
		}
		seen[pattern.ID] = struct{}{}

		if !pattern.AppliesTo(t) {
			continue
		}
		library.patterns = append(library.patterns, pattern)
	}

	sort.SliceStable(library.patterns, func(i, j int) bool {
		a, b := library.patterns[i], library.patterns[j]
		if a.Savings.Cycles != b.Savings.Cycles {
			return a.Savings.Cycles > b.Savings.Cycles
		}
		if a.Savings.Bytes != b.Savings.Bytes {
			return a.Savings.Bytes > b.Savings.Bytes
		}
		return a.ID < b.ID
	})

	library.byID = make(map[string]*Pattern, len(library.patterns))

	for _, pattern := range library.patterns {
		library.byID[pattern.ID] = pattern

		size := pattern.WindowSize
		if _, ok := library.bySize[size]; !ok {
			library.windowSizes = append(library.windowSizes, size)
		}
		library.bySize[size] = append(library.bySize[size], pattern)
	}

	sort.Ints(library.windowSizes)

	return library, nil
}

// Target returns the target the library's patterns apply to.
func (l *Library) Target() target.Target {
	return l.target
}

// Patterns returns the patterns in library order.
func (l *Library) Patterns() []*Pattern {
	result := make([]*Pattern, len(l.patterns))
	copy(result, l.patterns)
	return result
}

// Len returns the number of patterns in the library.
func (l *Library) Len() int {
	return len(l.patterns)
}

// Lookup returns the pattern with the given ID.
func (l *Library) Lookup(id string) (*Pattern, bool) {
	pattern, ok := l.byID[id]
	return pattern, ok
}

// WindowSizes returns the distinct window sizes of the patterns, ascending.
func (l *Library) WindowSizes() []int {
	result := make([]int, len(l.windowSizes))
	copy(result, l.windowSizes)
	return result
}

func (l *Library) patternsOfSize(size int) []*Pattern {
	return l.bySize[size]
}

// Without returns a new library without the patterns with the given IDs.
func (l *Library) Without(ids ...string) (*Library, error) {
	if len(ids) == 0 {
		return l, nil
	}

	excluded := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := l.byID[id]; !ok {
			return nil, &UnknownPatternError{
				PatternID:  id,
				Suggestion: common.ClosestName(id, l.IDs()),
			}
		}
		excluded[id] = struct{}{}
	}

	patterns := make([]*Pattern, 0, len(l.patterns))
	for _, pattern := range l.patterns {
		if _, ok := excluded[pattern.ID]; ok {
			continue
		}
		patterns = append(patterns, pattern)
	}

	return NewLibrary(l.target, patterns)
}

// IDs returns the IDs of the patterns in library order.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.patterns))
	for _, pattern := range l.patterns {
		ids = append(ids, pattern.ID)
	}
	return ids
}
