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
	"github.com/upeep80/upeep80/target"
)

// Application records one applied rewrite.
type Application struct {
	PatternID string
	// FirstLine and LastLine are the source lines of the rewritten window
	FirstLine int
	LastLine  int
	Bytes     int
	Cycles    int
	Iteration int
	// Estimated is true if the savings are the pattern's estimate,
	// because the static cost of the window and its replacement does not
	// reflect the savings, or is not known
	Estimated bool
}

// Report describes the result of optimizing a unit.
type Report struct {
	Target      target.Target
	Applied     []Application
	BytesSaved  int
	CyclesSaved int
	Iterations  int
	Converged   bool
	// Skipped is the reason the unit was left unchanged, if any
	Skipped string
	// Before and After are the static costs of the unit.
	// They are only meaningful if CostComplete is true
	Before       target.Cost
	After        target.Cost
	CostComplete bool
}

func (r *Report) record(application Application) {
	r.Applied = append(r.Applied, application)
	r.BytesSaved += application.Bytes
	r.CyclesSaved += application.Cycles
}

// Counts returns the number of applications per pattern.
func (r *Report) Counts() map[string]int {
	counts := map[string]int{}
	for _, application := range r.Applied {
		counts[application.PatternID]++
	}
	return counts
}

// Changed returns true if any rewrite was applied.
func (r *Report) Changed() bool {
	return len(r.Applied) > 0
}
