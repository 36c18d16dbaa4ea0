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

package common

import (
	"sort"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// ClosestName searches the candidates for the name with the smallest edit distance
// from the given name. In cases of typos, this should provide a helpful hint.
//
// It returns the empty string if no candidate is close enough.
func ClosestName(name string, candidates []string) (closest string) {
	nameRunes := []rune(name)

	closestDistance := len(name)

	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)

	for _, candidate := range sorted {
		distance := levenshtein.DistanceForStrings(
			nameRunes,
			[]rune(candidate),
			levenshtein.DefaultOptions,
		)

		// Don't update the closest name if the distance is greater than one already found,
		// or if the edits required would involve a complete replacement of the candidate
		if distance < closestDistance && distance < len(candidate) {
			closest = candidate
			closestDistance = distance
		}
	}

	return
}
