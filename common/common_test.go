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
	"testing"

	"github.com/stretchr/testify/assert"
)

type caseInsensitive string

func (c caseInsensitive) Equal(other caseInsensitive) bool {
	return toLower(string(c)) == toLower(string(other))
}

func toLower(s string) string {
	result := []byte(s)
	for i, c := range result {
		if c >= 'A' && c <= 'Z' {
			result[i] = c + ('a' - 'A')
		}
	}
	return string(result)
}

func TestEqualSlices(t *testing.T) {

	t.Parallel()

	assert.True(t, EqualSlices[caseInsensitive](nil, nil))
	assert.True(t, EqualSlices(
		[]caseInsensitive{"HL", "de"},
		[]caseInsensitive{"hl", "DE"},
	))
	assert.False(t, EqualSlices(
		[]caseInsensitive{"HL"},
		[]caseInsensitive{"HL", "DE"},
	))
	assert.False(t, EqualSlices(
		[]caseInsensitive{"HL"},
		[]caseInsensitive{"BC"},
	))
}

func TestClosestName(t *testing.T) {

	t.Parallel()

	candidates := []string{"z80", "8080", "i8080"}

	assert.Equal(t, "z80", ClosestName("z08", candidates))
	assert.Equal(t, "8080", ClosestName("8008", candidates))
	assert.Equal(t, "", ClosestName("6502", candidates))
	assert.Equal(t, "", ClosestName("", candidates))
}
