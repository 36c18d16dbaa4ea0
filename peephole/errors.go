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
	"fmt"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/errors"
	"github.com/upeep80/upeep80/target"
)

// TargetLegalityViolation is reported in strict mode
// when a pattern emits an instruction the target cannot encode.
type TargetLegalityViolation struct {
	PatternID   string
	Instruction asm.Instruction
	Target      target.Target
	// Line is the source line of the rewritten window
	Line int
}

var _ errors.InternalError = &TargetLegalityViolation{}
var _ errors.HasPosition = &TargetLegalityViolation{}

func (*TargetLegalityViolation) IsInternalError() {}

func (e *TargetLegalityViolation) ErrorPosition() (line int, column int) {
	return e.Line, 0
}

func (e *TargetLegalityViolation) Error() string {
	return fmt.Sprintf(
		"pattern `%s` emitted `%s` on line %d, which is not a valid %s instruction",
		e.PatternID,
		e.Instruction,
		e.Line,
		e.Target,
	)
}

// InvalidPatternError is reported when a library is built from a malformed pattern.
type InvalidPatternError struct {
	PatternID string
	Reason    string
}

var _ errors.InternalError = &InvalidPatternError{}

func (*InvalidPatternError) IsInternalError() {}

func (e *InvalidPatternError) Error() string {
	if e.PatternID == "" {
		return fmt.Sprintf("invalid pattern: %s", e.Reason)
	}
	return fmt.Sprintf("invalid pattern `%s`: %s", e.PatternID, e.Reason)
}

// UnknownPatternError is reported when a pattern to disable is not in the library.
type UnknownPatternError struct {
	PatternID  string
	Suggestion string
}

var _ errors.UserError = &UnknownPatternError{}
var _ errors.SecondaryError = &UnknownPatternError{}

func (*UnknownPatternError) IsUserError() {}

func (e *UnknownPatternError) Error() string {
	return fmt.Sprintf("unknown pattern `%s`", e.PatternID)
}

func (e *UnknownPatternError) SecondaryError() string {
	if e.Suggestion == "" {
		return "use the `patterns` command to list the available patterns"
	}
	return fmt.Sprintf("did you mean `%s`?", e.Suggestion)
}
