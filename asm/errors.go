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

package asm

import (
	"fmt"

	"github.com/upeep80/upeep80/errors"
)

// ParseError is reported for assembly text which cannot be tokenized,
// and for labels which are defined more than once.
type ParseError struct {
	Line   int
	Column int
	Reason string
	// PreviousLine is the line of the earlier definition of a redefined label
	PreviousLine int
}

var _ errors.UserError = &ParseError{}
var _ errors.ErrorNotes = &ParseError{}
var _ errors.HasPosition = &ParseError{}

func (*ParseError) IsUserError() {}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Reason)
}

func (e *ParseError) ErrorPosition() (line int, column int) {
	return e.Line, e.Column
}

func (e *ParseError) ErrorNotes() []errors.ErrorNote {
	if e.PreviousLine == 0 {
		return nil
	}
	return []errors.ErrorNote{
		errors.SimpleErrorNote{
			Note: fmt.Sprintf("previously defined on line %d", e.PreviousLine),
		},
	}
}
