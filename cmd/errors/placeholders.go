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

package main

import (
	"fmt"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/errors"
	"github.com/upeep80/upeep80/peephole"
	"github.com/upeep80/upeep80/report"
	"github.com/upeep80/upeep80/target"
)

const placeholderLine = 2

const placeholderColumn = 3

const placeholderPatternID = "placeholder-pattern"

var placeholderInstruction = asm.NewInstruction(
	asm.MnemonicDJNZ,
	asm.Addr("PLACEHOLDER"),
).WithLine(placeholderLine)

var placeholderError = fmt.Errorf("placeholder error")

// placeholderErrors contains an instance of every error type reported to users.
var placeholderErrors = []error{
	&asm.ParseError{
		Line:         placeholderLine,
		Column:       placeholderColumn,
		Reason:       "label `PLACEHOLDER` is already defined",
		PreviousLine: 1,
	},
	&target.UnknownTargetError{
		Name:       "z81",
		Suggestion: "z80",
	},
	&target.IllegalInstructionError{
		Instruction: placeholderInstruction,
		Target:      target.Intel8080,
	},
	&target.CheckError{
		Errors: []error{
			&target.IllegalInstructionError{
				Instruction: placeholderInstruction,
				Target:      target.Intel8080,
			},
		},
	},
	&peephole.TargetLegalityViolation{
		PatternID:   placeholderPatternID,
		Instruction: placeholderInstruction,
		Target:      target.Intel8080,
		Line:        placeholderLine,
	},
	&peephole.InvalidPatternError{
		PatternID: placeholderPatternID,
		Reason:    "missing match function",
	},
	&peephole.UnknownPatternError{
		PatternID:  "tail-cal",
		Suggestion: "tail-call",
	},
	&report.UnknownFormatError{
		Name:       "yml",
		Suggestion: "yaml",
	},
	&report.InvalidQueryError{
		Query: ".files[",
		Err:   placeholderError,
	},
	errors.NewExternalError(placeholderError),
	errors.NewUnexpectedError("placeholder: %w", placeholderError),
	errors.NewDefaultUserError("placeholder: %w", placeholderError),
}
