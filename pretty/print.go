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

package pretty

import (
	goerrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/logrusorgru/aurora/v4"

	"github.com/upeep80/upeep80/errors"
)

func colorizeError(message string) string {
	return aurora.Colorize(message, aurora.RedFg|aurora.BrightFg|aurora.BoldFm).String()
}

func colorizeNote(message string) string {
	return aurora.Colorize(message, aurora.CyanFg|aurora.BoldFm).String()
}

func colorizeMeta(meta string) string {
	return aurora.Colorize(meta, aurora.BlueFg|aurora.BrightFg|aurora.BoldFm).String()
}

func colorizeMessage(message string) string {
	return aurora.Colorize(message, aurora.BoldFm).String()
}

// ErrorPrettyPrinter prints errors with the source line they refer to.
type ErrorPrettyPrinter struct {
	writer   io.Writer
	useColor bool
}

func NewErrorPrettyPrinter(writer io.Writer, useColor bool) ErrorPrettyPrinter {
	return ErrorPrettyPrinter{
		writer:   writer,
		useColor: useColor,
	}
}

func (p ErrorPrettyPrinter) writeString(str string) {
	_, err := p.writer.Write([]byte(str))
	if err != nil {
		panic(err)
	}
}

// PrettyPrintError prints the error, and its child errors if any.
// name is the name of the source, e.g. the file name.
func (p ErrorPrettyPrinter) PrettyPrintError(err error, name string, code string) (printErr error) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				printErr = err
				return
			}
			panic(r)
		}
	}()

	lines := strings.Split(code, "\n")

	var parentErr errors.ParentError
	if goerrors.As(err, &parentErr) {
		for i, childErr := range parentErr.ChildErrors() {
			if i > 0 {
				p.writeString("\n")
			}
			p.prettyPrintError(childErr, name, lines)
		}
		return nil
	}

	p.prettyPrintError(err, name, lines)
	return nil
}

func (p ErrorPrettyPrinter) prettyPrintError(err error, name string, lines []string) {

	prefix := "error"
	if errors.IsInternalError(err) {
		prefix = "internal error"
	}

	message := err.Error()
	if p.useColor {
		p.writeString(colorizeError(prefix + ": "))
		p.writeString(colorizeMessage(message))
	} else {
		p.writeString(prefix + ": ")
		p.writeString(message)
	}
	p.writeString("\n")

	var positioned errors.HasPosition
	if goerrors.As(err, &positioned) {
		line, column := positioned.ErrorPosition()
		p.writeCodeExcerpt(err, name, lines, line, column)
	}

	var hasNotes errors.ErrorNotes
	if goerrors.As(err, &hasNotes) {
		for _, note := range hasNotes.ErrorNotes() {
			p.writeNote(note.Message())
		}
	}
}

func (p ErrorPrettyPrinter) writeCodeExcerpt(err error, name string, lines []string, line int, column int) {
	p.writeMeta(" --> ")
	p.writeString(fmt.Sprintf("%s:%d:%d\n", name, line, column))

	if line < 1 || line > len(lines) {
		return
	}

	text := strings.TrimRight(lines[line-1], "\r")

	lineNumber := strconv.Itoa(line)
	gutter := strings.Repeat(" ", len(lineNumber))

	p.writeMeta(gutter + " |\n")
	p.writeMeta(lineNumber + " | ")
	p.writeString(text)
	p.writeString("\n")

	start, end := highlightRange(text, column)

	// keep tabs, so the indicator lines up with the excerpt
	var indent strings.Builder
	for _, r := range text[:start] {
		if r == '\t' {
			indent.WriteRune('\t')
		} else {
			indent.WriteRune(' ')
		}
	}

	p.writeMeta(gutter + " | ")
	indicator := strings.Repeat("^", max(1, end-start))

	var secondaryErr errors.SecondaryError
	if goerrors.As(err, &secondaryErr) {
		indicator += " " + secondaryErr.SecondaryError()
	}

	p.writeString(indent.String())
	if p.useColor {
		p.writeString(colorizeError(indicator))
	} else {
		p.writeString(indicator)
	}
	p.writeString("\n")
}

// highlightRange returns the byte range of the text which is highlighted:
// the token starting at the 1-based column,
// or the line without its indentation and comment if the column is 0.
func highlightRange(text string, column int) (start, end int) {
	if column > 0 {
		start = min(column-1, len(text))
		end = start
		for end < len(text) && !unicode.IsSpace(rune(text[end])) && text[end] != ',' && text[end] != ';' {
			end++
		}
		return start, end
	}

	content := text
	if index := strings.IndexByte(content, ';'); index >= 0 {
		content = content[:index]
	}
	trimmed := strings.TrimRightFunc(content, unicode.IsSpace)
	start = len(trimmed) - len(strings.TrimLeftFunc(trimmed, unicode.IsSpace))
	return start, len(trimmed)
}

func (p ErrorPrettyPrinter) writeNote(note string) {
	p.writeMeta("  = ")
	if p.useColor {
		p.writeString(colorizeNote("note: "))
	} else {
		p.writeString("note: ")
	}
	p.writeString(note)
	p.writeString("\n")
}

func (p ErrorPrettyPrinter) writeMeta(meta string) {
	if p.useColor {
		p.writeString(colorizeMeta(meta))
	} else {
		p.writeString(meta)
	}
}
