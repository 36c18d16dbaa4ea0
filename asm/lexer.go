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
	"strings"
	"unicode/utf8"
)

const eof rune = -1

type field struct {
	text   string
	column int
}

// lineFields are the fields of a single assembly line.
type lineFields struct {
	label    field
	mnemonic field
	operands []field
	comment  string
}

// stateFn scans a part of the line.
//
// It either returns nil when reaching the end of the line,
// or returns another stateFn for more scanning work.
type stateFn func(*lexer) stateFn

type lexer struct {
	// input is the line, without the line terminator
	input string
	// line is the 1-based line number
	line int
	// startOffset is the start offset of the current word
	startOffset int
	// endOffset is the end offset of the current word
	endOffset int
	// prevEndOffset is the previous end offset, used for stepping back
	prevEndOffset int
	// canBackup indicates whether stepping back is allowed
	canBackup bool
	fields    lineFields
}

func lexLine(input string, line int) (fields lineFields, err error) {
	l := &lexer{
		input: input,
		line:  line,
	}

	defer func() {
		if r := recover(); r != nil {
			parseErr, ok := r.(*ParseError)
			if !ok {
				panic(r)
			}
			err = parseErr
		}
	}()

	l.run(rootState)

	return l.fields, nil
}

// run executes the stateFn, which will scan the runes in the line.
// Errors are reported by panicking with a *ParseError.
func (l *lexer) run(state stateFn) {
	for state != nil {
		state = state(l)
	}
}

// next decodes the next rune from the input.
//
// It returns eof if it reaches the end of the line,
// otherwise returns the scanned rune.
func (l *lexer) next() rune {
	l.canBackup = true
	l.prevEndOffset = l.endOffset

	if l.endOffset >= len(l.input) {
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.endOffset:])
	l.endOffset += w
	return r
}

// backupOne steps back one rune.
// Can be called only once per call of next.
func (l *lexer) backupOne() {
	if !l.canBackup {
		panic("second backup")
	}
	l.canBackup = false
	l.endOffset = l.prevEndOffset
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backupOne()
	return r
}

func (l *lexer) word() string {
	return l.input[l.startOffset:l.endOffset]
}

func (l *lexer) ignore() {
	l.startOffset = l.endOffset
}

// column returns the 1-based column of the given byte offset, in runes.
func (l *lexer) column(offset int) int {
	return utf8.RuneCountInString(l.input[:offset]) + 1
}

func (l *lexer) skipSpace() {
	for {
		r := l.next()
		if r != ' ' && r != '\t' {
			if r != eof {
				l.backupOne()
			}
			break
		}
	}
	l.ignore()
}

func (l *lexer) fail(offset int, format string, args ...any) {
	panic(&ParseError{
		Line:   l.line,
		Column: l.column(offset),
		Reason: fmt.Sprintf(format, args...),
	})
}

func isSymbolStartRune(r rune) bool {
	return r < utf8.RuneSelf && isSymbolStart(byte(r))
}

func isSymbolPartRune(r rune) bool {
	return r < utf8.RuneSelf && isSymbolPart(byte(r))
}

// rootState scans an optional label, followed by an optional mnemonic.
func rootState(l *lexer) stateFn {
	l.skipSpace()

	r := l.next()
	switch {
	case r == eof:
		return nil
	case r == ';':
		return commentState
	case isSymbolStartRune(r):
		return identifierState(true)
	default:
		l.fail(l.startOffset, "unexpected character %q at start of statement", r)
		return nil
	}
}

// identifierState scans a label or a mnemonic, depending on the following colon.
func identifierState(labelAllowed bool) stateFn {
	return func(l *lexer) stateFn {
		for isSymbolPartRune(l.peek()) {
			l.next()
		}

		start := l.startOffset
		name := l.word()

		if l.peek() == ':' {
			if !labelAllowed {
				l.fail(start, "unexpected second label %q", name)
			}
			l.next()
			// public labels, e.g. START::
			if l.peek() == ':' {
				l.next()
			}
			l.fields.label = field{
				text:   name,
				column: l.column(start),
			}
			l.ignore()
			return afterLabelState
		}

		l.fields.mnemonic = field{
			text:   name,
			column: l.column(start),
		}

		// Operand text directly following the mnemonic, e.g. LD(HL),A, is accepted
		r := l.peek()
		if r >= utf8.RuneSelf || r == '"' || r == '\'' {
			l.fail(start, "cannot tokenize mnemonic %q", name+string(r))
		}

		l.ignore()
		return operandsState
	}
}

func afterLabelState(l *lexer) stateFn {
	l.skipSpace()

	r := l.next()
	switch {
	case r == eof:
		return nil
	case r == ';':
		return commentState
	case isSymbolStartRune(r):
		return identifierState(false)
	default:
		l.fail(l.startOffset, "cannot tokenize mnemonic starting with %q", r)
		return nil
	}
}

// operandsState scans the comma-separated operands.
// Commas inside of parentheses and quotes do not separate operands.
func operandsState(l *lexer) stateFn {
	l.skipSpace()

	switch l.peek() {
	case eof:
		return nil
	case ';':
		l.next()
		return commentState
	}

	depth := 0
	var quote rune
	quoteStart := 0
	var prev rune

	emit := func(end int) {
		text := strings.TrimSpace(l.input[l.startOffset:end])
		if text == "" {
			l.fail(l.startOffset, "missing operand")
		}
		leading := len(l.input[l.startOffset:end]) - len(strings.TrimLeft(l.input[l.startOffset:end], " \t"))
		l.fields.operands = append(
			l.fields.operands,
			field{
				text:   text,
				column: l.column(l.startOffset + leading),
			},
		)
	}

	for {
		offset := l.endOffset
		r := l.next()

		if quote != 0 {
			switch r {
			case eof:
				if quote == '"' {
					l.fail(quoteStart, "unterminated string literal")
				}
				l.fail(quoteStart, "unterminated character literal")
			case quote:
				// a doubled quote is an escaped quote
				if l.peek() == quote {
					l.next()
				} else {
					quote = 0
				}
			}
			prev = r
			continue
		}

		switch r {
		case eof:
			emit(offset)
			return nil

		case ';':
			emit(offset)
			return commentState

		case ',':
			if depth == 0 {
				emit(offset)
				l.startOffset = l.endOffset
				prev = r
				continue
			}

		case '(':
			depth++

		case ')':
			if depth > 0 {
				depth--
			}

		case '"':
			quote = r
			quoteStart = offset

		case '\'':
			// the apostrophe of AF' is part of the register name
			if !isSymbolPartRune(prev) {
				quote = r
				quoteStart = offset
			}
		}

		prev = r
	}
}

func commentState(l *lexer) stateFn {
	l.fields.comment = strings.TrimSpace(l.input[l.endOffset:])
	l.endOffset = len(l.input)
	l.ignore()
	return nil
}
