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
	"strings"

	"github.com/rivo/uniseg"
)

const tabWidth = 8

// DefaultCommentColumn is the 0-based display column comments of new instructions are aligned to.
const DefaultCommentColumn = 32

// Renderer converts a unit back to assembly text.
type Renderer struct {
	// Canonical renders all lines canonically, instead of reproducing unmodified lines verbatim
	Canonical bool
	// CommentColumn is the display column comments are aligned to
	CommentColumn int
}

// Render returns the text of the unit.
// Lines are terminated like the parsed text. Unmodified lines are reproduced verbatim, new and modified lines are rendered canonically.
func Render(u *Unit) string {
	return Renderer{
		CommentColumn: DefaultCommentColumn,
	}.Render(u)
}

// RenderCanonical returns the canonical text of the unit.
func RenderCanonical(u *Unit) string {
	return Renderer{
		Canonical:     true,
		CommentColumn: DefaultCommentColumn,
	}.Render(u)
}

func (r Renderer) Render(u *Unit) string {
	var b strings.Builder
	for index, instruction := range u.Instructions {
		b.WriteString(r.RenderInstruction(instruction))
		if !u.unterminated || index < len(u.Instructions)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderInstruction returns the text of a single line, without line terminator.
func (r Renderer) RenderInstruction(instruction Instruction) string {
	if !r.Canonical && instruction.source != "" {
		return instruction.source
	}

	var b strings.Builder

	if instruction.Label != "" {
		b.WriteString(instruction.Label)
		b.WriteByte(':')
	}

	if instruction.IsOperation() {
		b.WriteByte('\t')
		b.WriteString(instruction.String())
	}

	if instruction.Comment != "" {
		if b.Len() > 0 {
			width := displayWidth(b.String())
			if width < r.CommentColumn {
				for width < r.CommentColumn {
					b.WriteByte('\t')
					width = (width/tabWidth + 1) * tabWidth
				}
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString("; ")
		b.WriteString(instruction.Comment)
	}

	return b.String()
}

// displayWidth returns the number of display columns the text occupies,
// expanding tabs.
func displayWidth(text string) int {
	width := 0
	for _, segment := range strings.SplitAfter(text, "\t") {
		if strings.HasSuffix(segment, "\t") {
			width += uniseg.StringWidth(segment[:len(segment)-1])
			width = (width/tabWidth + 1) * tabWidth
		} else {
			width += uniseg.StringWidth(segment)
		}
	}
	return width
}
