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

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/turbolent/prettier"

	"github.com/upeep80/upeep80/peephole"
)

const patternsLineWidth = 80

var emitsSeparatorDoc prettier.Doc = prettier.Concat{
	prettier.Text(","),
	prettier.Line{},
}

// PatternDoc returns the document describing the pattern.
func PatternDoc(pattern *peephole.Pattern) prettier.Doc {
	details := prettier.Concat{
		prettier.HardLine{},
		prettier.Text(pattern.Description),
		prettier.HardLine{},
		prettier.Text(fmt.Sprintf(
			"window: %d, saves: %s, %s",
			pattern.WindowSize,
			plural(pattern.Savings.Bytes, "byte"),
			plural(pattern.Savings.Cycles, "cycle"),
		)),
		prettier.HardLine{},
		prettier.Text("targets: " + pattern.Targets.String()),
	}

	if len(pattern.Emits) > 0 {
		emitDocs := make([]prettier.Doc, 0, len(pattern.Emits))
		for _, form := range pattern.Emits {
			emitDocs = append(emitDocs, prettier.Text(form.String()))
		}

		details = append(
			details,
			prettier.HardLine{},
			prettier.Group{
				Doc: prettier.Concat{
					prettier.Text("emits: "),
					prettier.Indent{
						Doc: prettier.Join(emitsSeparatorDoc, emitDocs...),
					},
				},
			},
		)
	}

	return prettier.Concat{
		prettier.Text(pattern.ID),
		prettier.Indent{
			Doc: details,
		},
	}
}

// PrintPatterns prints the patterns of the library, in the order they are tried.
func PrintPatterns(w io.Writer, library *peephole.Library) error {
	patterns := library.Patterns()

	docs := make([]prettier.Doc, 0, len(patterns)*2)
	for i, pattern := range patterns {
		if i > 0 {
			docs = append(docs, prettier.HardLine{}, prettier.HardLine{})
		}
		docs = append(docs, PatternDoc(pattern))
	}
	docs = append(docs, prettier.HardLine{})

	var b strings.Builder
	prettier.Prettier(&b, prettier.Concat(docs), patternsLineWidth, "  ")

	_, err := io.WriteString(w, b.String())
	return err
}
