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
	"strings"

	"github.com/kodova/html-to-markdown/escape"
)

func markdownCell(text string) string {
	text = escape.Markdown(text)
	text = strings.ReplaceAll(text, "|", "\\|")
	text = strings.ReplaceAll(text, "\r\n", "<br>")
	return strings.ReplaceAll(text, "\n", "<br>")
}

// Markdown returns the summary as a Markdown document,
// with a table of files, and a table of rewrites per changed file.
func Markdown(summary *Summary) string {
	var b strings.Builder

	b.WriteString("## Peephole optimization results\n\n")
	b.WriteString(fmt.Sprintf(
		"%d of %d files changed, saved %s, %s.\n\n",
		summary.Changed,
		len(summary.Files),
		plural(summary.BytesSaved, "byte"),
		plural(summary.CyclesSaved, "cycle"),
	))

	b.WriteString("| File | Target | Rewrites | Bytes | Cycles | Status |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")

	for _, file := range summary.Files {
		status := "&#9989;"
		switch {
		case file.Skipped != "":
			status = "skipped: " + markdownCell(file.Skipped)
		case !file.Converged:
			status = "&#9888; not converged"
		}

		b.WriteString(fmt.Sprintf(
			"| %s | %s | %d | %d | %d | %s |\n",
			markdownCell(file.Name),
			file.Target,
			len(file.Applied),
			file.BytesSaved,
			file.CyclesSaved,
			status,
		))
	}

	for _, file := range summary.Files {
		if len(file.Applied) == 0 {
			continue
		}

		b.WriteString(fmt.Sprintf("\n### %s\n\n", markdownCell(file.Name)))
		b.WriteString("| Lines | Pattern | Bytes | Cycles |\n")
		b.WriteString("| --- | --- | --- | --- |\n")

		for _, application := range file.Applied {
			cycles := fmt.Sprintf("%d", application.Cycles)
			if application.Estimated {
				cycles += "*"
			}
			b.WriteString(fmt.Sprintf(
				"| %s | `%s` | %d | %s |\n",
				lineRange(application.FirstLine, application.LastLine),
				application.Pattern,
				application.Bytes,
				cycles,
			))
		}
	}

	return b.String()
}
