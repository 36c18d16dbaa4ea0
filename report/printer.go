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
	"text/tabwriter"

	"github.com/logrusorgru/aurora/v4"
)

// Printer prints summaries as human-readable text.
type Printer struct {
	writer   io.Writer
	useColor bool
}

func NewPrinter(writer io.Writer, useColor bool) Printer {
	return Printer{
		writer:   writer,
		useColor: useColor,
	}
}

func (p Printer) colorize(text string, color aurora.Color) string {
	if !p.useColor {
		return text
	}
	return aurora.Colorize(text, color).String()
}

func (p Printer) printf(format string, args ...any) {
	_, err := fmt.Fprintf(p.writer, format, args...)
	if err != nil {
		panic(err)
	}
}

// PrintSummary prints each file report, followed by the totals.
func (p Printer) PrintSummary(summary *Summary) {
	for _, file := range summary.Files {
		p.PrintFile(file)
	}

	p.printf(
		"%s %d of %d files changed, saved %s, %s\n",
		p.colorize("total:", aurora.BoldFm),
		summary.Changed,
		len(summary.Files),
		p.colorize(plural(summary.BytesSaved, "byte"), aurora.GreenFg),
		p.colorize(plural(summary.CyclesSaved, "cycle"), aurora.GreenFg),
	)
}

// PrintFile prints the report of a single file: a header line,
// one line per applied rewrite, and the static cost if known.
func (p Printer) PrintFile(file File) {
	p.printf(
		"%s (%s): %s in %s",
		p.colorize(file.Name, aurora.BoldFm),
		file.Target,
		plural(len(file.Applied), "rewrite"),
		plural(file.Iterations, "iteration"),
	)
	if len(file.Applied) > 0 {
		p.printf(
			", saved %s, %s",
			plural(file.BytesSaved, "byte"),
			plural(file.CyclesSaved, "cycle"),
		)
	}
	p.printf("\n")

	if file.Skipped != "" {
		p.printf("  %s %s\n", p.colorize("skipped:", aurora.YellowFg), file.Skipped)
	} else if !file.Converged {
		p.printf("  %s did not converge\n", p.colorize("warning:", aurora.YellowFg))
	}

	if len(file.Applied) > 0 {
		w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
		for _, application := range file.Applied {
			estimate := ""
			if application.Estimated {
				estimate = " (estimated)"
			}
			_, err := fmt.Fprintf(
				w,
				"  %s\t%s\t-%d\t-%d%s\n",
				lineRange(application.FirstLine, application.LastLine),
				p.colorize(application.Pattern, aurora.CyanFg),
				application.Bytes,
				application.Cycles,
				estimate,
			)
			if err != nil {
				panic(err)
			}
		}
		err := w.Flush()
		if err != nil {
			panic(err)
		}
	}

	if file.Before != nil && file.After != nil {
		p.printf(
			"  cost: %s, %s -> %s, %s\n",
			plural(file.Before.Bytes, "byte"),
			plural(file.Before.Cycles, "cycle"),
			plural(file.After.Bytes, "byte"),
			plural(file.After.Cycles, "cycle"),
		)
	}
}

func lineRange(first, last int) string {
	if first == last {
		return fmt.Sprintf("%d", first)
	}
	return fmt.Sprintf("%d-%d", first, last)
}

func plural(count int, noun string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, noun)
	}
	return fmt.Sprintf("%d %ss", count, noun)
}
