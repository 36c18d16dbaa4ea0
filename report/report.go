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
	"slices"
	"strings"

	"github.com/upeep80/upeep80"
	"github.com/upeep80/upeep80/peephole"
)

// Application is one applied rewrite.
type Application struct {
	Pattern   string `json:"pattern" yaml:"pattern" cbor:"pattern"`
	FirstLine int    `json:"first_line" yaml:"first_line" cbor:"first_line"`
	LastLine  int    `json:"last_line" yaml:"last_line" cbor:"last_line"`
	Bytes     int    `json:"bytes" yaml:"bytes" cbor:"bytes"`
	Cycles    int    `json:"cycles" yaml:"cycles" cbor:"cycles"`
	Iteration int    `json:"iteration" yaml:"iteration" cbor:"iteration"`
	Estimated bool   `json:"estimated,omitempty" yaml:"estimated,omitempty" cbor:"estimated,omitempty"`
}

type Cost struct {
	Bytes  int `json:"bytes" yaml:"bytes" cbor:"bytes"`
	Cycles int `json:"cycles" yaml:"cycles" cbor:"cycles"`
}

// File is the report of one optimized source.
type File struct {
	Name         string         `json:"name" yaml:"name" cbor:"name"`
	Target       string         `json:"target" yaml:"target" cbor:"target"`
	SourceDigest string         `json:"source_digest" yaml:"source_digest" cbor:"source_digest"`
	OutputDigest string         `json:"output_digest" yaml:"output_digest" cbor:"output_digest"`
	Iterations   int            `json:"iterations" yaml:"iterations" cbor:"iterations"`
	Converged    bool           `json:"converged" yaml:"converged" cbor:"converged"`
	Skipped      string         `json:"skipped,omitempty" yaml:"skipped,omitempty" cbor:"skipped,omitempty"`
	BytesSaved   int            `json:"bytes_saved" yaml:"bytes_saved" cbor:"bytes_saved"`
	CyclesSaved  int            `json:"cycles_saved" yaml:"cycles_saved" cbor:"cycles_saved"`
	Before       *Cost          `json:"before,omitempty" yaml:"before,omitempty" cbor:"before,omitempty"`
	After        *Cost          `json:"after,omitempty" yaml:"after,omitempty" cbor:"after,omitempty"`
	Applied      []Application  `json:"applied" yaml:"applied" cbor:"applied"`
	Counts       map[string]int `json:"counts" yaml:"counts" cbor:"counts"`
}

// Summary is the report of an invocation, which may optimize several sources.
type Summary struct {
	Files       []File `json:"files" yaml:"files" cbor:"files"`
	Changed     int    `json:"changed" yaml:"changed" cbor:"changed"`
	BytesSaved  int    `json:"bytes_saved" yaml:"bytes_saved" cbor:"bytes_saved"`
	CyclesSaved int    `json:"cycles_saved" yaml:"cycles_saved" cbor:"cycles_saved"`
}

// NewFile returns the report of the result of optimizing the named source.
func NewFile(name string, result *upeep80.Result) File {
	report := result.Report

	file := File{
		Name:         name,
		Target:       report.Target.String(),
		SourceDigest: result.SourceDigest,
		OutputDigest: result.OutputDigest,
		Iterations:   report.Iterations,
		Converged:    report.Converged,
		Skipped:      report.Skipped,
		BytesSaved:   report.BytesSaved,
		CyclesSaved:  report.CyclesSaved,
		Applied:      make([]Application, 0, len(report.Applied)),
		Counts:       report.Counts(),
	}

	// Static costs are only meaningful if every instruction has a known cost
	if report.CostComplete {
		file.Before = newCost(report.Before.Bytes, report.Before.Cycles)
		file.After = newCost(report.After.Bytes, report.After.Cycles)
	}

	for _, application := range report.Applied {
		file.Applied = append(file.Applied, newApplication(application))
	}

	return file
}

func newCost(bytes, cycles int) *Cost {
	return &Cost{
		Bytes:  bytes,
		Cycles: cycles,
	}
}

func newApplication(application peephole.Application) Application {
	return Application{
		Pattern:   application.PatternID,
		FirstLine: application.FirstLine,
		LastLine:  application.LastLine,
		Bytes:     application.Bytes,
		Cycles:    application.Cycles,
		Iteration: application.Iteration,
		Estimated: application.Estimated,
	}
}

// NewSummary returns the summary of the given file reports, ordered by name.
func NewSummary(files ...File) *Summary {
	summary := &Summary{
		Files: slices.Clone(files),
	}

	slices.SortStableFunc(summary.Files, func(a, b File) int {
		return strings.Compare(a.Name, b.Name)
	})

	for _, file := range summary.Files {
		if len(file.Applied) > 0 {
			summary.Changed++
		}
		summary.BytesSaved += file.BytesSaved
		summary.CyclesSaved += file.CyclesSaved
	}

	return summary
}
