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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	pprof "github.com/google/pprof/profile"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upeep80/upeep80"
	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/peephole"
	"github.com/upeep80/upeep80/target"
	. "github.com/upeep80/upeep80/test_utils/common_utils"
)

func optimizedFile(t *testing.T, name string, tgt target.Target, lines ...string) File {
	t.Helper()

	result, err := upeep80.Optimize(Lines(lines...), upeep80.Options{Target: tgt})
	require.NoError(t, err)

	return NewFile(name, result)
}

func testSummary(t *testing.T) *Summary {
	t.Helper()

	return NewSummary(
		optimizedFile(t, "b.asm", target.Z80, "LD A,B", "LD B,A"),
		optimizedFile(t, "a.asm", target.Intel8080, "LD A,0", "LD A,0"),
	)
}

func TestNewFile(t *testing.T) {

	t.Parallel()

	file := optimizedFile(t, "a.asm", target.Intel8080, "LD A,0", "LD A,0")

	AssertEqualWithDiff(t,
		File{
			Name:         "a.asm",
			Target:       "Intel8080",
			SourceDigest: upeep80.Digest(Lines("LD A,0", "LD A,0")),
			OutputDigest: upeep80.Digest(Lines("LD A,0")),
			Iterations:   2,
			Converged:    true,
			BytesSaved:   2,
			CyclesSaved:  7,
			Before:       &Cost{Bytes: 4, Cycles: 14},
			After:        &Cost{Bytes: 2, Cycles: 7},
			Applied: []Application{
				{
					Pattern:   "redundant-load-elimination",
					FirstLine: 1,
					LastLine:  2,
					Bytes:     2,
					Cycles:    7,
					Iteration: 1,
				},
			},
			Counts: map[string]int{
				"redundant-load-elimination": 1,
			},
		},
		file,
	)
}

func TestNewFileIncompleteCost(t *testing.T) {

	t.Parallel()

	file := optimizedFile(t, "data.asm", target.Z80, "\tDB 1,2", "\tRET")

	assert.Nil(t, file.Before)
	assert.Nil(t, file.After)
}

func TestNewSummary(t *testing.T) {

	t.Parallel()

	summary := testSummary(t)

	require.Len(t, summary.Files, 2)
	assert.Equal(t, "a.asm", summary.Files[0].Name)
	assert.Equal(t, "b.asm", summary.Files[1].Name)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 2, summary.BytesSaved)
	assert.Equal(t, 7, summary.CyclesSaved)
}

func TestParseFormat(t *testing.T) {

	t.Parallel()

	for _, format := range []Format{
		FormatNone,
		FormatText,
		FormatJSON,
		FormatYAML,
		FormatCBOR,
		FormatMarkdown,
	} {
		parsed, err := ParseFormat(strings.ToUpper(format.String()))
		require.NoError(t, err)
		assert.Equal(t, format, parsed)
	}

	_, err := ParseFormat("yml")
	RequireError(t, err)

	var unknownFormatErr *UnknownFormatError
	require.ErrorAs(t, err, &unknownFormatErr)
	assert.Equal(t, "yaml", unknownFormatErr.Suggestion)

	assert.True(t, FormatCBOR.IsBinary())
	assert.False(t, FormatJSON.IsBinary())
}

func TestEncode(t *testing.T) {

	t.Parallel()

	summary := testSummary(t)

	t.Run("none", func(t *testing.T) {
		t.Parallel()

		encoded, err := Encode(summary, FormatNone, false)
		require.NoError(t, err)
		assert.Empty(t, encoded)
	})

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()

		encoded, err := Encode(summary, FormatJSON, false)
		require.NoError(t, err)

		var decoded Summary
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		assert.Equal(t, *summary, decoded)

		assert.Contains(t, string(encoded), "\n  \"files\": [")
	})

	t.Run("JSON, color", func(t *testing.T) {
		t.Parallel()

		encoded, err := Encode(summary, FormatJSON, true)
		require.NoError(t, err)
		assert.Contains(t, string(encoded), "\x1b[")
	})

	t.Run("YAML", func(t *testing.T) {
		t.Parallel()

		encoded, err := Encode(summary, FormatYAML, false)
		require.NoError(t, err)

		var decoded Summary
		require.NoError(t, yaml.Unmarshal(encoded, &decoded))
		require.Len(t, decoded.Files, 2)
		assert.Equal(t, summary.Files[0], decoded.Files[0])
		assert.Equal(t, summary.BytesSaved, decoded.BytesSaved)
	})

	t.Run("CBOR", func(t *testing.T) {
		t.Parallel()

		encoded, err := Encode(summary, FormatCBOR, false)
		require.NoError(t, err)

		decoded, err := DecodeCBOR(encoded)
		require.NoError(t, err)
		require.Len(t, decoded.Files, 2)
		assert.Equal(t, summary.Files[0], decoded.Files[0])
		assert.Equal(t, summary.CyclesSaved, decoded.CyclesSaved)

		// deterministic encoding
		again, err := Encode(summary, FormatCBOR, false)
		require.NoError(t, err)
		assert.Equal(t, encoded, again)
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		_, err := Encode(summary, Format(42), false)
		RequireError(t, err)
	})
}

func TestPrintSummary(t *testing.T) {

	t.Parallel()

	summary := testSummary(t)

	encoded, err := Encode(summary, FormatText, false)
	require.NoError(t, err)

	assert.Equal(t,
		Lines(
			"a.asm (Intel8080): 1 rewrite in 2 iterations, saved 2 bytes, 7 cycles",
			"  1-2  redundant-load-elimination  -2  -7",
			"  cost: 4 bytes, 14 cycles -> 2 bytes, 7 cycles",
			"b.asm (Z80): 0 rewrites in 1 iteration",
			"  cost: 2 bytes, 8 cycles -> 2 bytes, 8 cycles",
			"total: 1 of 2 files changed, saved 2 bytes, 7 cycles",
		),
		string(encoded),
	)
}

func TestPrintSkipped(t *testing.T) {

	t.Parallel()

	var b bytes.Buffer
	NewPrinter(&b, false).PrintFile(
		optimizedFile(t, "jr.asm", target.Z80, "\tJR $+2", "\tNOP"),
	)

	assert.Contains(t, b.String(), "  skipped: the code refers to the location counter\n")
}

func TestMarkdown(t *testing.T) {

	t.Parallel()

	markdown := Markdown(testSummary(t))

	assert.Contains(t, markdown, "1 of 2 files changed, saved 2 bytes, 7 cycles.")
	assert.Contains(t, markdown, "| Intel8080 | 1 | 2 | 7 | &#9989; |")
	assert.Contains(t, markdown, "| 1-2 | `redundant-load-elimination` | 2 | 7 |")
	assert.Equal(t, 1, strings.Count(markdown, "\n### "))
}

func TestQuery(t *testing.T) {

	t.Parallel()

	summary := testSummary(t)

	t.Run("names", func(t *testing.T) {
		t.Parallel()

		results, err := Query(context.Background(), summary, ".files[].name")
		require.NoError(t, err)
		assert.Equal(t, []any{"a.asm", "b.asm"}, results)
	})

	t.Run("changed files", func(t *testing.T) {
		t.Parallel()

		results, err := Query(
			context.Background(),
			summary,
			`[.files[] | select(.applied | length > 0) | .name]`,
		)
		require.NoError(t, err)
		assert.Equal(t, []any{[]any{"a.asm"}}, results)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := Query(context.Background(), summary, ".files[")
		RequireError(t, err)

		var invalidQueryErr *InvalidQueryError
		require.ErrorAs(t, err, &invalidQueryErr)
	})

	t.Run("runtime error", func(t *testing.T) {
		t.Parallel()

		_, err := Query(context.Background(), summary, `error("failed")`)
		RequireError(t, err)
	})
}

func TestProfile(t *testing.T) {

	t.Parallel()

	unit, err := asm.Parse(Lines(
		"\tLD A,0",
		"LOOP:\tDEC A",
		"\tJP NZ,LOOP",
		"\tDB 1",
		"DONE:",
		"\tRET",
	))
	require.NoError(t, err)

	profile, err := NewProfileExporter("test.asm", target.Intel8080, nil).Export(unit)
	require.NoError(t, err)

	functionNames := make([]string, 0, len(profile.Function))
	for _, function := range profile.Function {
		functionNames = append(functionNames, function.Name)
	}
	assert.Equal(t, []string{EntryFunctionName, "LOOP", "DONE"}, functionNames)

	type sample struct {
		function string
		line     int64
		bytes    int64
		cycles   int64
	}

	samples := make([]sample, 0, len(profile.Sample))
	for _, s := range profile.Sample {
		line := s.Location[0].Line[0]
		samples = append(samples, sample{
			function: line.Function.Name,
			line:     line.Line,
			bytes:    s.Value[0],
			cycles:   s.Value[1],
		})
	}

	assert.Equal(t,
		[]sample{
			{function: EntryFunctionName, line: 1, bytes: 2, cycles: 7},
			{function: "LOOP", line: 2, bytes: 1, cycles: 5},
			{function: "LOOP", line: 3, bytes: 3, cycles: 10},
			{function: "DONE", line: 6, bytes: 1, cycles: 10},
		},
		samples,
	)

	var b bytes.Buffer
	require.NoError(t, WriteProfile(&b, "test.asm", unit, target.Intel8080))

	parsed, err := pprof.Parse(&b)
	require.NoError(t, err)
	assert.Len(t, parsed.Sample, 4)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}

func TestPrintPatterns(t *testing.T) {

	t.Parallel()

	t.Run("plain writer", func(t *testing.T) {
		t.Parallel()

		var b bytes.Buffer
		w := writerFunc(b.Write)
		require.NoError(t, PrintPatterns(w, peephole.MustBuild(target.Z80)))

		output := b.String()

		assert.Contains(t, output,
			"jump-to-next\n"+
				"  Removes a jump to the immediately following instruction\n",
		)
		assert.Contains(t, output, "targets: {Intel8080, Z80}")
		assert.Contains(t, output, "emits: JP TARGET, JP NZ,TARGET")
		assert.True(t, strings.HasSuffix(output, "\n"))
	})

	t.Run("write failure", func(t *testing.T) {
		t.Parallel()

		w := writerFunc(func([]byte) (int, error) {
			return 0, assert.AnError
		})
		err := PrintPatterns(w, peephole.MustBuild(target.Intel8080))
		require.ErrorIs(t, err, assert.AnError)
	})
}
