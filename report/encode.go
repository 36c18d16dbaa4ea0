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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-yaml"
	"github.com/tidwall/pretty"

	"github.com/upeep80/upeep80/common"
	"github.com/upeep80/upeep80/errors"
)

// Format is an output format of a summary.
type Format uint8

const (
	FormatNone Format = iota
	FormatText
	FormatJSON
	FormatYAML
	FormatCBOR
	FormatMarkdown
)

var formatNames = []string{
	FormatNone:     "none",
	FormatText:     "text",
	FormatJSON:     "json",
	FormatYAML:     "yaml",
	FormatCBOR:     "cbor",
	FormatMarkdown: "markdown",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", f)
}

// IsBinary returns true if the format is not printable text.
func (f Format) IsBinary() bool {
	return f == FormatCBOR
}

// ParseFormat returns the format with the given name.
func ParseFormat(name string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for format, formatName := range formatNames {
		if formatName == normalized {
			return Format(format), nil
		}
	}
	return FormatNone, &UnknownFormatError{
		Name:       name,
		Suggestion: common.ClosestName(normalized, formatNames),
	}
}

// UnknownFormatError is reported for names which name no report format.
type UnknownFormatError struct {
	Name       string
	Suggestion string
}

var _ errors.UserError = &UnknownFormatError{}
var _ errors.SecondaryError = &UnknownFormatError{}

func (*UnknownFormatError) IsUserError() {}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown report format `%s`", e.Name)
}

func (e *UnknownFormatError) SecondaryError() string {
	if e.Suggestion == "" {
		return "expected one of " + strings.Join(formatNames, ", ")
	}
	return fmt.Sprintf("did you mean `%s`?", e.Suggestion)
}

var cborEncMode = func() cbor.EncMode {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return encMode
}()

// Encode returns the summary in the given format.
// Colour only affects the text and JSON formats.
func Encode(summary *Summary, format Format, useColor bool) ([]byte, error) {
	switch format {
	case FormatNone:
		return nil, nil

	case FormatText:
		var sb strings.Builder
		NewPrinter(&sb, useColor).PrintSummary(summary)
		return []byte(sb.String()), nil

	case FormatJSON:
		return EncodeJSON(summary, useColor)

	case FormatYAML:
		return yaml.Marshal(summary)

	case FormatCBOR:
		return cborEncMode.Marshal(summary)

	case FormatMarkdown:
		return []byte(Markdown(summary)), nil

	default:
		return nil, errors.NewUnexpectedError("unsupported report format: %s", format)
	}
}

// Write encodes the summary in the given format, and writes it.
func Write(w io.Writer, summary *Summary, format Format, useColor bool) error {
	encoded, err := Encode(summary, format, useColor)
	if err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}

// EncodeJSON returns the indented JSON encoding of the value.
func EncodeJSON(value any, useColor bool) ([]byte, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	encoded = pretty.Pretty(encoded)
	if useColor {
		encoded = pretty.Color(encoded, nil)
	}
	return encoded, nil
}

// DecodeCBOR decodes a summary encoded with the CBOR format.
func DecodeCBOR(data []byte) (*Summary, error) {
	var summary Summary
	err := cbor.Unmarshal(data, &summary)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
