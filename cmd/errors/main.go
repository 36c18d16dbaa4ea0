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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/kodova/html-to-markdown/escape"
	"github.com/spf13/cobra"

	"github.com/upeep80/upeep80/errors"
)

// Entry describes one error type users may encounter.
type Entry struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Secondary string `json:"secondary,omitempty"`
}

func kind(err error) string {
	switch {
	case errors.IsUserError(err):
		return "user"
	case errors.IsInternalError(err):
		return "internal"
	default:
		return "external"
	}
}

func catalog(errs []error) []Entry {
	entries := make([]Entry, 0, len(errs))
	for _, err := range errs {
		errType := reflect.TypeOf(err)
		if errType.Kind() == reflect.Pointer {
			errType = errType.Elem()
		}

		entry := Entry{
			Name:    errType.String(),
			Kind:    kind(err),
			Message: err.Error(),
		}
		if secondaryErr, ok := err.(errors.SecondaryError); ok {
			entry.Secondary = secondaryErr.SecondaryError()
		}
		entries = append(entries, entry)
	}
	return entries
}

func markdownCell(s string) string {
	s = escape.Markdown(s)
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}

func writeMarkdown(w io.Writer, entries []Entry) error {
	var b strings.Builder
	b.WriteString("| Error | Kind | Message | Secondary |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, entry := range entries {
		fmt.Fprintf(
			&b,
			"| %s | %s | %s | %s |\n",
			entry.Name,
			entry.Kind,
			markdownCell(entry.Message),
			markdownCell(entry.Secondary),
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, entries []Entry) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

func newCommand(out io.Writer) *cobra.Command {
	var asJSON bool

	command := &cobra.Command{
		Use:           "errors",
		Short:         "Print a catalog of the errors reported by upeep80",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			entries := catalog(placeholderErrors)
			if asJSON {
				return writeJSON(out, entries)
			}
			return writeMarkdown(out, entries)
		},
	}
	command.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return command
}

func main() {
	command := newCommand(os.Stdout)
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
