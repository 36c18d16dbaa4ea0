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

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/logrusorgru/aurora/v4"
	"github.com/spf13/cobra"

	"github.com/upeep80/upeep80"
	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/report"
	"github.com/upeep80/upeep80/target"
)

const replHelpMessage = `
Enter assembly lines, then an empty line to optimize them.
Commands are prefixed with a dot. Valid commands are:

.target NAME  Select the target (8080, z80)
.patterns     List the patterns applied for the target
.clear        Discard the entered lines
.exit         Exit
.help         Print this help message

Press ^D to exit`

const replAssistanceMessage = `Type '.help' for assistance.`

var replCommands = []prompt.Suggest{
	{Text: ".target", Description: "Select the target"},
	{Text: ".patterns", Description: "List the patterns"},
	{Text: ".clear", Description: "Discard the entered lines"},
	{Text: ".exit", Description: "Exit"},
	{Text: ".help", Description: "Print help"},
}

// replSession accumulates lines, and optimizes them when an empty line is entered.
type replSession struct {
	out      io.Writer
	errOut   io.Writer
	target   target.Target
	useColor bool
	lines    []string
}

func newREPLSession(out, errOut io.Writer, t target.Target, useColor bool) *replSession {
	return &replSession{
		out:      out,
		errOut:   errOut,
		target:   t,
		useColor: useColor,
	}
}

func (s *replSession) printf(format string, args ...any) {
	_, err := fmt.Fprintf(s.out, format, args...)
	if err != nil {
		panic(err)
	}
}

func (s *replSession) colorizeError(message string) string {
	if !s.useColor {
		return message
	}
	return aurora.Colorize(message, aurora.RedFg|aurora.BrightFg|aurora.BoldFm).String()
}

func (s *replSession) lineNumber() int {
	return len(s.lines) + 1
}

// Accept handles one input line.
func (s *replSession) Accept(line string) {
	trimmed := strings.TrimSpace(line)

	if len(s.lines) == 0 && strings.HasPrefix(trimmed, ".") {
		s.handleCommand(trimmed)
		return
	}

	if trimmed == "" {
		s.optimize()
		return
	}

	s.lines = append(s.lines, line)
}

func (s *replSession) handleCommand(command string) {
	name, argument, _ := strings.Cut(command, " ")
	argument = strings.TrimSpace(argument)

	switch name {
	case ".help":
		s.printf("%s\n", replHelpMessage)

	case ".clear":
		s.lines = nil

	case ".exit":
		// handled by the prompt's exit checker

	case ".target":
		if argument == "" {
			s.printf("%s\n", s.target)
			return
		}
		t, err := target.Parse(argument)
		if err != nil {
			printError(s.errOut, err, s.useColor)
			return
		}
		s.target = t

	case ".patterns":
		library, err := upeep80.BuiltinLibrary(s.target)
		if err != nil {
			printError(s.errOut, err, s.useColor)
			return
		}
		err = report.PrintPatterns(s.out, library)
		if err != nil {
			panic(err)
		}

	default:
		s.printf("%s\n", s.colorizeError(fmt.Sprintf("Unknown command. %s", replAssistanceMessage)))
	}
}

func (s *replSession) optimize() {
	if len(s.lines) == 0 {
		return
	}

	code := strings.Join(s.lines, "\n") + "\n"
	s.lines = nil

	result, err := upeep80.Optimize(code, upeep80.Options{Target: s.target})
	if err != nil {
		printError(s.errOut, &sourceError{Name: "input", Code: code, Err: err}, s.useColor)
		return
	}

	s.printf("%s", result.Text)

	file := report.NewFile("input", result)
	report.NewPrinter(s.out, s.useColor).PrintFile(file)
}

// Suggest returns completions for commands and mnemonics.
func (s *replSession) Suggest(document prompt.Document) []prompt.Suggest {
	word := document.GetWordBeforeCursor()
	if len(word) == 0 {
		return nil
	}

	if strings.HasPrefix(word, ".") {
		return prompt.FilterHasPrefix(replCommands, word, false)
	}

	mnemonics := asm.KnownMnemonics()
	suggests := make([]prompt.Suggest, 0, len(mnemonics))
	for _, mnemonic := range mnemonics {
		suggests = append(suggests, prompt.Suggest{Text: mnemonic})
	}
	return prompt.FilterHasPrefix(suggests, word, true)
}

func (s *replSession) livePrefix() (string, bool) {
	separator := '>'
	if len(s.lines) > 0 {
		separator = '.'
	}
	return fmt.Sprintf("%s %d%c ", s.target, s.lineNumber(), separator), true
}

type REPLCmd struct {
	BaseCmd
}

func GetREPLCmd(env *environment) *REPLCmd {
	replCmdIns := new(REPLCmd)

	subCmd := &cobra.Command{
		Use:   "repl",
		Short: "Optimize assembly snippets interactively.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := target.Parse(env.viper.GetString("target"))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			session := newREPLSession(out, cmd.ErrOrStderr(), t, env.useColor(out))

			session.printf("Welcome to upeep80 %s!\n%s\n\n", upeep80.Version, replAssistanceMessage)

			prompt.New(
				session.Accept,
				session.Suggest,
				prompt.OptionLivePrefix(session.livePrefix),
				prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
					return breakline && strings.TrimSpace(in) == ".exit"
				}),
			).Run()

			return nil
		},
	}

	subCmd.Flags().StringP("target", "t", "z80", "target CPU (8080, z80)")

	replCmdIns.SetCmd(subCmd)

	return replCmdIns
}
