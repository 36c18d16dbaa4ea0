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
	goerrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/errors"
	"github.com/upeep80/upeep80/pretty"
	"github.com/upeep80/upeep80/target"
)

type CheckCmd struct {
	BaseCmd
}

func GetCheckCmd(env *environment) *CheckCmd {
	checkCmdIns := new(CheckCmd)

	subCmd := &cobra.Command{
		Use:     "check [files...]",
		Short:   "Report lines which cannot be parsed, or which the target cannot encode.",
		Example: "upeep80 check --target 8080 main.asm",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := target.Parse(env.viper.GetString("target"))
			if err != nil {
				return err
			}

			sources, err := readSources(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			printer := pretty.NewErrorPrettyPrinter(stderr, env.useColor(stderr))

			problems := 0
			for _, src := range sources {
				err := checkSource(src, t)
				if err == nil {
					continue
				}

				var parentErr errors.ParentError
				if goerrors.As(err, &parentErr) {
					problems += len(parentErr.ChildErrors())
				} else {
					problems++
				}

				printErr := printer.PrettyPrintError(err, src.name, src.code)
				if printErr != nil {
					return printErr
				}
			}

			_, err = fmt.Fprintf(
				cmd.OutOrStdout(),
				"checked %d %s for %s: %d %s\n",
				len(sources),
				pluralize(len(sources), "file", "files"),
				t,
				problems,
				pluralize(problems, "problem", "problems"),
			)
			if err != nil {
				return err
			}

			if problems > 0 {
				return &exitError{Code: 1}
			}
			return nil
		},
	}

	subCmd.Flags().StringP("target", "t", "z80", "target CPU (8080, z80)")

	checkCmdIns.SetCmd(subCmd)

	return checkCmdIns
}

func checkSource(src source, t target.Target) error {
	unit, err := asm.Parse(src.code)
	if err != nil {
		return err
	}
	return target.Check(unit, t)
}

func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}
