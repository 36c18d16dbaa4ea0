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
	"github.com/spf13/cobra"

	"github.com/upeep80/upeep80"
	"github.com/upeep80/upeep80/report"
	"github.com/upeep80/upeep80/target"
)

type PatternsCmd struct {
	BaseCmd
}

func GetPatternsCmd(env *environment) *PatternsCmd {
	patternsCmdIns := new(PatternsCmd)

	subCmd := &cobra.Command{
		Use:     "patterns",
		Short:   "List the patterns applied for a target, in the order they are tried.",
		Example: "upeep80 patterns --target 8080",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := target.Parse(env.viper.GetString("target"))
			if err != nil {
				return err
			}

			library, err := upeep80.BuiltinLibrary(t)
			if err != nil {
				return err
			}

			disabled := env.viper.GetStringSlice("disable")
			if len(disabled) > 0 {
				library, err = library.Without(disabled...)
				if err != nil {
					return err
				}
			}

			return report.PrintPatterns(cmd.OutOrStdout(), library)
		},
	}

	subCmd.Flags().StringP("target", "t", "z80", "target CPU (8080, z80)")
	subCmd.Flags().StringSlice("disable", nil, "IDs of patterns to leave out")

	patternsCmdIns.SetCmd(subCmd)

	return patternsCmdIns
}
