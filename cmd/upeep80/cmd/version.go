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
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/upeep80/upeep80"
	"github.com/upeep80/upeep80/errors"
)

type VersionCmd struct {
	BaseCmd
}

func GetVersionCmd() *VersionCmd {
	versionCmdIns := new(VersionCmd)

	var require string

	subCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the version, or check that it satisfies a minimum version.",
		Example: "upeep80 version --require v0.3",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if require != "" {
				return checkVersion(upeep80.Version, require)
			}

			_, err := fmt.Fprintf(
				cmd.OutOrStdout(),
				"upeep80 %s %s/%s %s\n",
				upeep80.Version,
				runtime.GOOS,
				runtime.GOARCH,
				runtime.Version(),
			)
			return err
		},
	}

	subCmd.Flags().StringVar(&require, "require", "", "fail unless the version is at least this semantic version")

	versionCmdIns.SetCmd(subCmd)

	return versionCmdIns
}

func checkVersion(version, required string) error {
	if !semver.IsValid(required) {
		return errors.NewDefaultUserError("invalid version `%s`: expected a semantic version like v1.2.3", required)
	}
	if semver.Compare(version, required) < 0 {
		return errors.NewDefaultUserError(
			"version %s is older than the required version %s",
			version,
			semver.Canonical(required),
		)
	}
	return nil
}
