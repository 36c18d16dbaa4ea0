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
	"os"

	pprof "github.com/google/pprof/profile"

	"github.com/upeep80/upeep80"
	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/report"
	"github.com/upeep80/upeep80/target"
)

// writeProfiles writes the merged cost profiles of all sources,
// before and after optimization.
func writeProfiles(prefix string, sources []source, results []*upeep80.Result, t target.Target) error {
	var before, after []*pprof.Profile

	for i, result := range results {
		name := sources[i].name

		unit, err := asm.Parse(sources[i].code)
		if err != nil {
			return err
		}

		profile, err := report.NewProfileExporter(name, t, nil).Export(unit)
		if err != nil {
			return err
		}
		before = append(before, profile)

		profile, err = report.NewProfileExporter(name, t, nil).Export(result.Unit)
		if err != nil {
			return err
		}
		after = append(after, profile)
	}

	err := writeMergedProfile(prefix+".before.pb.gz", before)
	if err != nil {
		return err
	}
	return writeMergedProfile(prefix+".after.pb.gz", after)
}

func writeMergedProfile(path string, profiles []*pprof.Profile) (err error) {
	merged, err := pprof.Merge(profiles)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := file.Close()
		if err == nil {
			err = closeErr
		}
	}()

	return merged.Write(file)
}
