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
	"io"

	pprof "github.com/google/pprof/profile"

	"github.com/upeep80/upeep80/asm"
	"github.com/upeep80/upeep80/target"
)

// EntryFunctionName is the name of the region before the first label.
const EntryFunctionName = "<entry>"

// ProfileExporter exports the static cost of a unit as a pprof profile.
//
// Each label starts a new function, which extends to the next label.
// Each operation with a known cost is a sample,
// with the number of bytes and cycles as its values.
type ProfileExporter struct {
	Filename string
	Target   target.Target
	Costs    *target.CostModel

	profile       *pprof.Profile
	lineLocations map[pprof.Line]*pprof.Location
}

func NewProfileExporter(filename string, t target.Target, costs *target.CostModel) *ProfileExporter {
	if costs == nil {
		costs = target.DefaultCostModel()
	}
	return &ProfileExporter{
		Filename:      filename,
		Target:        t,
		Costs:         costs,
		lineLocations: make(map[pprof.Line]*pprof.Location),
	}
}

func (e *ProfileExporter) Export(unit *asm.Unit) (*pprof.Profile, error) {
	e.profile = &pprof.Profile{}
	clear(e.lineLocations)

	e.profile.SampleType = []*pprof.ValueType{
		{
			Type: "bytes",
			Unit: "bytes",
		},
		{
			Type: "cycles",
			Unit: "count",
		},
	}

	var function *pprof.Function

	for _, instruction := range unit.Instructions {
		if instruction.Label != "" {
			function = e.addFunction(instruction.Label, instruction.Line)
		}

		if !instruction.IsOperation() {
			continue
		}

		cost, ok := e.Costs.Cost(instruction, e.Target)
		if !ok {
			continue
		}

		if function == nil {
			function = e.addFunction(EntryFunctionName, instruction.Line)
		}

		e.profile.Sample = append(
			e.profile.Sample,
			&pprof.Sample{
				Location: []*pprof.Location{
					e.getOrAddLocation(function, instruction.Line),
				},
				Value: []int64{
					int64(cost.Bytes),
					int64(cost.Cycles),
				},
			},
		)
	}

	err := e.profile.CheckValid()
	if err != nil {
		return nil, err
	}

	return e.profile, nil
}

func (e *ProfileExporter) addFunction(name string, line int) *pprof.Function {
	function := &pprof.Function{
		// ID must be non-zero
		ID:        uint64(len(e.profile.Function) + 1),
		Name:      name,
		Filename:  e.Filename,
		StartLine: int64(line),
	}
	e.profile.Function = append(e.profile.Function, function)
	return function
}

func (e *ProfileExporter) getOrAddLocation(function *pprof.Function, line int) *pprof.Location {
	pprofLine := pprof.Line{
		Function: function,
		Line:     int64(line),
	}

	location, ok := e.lineLocations[pprofLine]
	if ok {
		return location
	}

	location = &pprof.Location{
		// ID must be non-zero
		ID:   uint64(len(e.profile.Location) + 1),
		Line: []pprof.Line{pprofLine},
	}
	e.lineLocations[pprofLine] = location
	e.profile.Location = append(e.profile.Location, location)

	return location
}

// WriteProfile exports the static cost of the unit, and writes it gzip-compressed.
func WriteProfile(w io.Writer, filename string, unit *asm.Unit, t target.Target) error {
	profile, err := NewProfileExporter(filename, t, nil).Export(unit)
	if err != nil {
		return err
	}
	return profile.Write(w)
}
