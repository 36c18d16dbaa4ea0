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
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/kylelemons/godebug/diff"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/upeep80/upeep80"
	"github.com/upeep80/upeep80/errors"
	"github.com/upeep80/upeep80/peephole"
	"github.com/upeep80/upeep80/report"
	"github.com/upeep80/upeep80/target"
)

const stdinName = "<stdin>"

type OptimizeCmd struct {
	BaseCmd
	env *environment
}

// optimizeOptions are the settings of the optimize command,
// from flags, environment and configuration file.
type optimizeOptions struct {
	target        target.Target
	maxIterations int
	strict        bool
	disabled      []string
	canonical     bool
	output        string
	inPlace       bool
	reportFormat  report.Format
	reportFile    string
	query         string
	profile       string
	diff          bool
	metricsFile   string
	jobs          int
	progress      bool
}

func GetOptimizeCmd(env *environment) *OptimizeCmd {
	optimizeCmdIns := &OptimizeCmd{
		env: env,
	}

	subCmd := &cobra.Command{
		Use:   "optimize [files...]",
		Short: "Optimize assembly files, or standard input if no files are given.",
		Example: "upeep80 optimize --target 8080 --report text main.asm\n" +
			"upeep80 optimize --in-place --jobs 4 src/*.asm",
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := optimizeCmdIns.options(len(args))
			if err != nil {
				return err
			}
			return optimizeCmdIns.Run(cmd, args, options)
		},
	}

	flags := subCmd.Flags()
	flags.StringP("target", "t", "z80", "target CPU (8080, z80)")
	flags.Int("max-iterations", peephole.DefaultMaxIterations, "maximum number of optimization passes")
	flags.Bool("strict", false, "fail if a pattern emits an instruction the target cannot encode")
	flags.StringSlice("disable", nil, "IDs of patterns which must not be applied")
	flags.Bool("canonical", false, "render all lines canonically")
	flags.StringP("output", "o", "", "output file (only for a single input)")
	flags.BoolP("in-place", "i", false, "overwrite the input files")
	flags.String("report", report.FormatNone.String(), "report format (none, text, json, yaml, cbor, markdown)")
	flags.String("report-file", "", "write the report to this file instead of standard error")
	flags.String("query", "", "jq expression to run against the report")
	flags.String("profile", "", "write pprof cost profiles to <prefix>.before.pb.gz and <prefix>.after.pb.gz")
	flags.Bool("diff", false, "print the difference between input and output instead of the output")
	flags.String("metrics-file", "", "write Prometheus metrics to this file")
	flags.IntP("jobs", "j", runtime.GOMAXPROCS(0), "number of files optimized concurrently")
	flags.Bool("progress", false, "show a progress bar")

	optimizeCmdIns.SetCmd(subCmd)

	return optimizeCmdIns
}

func (c *OptimizeCmd) options(inputCount int) (optimizeOptions, error) {
	v := c.env.viper

	t, err := target.Parse(v.GetString("target"))
	if err != nil {
		return optimizeOptions{}, err
	}

	format, err := report.ParseFormat(v.GetString("report"))
	if err != nil {
		return optimizeOptions{}, err
	}

	options := optimizeOptions{
		target:        t,
		maxIterations: v.GetInt("max-iterations"),
		strict:        v.GetBool("strict"),
		disabled:      v.GetStringSlice("disable"),
		canonical:     v.GetBool("canonical"),
		output:        v.GetString("output"),
		inPlace:       v.GetBool("in-place"),
		reportFormat:  format,
		reportFile:    v.GetString("report-file"),
		query:         v.GetString("query"),
		profile:       v.GetString("profile"),
		diff:          v.GetBool("diff"),
		metricsFile:   v.GetString("metrics-file"),
		jobs:          v.GetInt("jobs"),
		progress:      v.GetBool("progress"),
	}

	switch {
	case options.output != "" && options.inPlace:
		return options, errors.NewDefaultUserError("--output and --in-place cannot be combined")
	case options.output != "" && inputCount > 1:
		return options, errors.NewDefaultUserError("--output requires a single input file")
	case options.inPlace && inputCount == 0:
		return options, errors.NewDefaultUserError("--in-place requires input files")
	case options.reportFormat.IsBinary() && options.reportFile == "" && options.query == "":
		return options, errors.NewDefaultUserError("the %s report format requires --report-file", options.reportFormat)
	}

	if options.jobs < 1 {
		options.jobs = 1
	}

	return options, nil
}

type source struct {
	name string
	code string
}

func readSources(stdin io.Reader, paths []string) ([]source, error) {
	if len(paths) == 0 {
		code, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		return []source{{name: stdinName, code: string(code)}}, nil
	}

	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		code, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewDefaultUserError("failed to read input: %w", err)
		}
		sources = append(sources, source{name: path, code: string(code)})
	}
	return sources, nil
}

func (c *OptimizeCmd) Run(cmd *cobra.Command, paths []string, options optimizeOptions) error {
	sources, err := readSources(cmd.InOrStdin(), paths)
	if err != nil {
		return err
	}

	results, err := c.optimize(cmd.Context(), cmd.ErrOrStderr(), sources, options)
	if err != nil {
		return err
	}

	err = c.writeOutputs(cmd.OutOrStdout(), sources, results, options)
	if err != nil {
		return err
	}

	files := make([]report.File, 0, len(results))
	for i, result := range results {
		files = append(files, report.NewFile(sources[i].name, result))
	}
	summary := report.NewSummary(files...)

	err = c.writeReport(cmd, summary, options)
	if err != nil {
		return err
	}

	if options.profile != "" {
		err = writeProfiles(options.profile, sources, results, options.target)
		if err != nil {
			return err
		}
	}

	if options.metricsFile != "" {
		metrics := newOptimizeMetrics()
		for _, file := range summary.Files {
			metrics.observe(file)
		}
		err = metrics.writeTextfile(options.metricsFile)
		if err != nil {
			return err
		}
	}

	return nil
}

// optimize optimizes the sources concurrently, and returns the results in the order of the sources.
func (c *OptimizeCmd) optimize(
	ctx context.Context,
	progressWriter io.Writer,
	sources []source,
	options optimizeOptions,
) ([]*upeep80.Result, error) {

	bar := progressbar.NewOptions(
		len(sources),
		progressbar.OptionSetWriter(progressWriter),
		progressbar.OptionSetDescription("optimizing"),
		progressbar.OptionSetVisibility(options.progress),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	results := make([]*upeep80.Result, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(options.jobs)

	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			logger := c.env.logger.With().Str("file", src.name).Logger()

			result, err := upeep80.Optimize(
				src.code,
				upeep80.Options{
					Target:        options.target,
					MaxIterations: options.maxIterations,
					Strict:        options.strict,
					Disabled:      options.disabled,
					Canonical:     options.canonical,
					Logger:        &logger,
					OnRecordTrace: traceLogger(logger),
				},
			)
			if err != nil {
				return &sourceError{
					Name: src.name,
					Code: src.code,
					Err:  err,
				}
			}

			results[i] = result

			return bar.Add(1)
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	err = bar.Finish()
	if err != nil {
		return nil, err
	}

	return results, nil
}

// traceLogger returns a trace hook which logs traces at debug level.
func traceLogger(logger zerolog.Logger) peephole.OnRecordTraceFunc {
	return func(operationName string, duration time.Duration, attrs []attribute.KeyValue) {
		event := logger.Debug()
		if event == nil {
			return
		}
		event = event.Dur("duration", duration)
		for _, attr := range attrs {
			event = event.Str(string(attr.Key), attr.Value.Emit())
		}
		event.Msg(operationName)
	}
}

func (c *OptimizeCmd) writeOutputs(
	stdout io.Writer,
	sources []source,
	results []*upeep80.Result,
	options optimizeOptions,
) error {
	for i, result := range results {
		src := sources[i]

		switch {
		case options.diff:
			if src.code == result.Text {
				continue
			}
			_, err := fmt.Fprintf(stdout, "--- %s\n+++ %s\n%s\n", src.name, src.name, diff.Diff(src.code, result.Text))
			if err != nil {
				return err
			}

		case options.inPlace:
			if src.code == result.Text {
				continue
			}
			err := writeFilePreservingMode(src.name, []byte(result.Text))
			if err != nil {
				return err
			}
			c.env.logger.Info().Str("file", src.name).Msg("updated")

		case options.output != "":
			err := os.WriteFile(options.output, []byte(result.Text), 0644)
			if err != nil {
				return err
			}

		default:
			_, err := io.WriteString(stdout, result.Text)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func writeFilePreservingMode(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, info.Mode().Perm())
}

func (c *OptimizeCmd) writeReport(cmd *cobra.Command, summary *report.Summary, options optimizeOptions) (err error) {
	if options.reportFormat == report.FormatNone && options.query == "" {
		return nil
	}

	w := cmd.ErrOrStderr()
	if options.reportFile != "" {
		file, createErr := os.Create(options.reportFile)
		if createErr != nil {
			return createErr
		}
		defer func() {
			closeErr := file.Close()
			if err == nil {
				err = closeErr
			}
		}()
		w = file
	}

	useColor := c.env.useColor(w)

	if options.query != "" {
		results, err := report.Query(cmd.Context(), summary, options.query)
		if err != nil {
			return err
		}
		for _, result := range results {
			encoded, err := report.EncodeJSON(result, useColor)
			if err != nil {
				return err
			}
			_, err = w.Write(encoded)
			if err != nil {
				return err
			}
		}
		return nil
	}

	return report.Write(w, summary, options.reportFormat, useColor)
}
