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
	goerrors "errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/upeep80/upeep80/errors"
	"github.com/upeep80/upeep80/pretty"
)

const envPrefix = "UPEEP80"

type BaseCmd struct {
	Cmd *cobra.Command
}

func (t *BaseCmd) SetCmd(cmd *cobra.Command) {
	t.Cmd = cmd
}

func (t *BaseCmd) GetCmd() *cobra.Command {
	return t.Cmd
}

// environment is the state shared by the commands of one invocation.
type environment struct {
	viper  *viper.Viper
	logger zerolog.Logger
}

func newEnvironment() *environment {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &environment{
		viper:  v,
		logger: zerolog.Nop(),
	}
}

// useColor returns true if output written to the writer should be colored.
func (e *environment) useColor(w io.Writer) bool {
	if e.viper.GetBool("no-color") {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd())
}

// configure reads the configuration file, if any, binds the flags of the executed command,
// and sets up logging.
func (e *environment) configure(cmd *cobra.Command) error {
	err := e.viper.BindPFlags(cmd.Flags())
	if err != nil {
		return err
	}

	configPath := e.viper.GetString("config")
	if configPath != "" {
		e.viper.SetConfigFile(configPath)
		err = e.viper.ReadInConfig()
		if err != nil {
			return errors.NewDefaultUserError("failed to read configuration %s: %w", configPath, err)
		}
	}

	level, err := zerolog.ParseLevel(e.viper.GetString("log-level"))
	if err != nil {
		return errors.NewDefaultUserError("invalid log level: %w", err)
	}

	stderr := cmd.ErrOrStderr()
	e.logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        stderr,
		TimeFormat: time.TimeOnly,
		NoColor:    !e.useColor(stderr),
	}).
		Level(level).
		With().
		Timestamp().
		Logger()

	return nil
}

func NewRootCommand(env *environment) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "upeep80 <command> [arguments]",
		Short:         "upeep80 is a peephole optimizer for Intel 8080 and Z80 assembly.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       "upeep80 optimize --target z80 main.asm",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.configure(cmd)
		},
	}

	rootFlags := rootCmd.PersistentFlags()
	rootFlags.String("config", "", "configuration file (YAML)")
	rootFlags.String("log-level", zerolog.LevelWarnValue, "log level (trace, debug, info, warn, error)")
	rootFlags.Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(GetOptimizeCmd(env).GetCmd())
	rootCmd.AddCommand(GetPatternsCmd(env).GetCmd())
	rootCmd.AddCommand(GetCheckCmd(env).GetCmd())
	rootCmd.AddCommand(GetREPLCmd(env).GetCmd())
	rootCmd.AddCommand(GetVersionCmd().GetCmd())

	return rootCmd
}

// sourceError is an error which refers to an input source,
// so it can be printed together with the offending line.
type sourceError struct {
	Name string
	Code string
	Err  error
}

func (e *sourceError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

func (e *sourceError) Unwrap() error {
	return e.Err
}

// exitError ends the invocation with the given exit code.
// The details were already reported.
type exitError struct {
	Code int
}

func (e *exitError) Error() string {
	return "exit"
}

// Execute runs the command line, and returns the exit code.
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	env := newEnvironment()

	rootCmd := NewRootCommand(env)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if goerrors.As(err, &exitErr) {
		return exitErr.Code
	}

	printError(stderr, err, env.useColor(stderr))
	return 1
}

func printError(w io.Writer, err error, useColor bool) {
	printer := pretty.NewErrorPrettyPrinter(w, useColor)

	var printErr error
	var srcErr *sourceError
	if goerrors.As(err, &srcErr) {
		printErr = printer.PrettyPrintError(srcErr.Err, srcErr.Name, srcErr.Code)
	} else {
		printErr = printer.PrettyPrintError(err, "", "")
	}
	if printErr != nil {
		panic(printErr)
	}
}
