// Package cliexec runs ANNCSU operations through the anncsu command line
// tool.
package cliexec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/anncsu/anncsu-update/executor"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const DefaultPath = "anncsu"

type Opt func(*Runner)

// WithEnv adds KEY=value pairs to the environment of every invocation.
func WithEnv(kv ...string) Opt {
	return func(r *Runner) {
		r.env = append(r.env, kv...)
	}
}

// WithDir sets the working directory of every invocation.
func WithDir(dir string) Opt {
	return func(r *Runner) {
		r.dir = dir
	}
}

// Runner is an executor.Executor backed by the anncsu binary.
type Runner struct {
	logger zerolog.Logger
	path   string
	dir    string
	env    []string
}

var _ executor.Executor = (*Runner)(nil)

func New(logger zerolog.Logger, path string, opts ...Opt) *Runner {
	if path == "" {
		path = DefaultPath
	}
	r := &Runner{logger: logger, path: path}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke runs op, capturing combined stdout and stderr. A non-zero exit is
// reported through the result; errors are reserved for failing to start the
// binary at all.
func (r *Runner) Invoke(ctx context.Context, op executor.Operation) (executor.Result, error) {
	cmd := exec.CommandContext(ctx, r.path, op.Args()...)
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	r.logger.Debug().Str("operation", op.Name()).Strs("args", op.Args()).Msgf("running %s", r.path)
	err := cmd.Run()
	res := executor.Result{Output: strings.TrimSpace(out.String())}
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitStatus = exitErr.ExitCode()
	case err != nil:
		return res, errors.Wrapf(err, "error running %s %s", r.path, op.Name())
	}
	r.logger.Debug().Str("operation", op.Name()).Int("exit_status", res.ExitStatus).Msgf("%s finished", r.path)
	return res, nil
}
