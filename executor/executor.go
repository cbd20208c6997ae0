// Package executor describes the commands issued to the ANNCSU command line
// tool.
package executor

import (
	"context"
	"strconv"
	"strings"
)

// Operation is a command understood by the ANNCSU tool.
type Operation interface {
	// Name is a short human readable name, e.g. "coordinate update".
	Name() string
	// Args is the full argument list passed to the tool.
	Args() []string
}

// Login authenticates the tool against the given API type.
type Login struct {
	APIType string
}

func (Login) Name() string { return "auth login" }

func (l Login) Args() []string {
	return []string{"auth", "login", "--api", l.APIType}
}

// CoordinateUpdate moves the access point with the given identifier to (X, Y).
type CoordinateUpdate struct {
	MunicipalityCode string
	ID               int64
	X                float64
	Y                float64
	Method           string
}

func (CoordinateUpdate) Name() string { return "coordinate update" }

func (u CoordinateUpdate) Args() []string {
	return []string{
		"coordinate", "update",
		"--codcom", u.MunicipalityCode,
		"--progr-civico", strconv.FormatInt(u.ID, 10),
		"--x", FormatCoordinate(u.X),
		"--y", FormatCoordinate(u.Y),
		"--metodo", u.Method,
	}
}

// FormatCoordinate renders f as the shortest decimal that reads back as f.
func FormatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Result is the outcome of running an operation.
type Result struct {
	ExitStatus int
	Output     string
}

// Executor runs operations. An error means the operation could not be run
// at all; a failed run is reported through Result.ExitStatus.
type Executor interface {
	Invoke(ctx context.Context, op Operation) (Result, error)
}

// Invocation is an operation seen by a Recorder.
type Invocation struct {
	Name string
	Args []string
}

func (i Invocation) String() string {
	return strings.Join(i.Args, " ")
}

// Recorder is an Executor that records operations without running them.
// Results are handed out in order and cycle; with no Results every
// invocation succeeds with output "OK".
type Recorder struct {
	Invocations []Invocation
	Results     []Result
	Err         error
	calls       int
}

var _ Executor = (*Recorder)(nil)

func (r *Recorder) Invoke(_ context.Context, op Operation) (Result, error) {
	r.Invocations = append(r.Invocations, Invocation{Name: op.Name(), Args: op.Args()})
	if r.Err != nil {
		return Result{}, r.Err
	}
	if len(r.Results) == 0 {
		return Result{Output: "OK"}, nil
	}
	res := r.Results[r.calls%len(r.Results)]
	r.calls++
	return res, nil
}

// Named returns the recorded invocations with the given operation name.
func (r *Recorder) Named(name string) []Invocation {
	var ret []Invocation
	for _, inv := range r.Invocations {
		if inv.Name == name {
			ret = append(ret, inv)
		}
	}
	return ret
}
