package report

import "github.com/anncsu/anncsu-update/geometry"

type ReportableObject interface{}

type StatusReport struct {
	Info string
}

// CoordinateDrift is reported when the local coordinate of an address is
// further from the register's than the configured threshold.
type CoordinateDrift struct {
	Table     string
	ID        int64
	Local     geometry.Coordinates
	Registry  geometry.Coordinates
	Threshold float64
}

// CoordinatesMatch is reported when no update is needed.
type CoordinatesMatch struct {
	Table       string
	ID          int64
	Coordinates geometry.Coordinates
}

// CommandIssued is reported after an operation ran against the register.
type CommandIssued struct {
	Table      string
	ID         int64
	Operation  string
	Args       []string
	ExitStatus int
	Output     string
	DryRun     bool
}

// EntryResult is the terminal state of one geodiff entry.
type EntryResult struct {
	Index   int
	Table   string
	Kind    string
	ID      *int64
	Success bool
	Reason  string
	Err     error
}

// RunSummary is reported once all entries of a run have been handled.
type RunSummary struct {
	Entries int
	Failed  int
}
