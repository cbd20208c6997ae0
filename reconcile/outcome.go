package reconcile

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrMissingIdentifier = errors.New("missing identifier")
	ErrMissingGeometry   = errors.New("no geometry present")
	ErrUnsupportedInsert = errors.New("insert with unassigned identifier not supported")
	ErrUnknownActionKind = errors.New("unknown action type")
	ErrLookupFailed      = errors.New("registry lookup failed")
	ErrRecordNotFound    = errors.New("no record found")
	ErrAmbiguousRecord   = errors.New("multiple records found")
	ErrCommandFailed     = errors.New("anncsu command failed")
	ErrAuthentication    = errors.New("authentication failed")
	ErrReportLoad        = errors.New("could not load geodiff report")
)

// Reason names the terminal state an entry ended in.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonUpdated
	ReasonUnchanged
	ReasonDeleteNoop
	ReasonDryRun
	ReasonMissingIdentifier
	ReasonMissingGeometry
	ReasonInvalidGeometry
	ReasonUnsupportedInsert
	ReasonUnknownActionKind
	ReasonLookupFailed
	ReasonRecordNotFound
	ReasonAmbiguousRecord
	ReasonCommandFailed
)

var reasonNames = map[Reason]string{
	ReasonUnknown:           "unknown",
	ReasonUpdated:           "updated",
	ReasonUnchanged:         "unchanged",
	ReasonDeleteNoop:        "delete_noop",
	ReasonDryRun:            "dry_run",
	ReasonMissingIdentifier: "missing_identifier",
	ReasonMissingGeometry:   "missing_geometry",
	ReasonInvalidGeometry:   "invalid_geometry",
	ReasonUnsupportedInsert: "unsupported_insert",
	ReasonUnknownActionKind: "unknown_action_kind",
	ReasonLookupFailed:      "lookup_failed",
	ReasonRecordNotFound:    "record_not_found",
	ReasonAmbiguousRecord:   "ambiguous_record",
	ReasonCommandFailed:     "command_failed",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// EntryOutcome is the result of processing one entry.
type EntryOutcome struct {
	Kind    string
	Table   string
	ID      *int64
	Success bool
	Reason  Reason
	Err     error
}

// ErrorMessage is the human readable reason of a failed outcome, or the
// empty string on success.
func (o EntryOutcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

func (o EntryOutcome) String() string {
	if o.Success {
		return fmt.Sprintf("%s %s: %s", o.Kind, o.Table, o.Reason)
	}
	return fmt.Sprintf("%s %s: %s", o.Kind, o.Table, o.ErrorMessage())
}
