package geodiff

import (
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
)

var (
	// ErrMalformedInput marks report text that is not valid JSON.
	ErrMalformedInput = errors.New("malformed geodiff report")
	// ErrSchemaViolation marks valid JSON that does not describe a geodiff report.
	ErrSchemaViolation = errors.New("geodiff report schema violation")
)

// ActionKind is the row-level operation an entry describes.
type ActionKind int

const (
	Insert ActionKind = iota + 1
	Update
	Delete
)

// ActionKinds lists every valid kind in the order schemas are written.
var ActionKinds = []ActionKind{Delete, Update, Insert}

func (k ActionKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return "ActionKind(" + strconv.Itoa(int(k)) + ")"
}

// ParseActionKind maps a geodiff "type" literal to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch s {
	case "insert":
		return Insert, nil
	case "update":
		return Update, nil
	case "delete":
		return Delete, nil
	}
	return 0, errors.Mark(
		errors.Newf("invalid entry type %q, expected one of insert, update, delete", s),
		ErrSchemaViolation,
	)
}

func (k ActionKind) MarshalJSON() ([]byte, error) {
	switch k {
	case Insert, Update, Delete:
		return json.Marshal(k.String())
	}
	return nil, errors.AssertionFailedf("cannot encode %s", k)
}

// ColumnChange is the before and after value of a single column.
type ColumnChange struct {
	Column int
	Old    Value
	New    Value
}

// Latest returns New, falling back to Old when New is null.
func (c ColumnChange) Latest() Value {
	if !c.New.IsNull() {
		return c.New
	}
	return c.Old
}

type columnChangeJSON struct {
	Column int    `json:"column"`
	Old    *Value `json:"old,omitempty"`
	New    *Value `json:"new,omitempty"`
}

func (c ColumnChange) MarshalJSON() ([]byte, error) {
	out := columnChangeJSON{Column: c.Column}
	if !c.Old.IsNull() {
		old := c.Old
		out.Old = &old
	}
	if !c.New.IsNull() {
		n := c.New
		out.New = &n
	}
	return json.Marshal(out)
}

// Entry is one changed row of one table.
type Entry struct {
	Table   string
	Kind    ActionKind
	Changes []ColumnChange
}

type entryJSON struct {
	Table   string         `json:"table"`
	Kind    ActionKind     `json:"type"`
	Changes []ColumnChange `json:"changes"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	changes := e.Changes
	if changes == nil {
		changes = []ColumnChange{}
	}
	return json.Marshal(entryJSON{Table: e.Table, Kind: e.Kind, Changes: changes})
}

// Report is a parsed geodiff change report.
type Report struct {
	Entries []Entry
}

func (r Report) MarshalJSON() ([]byte, error) {
	entries := r.Entries
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(struct {
		Geodiff []Entry `json:"geodiff"`
	}{Geodiff: entries})
}

// Serialize encodes the report back into geodiff JSON.
func (r Report) Serialize(indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}

type rawReport struct {
	Geodiff *[]rawEntry `json:"geodiff"`
}

type rawEntry struct {
	Table   *string      `json:"table"`
	Type    *string      `json:"type"`
	Changes *[]rawChange `json:"changes"`
}

type rawChange struct {
	Column json.RawMessage `json:"column"`
	Old    Value           `json:"old"`
	New    Value           `json:"new"`
}

// Parse decodes and validates a geodiff report.
func Parse(text []byte) (Report, error) {
	if !json.Valid(text) {
		return Report{}, errors.Mark(errors.Newf("report is not valid JSON"), ErrMalformedInput)
	}
	var raw rawReport
	if err := json.Unmarshal(text, &raw); err != nil {
		return Report{}, errors.Mark(errors.Wrapf(err, "report does not match the geodiff layout"), ErrSchemaViolation)
	}
	if raw.Geodiff == nil {
		return Report{}, schemaViolationf("missing required key %q", "geodiff")
	}
	ret := Report{Entries: make([]Entry, 0, len(*raw.Geodiff))}
	for i, re := range *raw.Geodiff {
		e, err := re.toEntry()
		if err != nil {
			return Report{}, errors.Wrapf(err, "entry %d", i)
		}
		ret.Entries = append(ret.Entries, e)
	}
	return ret, nil
}

func (re rawEntry) toEntry() (Entry, error) {
	if re.Table == nil || *re.Table == "" {
		return Entry{}, schemaViolationf("missing table name")
	}
	if re.Type == nil {
		return Entry{}, schemaViolationf("missing entry type")
	}
	kind, err := ParseActionKind(*re.Type)
	if err != nil {
		return Entry{}, err
	}
	if re.Changes == nil {
		return Entry{}, schemaViolationf("missing changes")
	}
	e := Entry{
		Table:   *re.Table,
		Kind:    kind,
		Changes: make([]ColumnChange, 0, len(*re.Changes)),
	}
	for i, rc := range *re.Changes {
		if len(rc.Column) == 0 || string(rc.Column) == "null" {
			return Entry{}, schemaViolationf("change %d: missing column", i)
		}
		col, err := strconv.Atoi(string(rc.Column))
		if err != nil {
			return Entry{}, schemaViolationf("change %d: column must be an integer, got %s", i, rc.Column)
		}
		if col < 0 {
			return Entry{}, schemaViolationf("change %d: column must not be negative, got %d", i, col)
		}
		e.Changes = append(e.Changes, ColumnChange{Column: col, Old: rc.Old, New: rc.New})
	}
	return e, nil
}

func schemaViolationf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrSchemaViolation)
}
