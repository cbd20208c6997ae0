package geodiff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ValueKind is the primitive type held by a Value.
type ValueKind int

const (
	NullKind ValueKind = iota
	IntKind
	FloatKind
	StringKind
	BoolKind
)

func (k ValueKind) String() string {
	switch k {
	case NullKind:
		return "null"
	case IntKind:
		return "integer"
	case FloatKind:
		return "float"
	case StringKind:
		return "string"
	case BoolKind:
		return "boolean"
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Value is a single column value in a geodiff change. The zero Value is null.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	b    bool
}

func Null() Value { return Value{} }
func Int(i int64) Value { return Value{kind: IntKind, i: i} }
func Float(f float64) Value { return Value{kind: FloatKind, f: f} }
func String(s string) Value { return Value{kind: StringKind, s: s} }
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }
func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool { return v.kind == NullKind }

func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == IntKind
}

func (v Value) AsFloat() (float64, bool) {
	return v.f, v.kind == FloatKind
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == StringKind
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == BoolKind
}

// String renders the value for log output.
func (v Value) String() string {
	switch v.kind {
	case IntKind:
		return strconv.FormatInt(v.i, 10)
	case FloatKind:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case StringKind:
		return v.s
	case BoolKind:
		return strconv.FormatBool(v.b)
	}
	return "null"
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case NullKind:
		return []byte("null"), nil
	case IntKind:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case FloatKind:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, errors.Newf("cannot encode non-finite float %v", v.f)
		}
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		// Floats must not read back as integers.
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	case StringKind:
		return json.Marshal(v.s)
	case BoolKind:
		return []byte(strconv.FormatBool(v.b)), nil
	}
	return nil, errors.AssertionFailedf("unknown value kind %d", v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch raw := raw.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Bool(raw)
	case string:
		*v = String(raw)
	case json.Number:
		s := raw.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				*v = Int(i)
				return nil
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid number %s", s)
		}
		*v = Float(f)
	default:
		return errors.Newf("value must be a primitive, got %T", raw)
	}
	return nil
}
