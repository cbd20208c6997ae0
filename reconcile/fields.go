package reconcile

import (
	"math"
	"strconv"
	"strings"

	"github.com/anncsu/anncsu-update/geodiff"
)

// Fixed column positions of the address table.
const (
	IdentifierColumn   = 0
	GeometryColumn     = 1
	SecondaryRefColumn = 2
)

// Fields are the values extracted from an entry. Absent fields are nil.
type Fields struct {
	ID           *int64
	SecondaryRef *int64
	Geometry     *string
}

// ExtractFields scans the changes of e once. Later changes to the same
// column overwrite earlier ones. Values that cannot be coerced leave the
// field absent.
func ExtractFields(e geodiff.Entry) Fields {
	var f Fields
	for _, c := range e.Changes {
		v := c.Latest()
		switch c.Column {
		case IdentifierColumn:
			f.ID = coerceInt(v)
		case GeometryColumn:
			if s, ok := v.AsString(); ok {
				f.Geometry = &s
			} else {
				f.Geometry = nil
			}
		case SecondaryRefColumn:
			f.SecondaryRef = coerceInt(v)
		}
	}
	return f
}

func coerceInt(v geodiff.Value) *int64 {
	switch v.Kind() {
	case geodiff.IntKind:
		i, _ := v.AsInt()
		return &i
	case geodiff.FloatKind:
		fl, _ := v.AsFloat()
		if math.IsInf(fl, 0) || math.IsNaN(fl) || fl != math.Trunc(fl) ||
			fl < math.MinInt64 || fl >= math.MaxInt64 {
			return nil
		}
		i := int64(fl)
		return &i
	case geodiff.StringKind:
		s, _ := v.AsString()
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil
		}
		return &i
	}
	return nil
}
