// Package registry describes lookups against the ANNCSU address register.
package registry

import (
	"context"

	"github.com/anncsu/anncsu-update/geometry"
)

// StatusOK is the status of a successful lookup.
const StatusOK = "OK"

// Record is an address access point as stored in the register.
type Record struct {
	CoordX          *float64
	CoordY          *float64
	EncodedGeometry string
}

// Coordinates returns the stored coordinate, which is only present when both
// axes are set.
func (r Record) Coordinates() (geometry.Coordinates, bool) {
	if r.CoordX == nil || r.CoordY == nil {
		return geometry.Coordinates{}, false
	}
	return geometry.Coordinates{X: *r.CoordX, Y: *r.CoordY}, true
}

// LookupResult is the register's answer to a lookup by identifier.
type LookupResult struct {
	Status  string
	Message string
	Records []Record
}

// Lookup queries the register by address identifier.
type Lookup interface {
	LookupByID(ctx context.Context, id int64) (LookupResult, error)
}

// Float returns a pointer to f, for building records.
func Float(f float64) *float64 {
	return &f
}
