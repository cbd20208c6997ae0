// Package geometry turns base64 encoded geometry payloads from a geodiff
// report into point coordinates.
package geometry

import (
	"encoding/base64"
	"math"

	"github.com/cockroachdb/errors"
)

var (
	ErrEncoding                = errors.New("invalid base64 geometry payload")
	ErrInvalidGeometry         = errors.New("invalid geometry")
	ErrUnsupportedGeometryType = errors.New("unsupported geometry type")
)

// PointType is the only geometry type Decode accepts.
const PointType = "Point"

// Coordinates is a point location in the native CRS of its geometry.
type Coordinates struct {
	X float64
	Y float64
}

// Within reports whether c and o differ by strictly less than threshold on
// both axes.
func (c Coordinates) Within(o Coordinates, threshold float64) bool {
	return math.Abs(c.X-o.X) < threshold && math.Abs(c.Y-o.Y) < threshold
}

// Handle is a decoded geometry.
type Handle interface {
	IsValid() bool
	GeometryType() string
	Coords() [][2]float64
}

// Decoder converts a raw geometry header into geometry handles.
type Decoder interface {
	DecodeHeader(raw []byte) ([]Handle, error)
}

// Decode resolves a base64 encoded geometry into the coordinates of its
// single point.
func Decode(encoded string, dec Decoder) (Coordinates, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Coordinates{}, errors.Mark(errors.Wrap(err, "error decoding base64 geometry"), ErrEncoding)
	}
	handles, err := dec.DecodeHeader(raw)
	if err != nil {
		return Coordinates{}, errors.Mark(errors.Wrap(err, "error decoding geometry header"), ErrInvalidGeometry)
	}
	if len(handles) == 0 {
		return Coordinates{}, errors.Mark(errors.New("geometry header decoded to nothing"), ErrInvalidGeometry)
	}
	h := handles[0]
	if !h.IsValid() {
		return Coordinates{}, ErrInvalidGeometry
	}
	if typ := h.GeometryType(); typ != PointType {
		return Coordinates{}, errors.Mark(
			errors.Newf("geometry is not a Point, got: %s", typ),
			ErrUnsupportedGeometryType,
		)
	}
	coords := h.Coords()
	if len(coords) == 0 {
		return Coordinates{}, errors.Mark(errors.New("point has no coordinates"), ErrInvalidGeometry)
	}
	return Coordinates{X: coords[0][0], Y: coords[0][1]}, nil
}
