// Package gpkg decodes GeoPackage binary geometry blobs, the encoding geodiff
// uses for geometry columns.
package gpkg

import (
	"encoding/binary"
	"math"

	"github.com/anncsu/anncsu-update/geometry"
	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

const (
	headerSize = 8

	flagLittleEndian = 1 << 0
	flagEnvelopeMask = 0x0e
	flagEmpty        = 1 << 4
	flagExtended     = 1 << 5
)

// envelopeSizes is indexed by the envelope contents indicator.
var envelopeSizes = [...]int{0, 32, 48, 48, 64}

// Header is the fixed part of a GeoPackage geometry blob.
type Header struct {
	Version uint8
	Empty   bool
	SRSID   int32
	// Envelope holds the bounding box values in header order
	// (minx, maxx, miny, maxy, then optional z and m ranges).
	Envelope []float64
}

// ParseHeader splits a GeoPackage blob into its header and WKB body.
func ParseHeader(raw []byte) (Header, []byte, error) {
	if len(raw) < headerSize {
		return Header{}, nil, errors.Newf("geopackage blob too short: %d bytes", len(raw))
	}
	if raw[0] != 'G' || raw[1] != 'P' {
		return Header{}, nil, errors.Newf("missing geopackage magic, got %q", raw[:2])
	}
	h := Header{Version: raw[2]}
	if h.Version != 0 {
		return Header{}, nil, errors.Newf("unsupported geopackage version %d", h.Version)
	}
	flags := raw[3]
	if flags&flagExtended != 0 {
		return Header{}, nil, errors.Newf("extended geopackage geometries are not supported")
	}
	var order binary.ByteOrder = binary.BigEndian
	if flags&flagLittleEndian != 0 {
		order = binary.LittleEndian
	}
	h.Empty = flags&flagEmpty != 0
	h.SRSID = int32(order.Uint32(raw[4:8]))

	indicator := int(flags&flagEnvelopeMask) >> 1
	if indicator >= len(envelopeSizes) {
		return Header{}, nil, errors.Newf("invalid envelope contents indicator %d", indicator)
	}
	end := headerSize + envelopeSizes[indicator]
	if len(raw) < end {
		return Header{}, nil, errors.Newf("geopackage blob truncated in envelope: %d bytes, need %d", len(raw), end)
	}
	for off := headerSize; off < end; off += 8 {
		h.Envelope = append(h.Envelope, math.Float64frombits(order.Uint64(raw[off:off+8])))
	}
	return h, raw[end:], nil
}

// Decoder implements geometry.Decoder for GeoPackage blobs.
type Decoder struct{}

var _ geometry.Decoder = Decoder{}

func (Decoder) DecodeHeader(raw []byte) ([]geometry.Handle, error) {
	h, body, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	g, err := wkb.Unmarshal(body)
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding wkb body")
	}
	return []geometry.Handle{&Handle{header: h, g: g}}, nil
}

// Handle is a decoded GeoPackage geometry.
type Handle struct {
	header Header
	g      geom.T
}

var _ geometry.Handle = (*Handle)(nil)

func (h *Handle) SRSID() int32 {
	return h.header.SRSID
}

func (h *Handle) Geom() geom.T {
	return h.g
}

func (h *Handle) IsValid() bool {
	if h.header.Empty {
		return false
	}
	if gc, ok := h.g.(*geom.GeometryCollection); ok {
		return gc.NumGeoms() > 0
	}
	flat := h.g.FlatCoords()
	if len(flat) == 0 {
		return false
	}
	for _, v := range flat {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (h *Handle) GeometryType() string {
	switch h.g.(type) {
	case *geom.Point:
		return "Point"
	case *geom.LineString:
		return "LineString"
	case *geom.Polygon:
		return "Polygon"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.MultiLineString:
		return "MultiLineString"
	case *geom.MultiPolygon:
		return "MultiPolygon"
	case *geom.GeometryCollection:
		return "GeometryCollection"
	}
	return "Unknown"
}

// Coords returns the x/y pairs of the geometry in order. Geometry
// collections have no coordinates of their own.
func (h *Handle) Coords() [][2]float64 {
	if _, ok := h.g.(*geom.GeometryCollection); ok {
		return nil
	}
	flat := h.g.FlatCoords()
	stride := h.g.Stride()
	if stride < 2 {
		return nil
	}
	ret := make([][2]float64, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		ret = append(ret, [2]float64{flat[i], flat[i+1]})
	}
	return ret
}
