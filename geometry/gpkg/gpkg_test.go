package gpkg

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"

	"github.com/anncsu/anncsu-update/geometry"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

func blob(t *testing.T, flags byte, srsID int32, envelope []float64, g geom.T) []byte {
	var order binary.ByteOrder = binary.BigEndian
	if flags&flagLittleEndian != 0 {
		order = binary.LittleEndian
	}
	ret := []byte{'G', 'P', 0, flags, 0, 0, 0, 0}
	order.PutUint32(ret[4:8], uint32(srsID))
	for _, v := range envelope {
		b := make([]byte, 8)
		order.PutUint64(b, math.Float64bits(v))
		ret = append(ret, b...)
	}
	body, err := wkb.Marshal(g, wkb.NDR)
	require.NoError(t, err)
	return append(ret, body...)
}

func TestDecodeFixtures(t *testing.T) {
	for _, tc := range []struct {
		encoded  string
		srsID    int32
		expected geometry.Coordinates
	}{
		{
			encoded:  "R1AAAeYQAAABAQAAAPBDGq/kSde/+HS2Feb94T8=",
			srsID:    4326,
			expected: geometry.Coordinates{X: -0.3638850889192886, Y: 0.5622435020519836},
		},
		{
			encoded:  "R1AAAeYQAAABAQAAAMp+uos0te2/hISLbYZyzj8=",
			srsID:    4326,
			expected: geometry.Coordinates{X: -0.928369782359334, Y: 0.23787002896191123},
		},
		{
			encoded:  "R1AAAQAAAAABAQAAAAAAAICcwitAAAAAwInzREA=",
			srsID:    0,
			expected: geometry.Coordinates{X: 13.88010025024414, Y: 41.90264129638672},
		},
		{
			encoded:  "R1AAAQAAAAABAQAAAObiXKWtwitAXt3+bojzREA=",
			srsID:    0,
			expected: geometry.Coordinates{X: 13.880231063450491, Y: 41.90260112232748},
		},
	} {
		t.Run(tc.encoded, func(t *testing.T) {
			c, err := geometry.Decode(tc.encoded, Decoder{})
			require.NoError(t, err)
			require.Equal(t, tc.expected, c)

			raw, err := base64.StdEncoding.DecodeString(tc.encoded)
			require.NoError(t, err)
			handles, err := Decoder{}.DecodeHeader(raw)
			require.NoError(t, err)
			require.Len(t, handles, 1)
			require.Equal(t, tc.srsID, handles[0].(*Handle).SRSID())
		})
	}
}

func TestDecodeHeader(t *testing.T) {
	point := geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{12.5, 41.9})
	line := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{0, 0}, {1, 1}})
	pointZ := geom.NewPoint(geom.XYZ).MustSetCoords(geom.Coord{1, 2, 3})

	for _, tc := range []struct {
		desc        string
		raw         []byte
		valid       bool
		typ         string
		coords      [][2]float64
		envelopeLen int
		err         string
	}{
		{
			desc:   "little endian point",
			raw:    blob(t, flagLittleEndian, 4326, nil, point),
			valid:  true,
			typ:    "Point",
			coords: [][2]float64{{12.5, 41.9}},
		},
		{
			desc:   "big endian header",
			raw:    blob(t, 0, 3003, nil, point),
			valid:  true,
			typ:    "Point",
			coords: [][2]float64{{12.5, 41.9}},
		},
		{
			desc:        "xy envelope",
			raw:         blob(t, flagLittleEndian|1<<1, 4326, []float64{12.5, 12.5, 41.9, 41.9}, point),
			valid:       true,
			typ:         "Point",
			coords:      [][2]float64{{12.5, 41.9}},
			envelopeLen: 4,
		},
		{
			desc:        "xyzm envelope",
			raw:         blob(t, flagLittleEndian|4<<1, 4326, []float64{1, 1, 2, 2, 3, 3, 0, 0}, pointZ),
			valid:       true,
			typ:         "Point",
			coords:      [][2]float64{{1, 2}},
			envelopeLen: 8,
		},
		{
			desc:   "line string",
			raw:    blob(t, flagLittleEndian, 4326, nil, line),
			valid:  true,
			typ:    "LineString",
			coords: [][2]float64{{0, 0}, {1, 1}},
		},
		{
			desc:   "empty flag",
			raw:    blob(t, flagLittleEndian|flagEmpty, 4326, nil, point),
			valid:  false,
			typ:    "Point",
			coords: [][2]float64{{12.5, 41.9}},
		},
		{
			desc: "too short",
			raw:  []byte{'G', 'P', 0},
			err:  "geopackage blob too short",
		},
		{
			desc: "bad magic",
			raw:  []byte{'X', 'P', 0, 1, 0, 0, 0, 0, 1},
			err:  "missing geopackage magic",
		},
		{
			desc: "bad version",
			raw:  []byte{'G', 'P', 1, 1, 0, 0, 0, 0, 1},
			err:  "unsupported geopackage version 1",
		},
		{
			desc: "extended",
			raw:  []byte{'G', 'P', 0, flagExtended | flagLittleEndian, 0, 0, 0, 0, 1},
			err:  "extended geopackage geometries",
		},
		{
			desc: "bad envelope indicator",
			raw:  []byte{'G', 'P', 0, 5<<1 | flagLittleEndian, 0, 0, 0, 0, 1},
			err:  "invalid envelope contents indicator 5",
		},
		{
			desc: "truncated envelope",
			raw:  []byte{'G', 'P', 0, 1<<1 | flagLittleEndian, 0, 0, 0, 0, 1, 2, 3},
			err:  "truncated in envelope",
		},
		{
			desc: "bad wkb",
			raw:  []byte{'G', 'P', 0, flagLittleEndian, 0, 0, 0, 0, 1, 99},
			err:  "error decoding wkb body",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			handles, err := Decoder{}.DecodeHeader(tc.raw)
			if tc.err != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			require.Len(t, handles, 1)
			h := handles[0]
			require.Equal(t, tc.valid, h.IsValid())
			require.Equal(t, tc.typ, h.GeometryType())
			require.Equal(t, tc.coords, h.Coords())
			require.Len(t, h.(*Handle).header.Envelope, tc.envelopeLen)
		})
	}
}

func TestDecodeRejectsLineString(t *testing.T) {
	line := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{0, 0}, {1, 1}})
	encoded := base64.StdEncoding.EncodeToString(blob(t, flagLittleEndian, 4326, nil, line))
	_, err := geometry.Decode(encoded, Decoder{})
	require.True(t, errors.Is(err, geometry.ErrUnsupportedGeometryType))
	require.Contains(t, err.Error(), "LineString")
}

func TestDecodeNaNPointIsInvalid(t *testing.T) {
	point := geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{math.NaN(), 1})
	encoded := base64.StdEncoding.EncodeToString(blob(t, flagLittleEndian, 4326, nil, point))
	_, err := geometry.Decode(encoded, Decoder{})
	require.True(t, errors.Is(err, geometry.ErrInvalidGeometry))
}
