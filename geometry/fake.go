package geometry

import (
	"encoding/base64"

	"github.com/cockroachdb/errors"
)

// FakeHandle is a Handle with fixed properties.
type FakeHandle struct {
	Valid  bool
	Type   string
	Points [][2]float64
}

var _ Handle = FakeHandle{}

// FakePoint returns a valid point handle at (x, y).
func FakePoint(x, y float64) FakeHandle {
	return FakeHandle{Valid: true, Type: PointType, Points: [][2]float64{{x, y}}}
}

func (h FakeHandle) IsValid() bool        { return h.Valid }
func (h FakeHandle) GeometryType() string { return h.Type }
func (h FakeHandle) Coords() [][2]float64 { return h.Points }

// FakeDecoder returns handles registered against the raw payload bytes.
// Payloads that were never registered decode to Default, or fail when
// Default is nil.
type FakeDecoder struct {
	handles map[string][]Handle
	Default []Handle
	Err     error
}

var _ Decoder = (*FakeDecoder)(nil)

func NewFakeDecoder() *FakeDecoder {
	return &FakeDecoder{handles: make(map[string][]Handle)}
}

// Register makes the base64 payload encoded decode into handles.
func (d *FakeDecoder) Register(encoded string, handles ...Handle) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return err
	}
	if d.handles == nil {
		d.handles = make(map[string][]Handle)
	}
	d.handles[string(raw)] = handles
	return nil
}

func (d *FakeDecoder) DecodeHeader(raw []byte) ([]Handle, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	if h, ok := d.handles[string(raw)]; ok {
		return h, nil
	}
	if d.Default != nil {
		return d.Default, nil
	}
	return nil, errors.Newf("fake decoder has no geometry for %x", raw)
}
