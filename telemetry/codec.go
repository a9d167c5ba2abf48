package telemetry

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jd3nn1s/racelink/bitfield"
)

const frameName = "telemetry"

// ErrWrongLength is returned, wrapped in a *bitfield.DecodeError, when a
// buffer is not exactly one frame long.
var ErrWrongLength = bitfield.ErrWrongLength

// Codec encodes and decodes frames of one layout version. It holds no
// per-frame state and may be shared between goroutines.
type Codec struct {
	layout   *Layout
	observer bitfield.ClampObserver
	log      *log.Entry
}

type Option func(*Codec)

// WithClampObserver reports every value saturated during Encode.
func WithClampObserver(o bitfield.ClampObserver) Option {
	return func(c *Codec) {
		c.observer = o
	}
}

func WithLogger(entry *log.Entry) Option {
	return func(c *Codec) {
		c.log = entry
	}
}

func NewCodec(v Version, opts ...Option) (*Codec, error) {
	l, err := LayoutFor(v)
	if err != nil {
		return nil, err
	}
	c := &Codec{
		layout: l,
		log:    log.WithField("codec", frameName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Codec) Version() Version {
	return c.layout.Version
}

func (c *Codec) Layout() *Layout {
	return c.layout
}

// Size is the exact length of an encoded frame.
func (c *Codec) Size() int {
	return c.layout.Size()
}

func (c *Codec) Encode(f *Frame) []byte {
	buf := make([]byte, c.Size())
	// buf is sized by the layout so this cannot fail
	_ = c.EncodeTo(buf, f)
	return buf
}

// EncodeTo writes f into dst, which must be exactly Size bytes long.
func (c *Codec) EncodeTo(dst []byte, f *Frame) error {
	if len(dst) != c.Size() {
		return errors.Errorf("telemetry encode buffer is %d bytes, want %d", len(dst), c.Size())
	}
	words := make([]uint16, len(c.layout.Words))
	for _, fl := range c.layout.fields {
		value := fl.def.get(f)
		raw, clamped := bitfield.Encode(value, fl.def.width, fl.def.signed)
		if clamped {
			c.clamped(fl.def, value, raw)
		}
		parts := bitfield.Split(raw, fl.widths...)
		for i, p := range fl.parts {
			words[p.word] |= uint16(parts[i] << p.offset)
		}
	}

	pos := 0
	for _, w := range words {
		binary.LittleEndian.PutUint16(dst[pos:], w)
		pos += 2
	}
	for _, fd := range c.layout.floats {
		binary.LittleEndian.PutUint32(dst[pos:], math.Float32bits(fd.get(f)))
		pos += 4
	}
	return nil
}

func (c *Codec) clamped(def *fieldDef, value int64, raw uint32) {
	stored := bitfield.Decode(raw, def.width, def.signed)
	c.log.WithField("field", def.name).
		WithField("value", value).
		WithField("stored", stored).
		Debug("value out of range, clamped")
	if c.observer != nil {
		c.observer.Clamped(def.name, value, stored)
	}
}

// Decode never fails on content: every bit pattern is a valid value. Only a
// buffer of the wrong size is rejected.
func (c *Codec) Decode(b []byte) (*Frame, error) {
	if err := bitfield.CheckLength(frameName, len(b), c.Size()); err != nil {
		return nil, err
	}
	words := make([]uint16, len(c.layout.Words))
	pos := 0
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(b[pos:])
		pos += 2
	}

	f := &Frame{}
	parts := make([]uint32, 0, Hops)
	for _, fl := range c.layout.fields {
		parts = parts[:0]
		for _, p := range fl.parts {
			parts = append(parts, (uint32(words[p.word])>>p.offset)&bitfield.Mask(p.width))
		}
		raw := bitfield.Join(parts, fl.widths...)
		fl.def.set(f, bitfield.Decode(raw, fl.def.width, fl.def.signed))
	}
	for _, fd := range c.layout.floats {
		fd.set(f, math.Float32frombits(binary.LittleEndian.Uint32(b[pos:])))
		pos += 4
	}
	return f, nil
}
