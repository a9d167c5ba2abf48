package racestate

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/jd3nn1s/racelink/bitfield"
)

const frameName = "racestate"

var ErrWrongLength = bitfield.ErrWrongLength

var (
	carWord = bitfield.Word{
		Name: "CAR",
		Size: bitfield.Word32,
		Segments: []bitfield.Segment{
			{Name: "bestLap", Width: 10},
			{Name: "currentLap", Width: 10},
			{Name: "position", Width: 5},
			{Name: "laps", Width: 7},
		},
	}
	flagWord = bitfield.Word{
		Name: "FLAG",
		Size: bitfield.Word16,
		Segments: []bitfield.Segment{
			{Name: "flag", Width: 2},
			{Name: "reserved", Width: 14},
		},
	}

	bestLapField, currentLapField, positionField, lapsField = fieldsOf4(carWord)
	flagField, reservedField                                = fieldsOf2(flagWord)
)

func fieldsOf4(w bitfield.Word) (a, b, c, d bitfield.Field) {
	f := w.Fields()
	return f[0], f[1], f[2], f[3]
}

func fieldsOf2(w bitfield.Word) (a, b bitfield.Field) {
	f := w.Fields()
	return f[0], f[1]
}

func init() {
	for _, w := range []bitfield.Word{carWord, flagWord} {
		if err := w.Validate(); err != nil {
			panic(err)
		}
	}
}

type Codec struct {
	observer bitfield.ClampObserver
	log      *log.Entry
}

type Option func(*Codec)

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

func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		log: log.WithField("codec", frameName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) Size() int {
	return FrameSize
}

func (c *Codec) Encode(f *Frame) []byte {
	buf := make([]byte, FrameSize)
	for i, car := range f.Cars {
		number := car.Number
		if len(number) > CarNumberWidth {
			number = truncate(number, CarNumberWidth)
			c.clamped("carNumber", int64(len(car.Number)), int64(len(number)))
		}
		copy(buf[i*CarNumberWidth:], number)
	}

	pos := Slots * CarNumberWidth
	for _, car := range f.Cars {
		binary.LittleEndian.PutUint32(buf[pos:], c.packCar(car))
		pos += carWordSize
	}

	var word uint32
	word |= c.pack(flagField, int64(f.Flag))
	word |= c.pack(reservedField, int64(f.Reserved))
	binary.LittleEndian.PutUint16(buf[pos:], uint16(word))
	return buf
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (c *Codec) packCar(car Car) uint32 {
	return c.pack(bestLapField, int64(car.BestLap)) |
		c.pack(currentLapField, int64(car.CurrentLap)) |
		c.pack(positionField, int64(car.Position)) |
		c.pack(lapsField, int64(car.Laps))
}

func (c *Codec) pack(f bitfield.Field, value int64) uint32 {
	v, clamped := f.Pack(value)
	if clamped {
		c.clamped(f.Name, value, f.Unpack(v))
	}
	return v
}

func (c *Codec) clamped(field string, value, stored int64) {
	c.log.WithField("field", field).
		WithField("value", value).
		WithField("stored", stored).
		Debug("value out of range, clamped")
	if c.observer != nil {
		c.observer.Clamped(field, value, stored)
	}
}

// Decode unpacks every slot independently. A zeroed slot is an empty car,
// not an error.
func (c *Codec) Decode(b []byte) (*Frame, error) {
	if err := bitfield.CheckLength(frameName, len(b), FrameSize); err != nil {
		return nil, err
	}
	f := &Frame{}
	for i := range f.Cars {
		raw := b[i*CarNumberWidth : (i+1)*CarNumberWidth]
		f.Cars[i].Number = string(bytes.TrimRight(raw, "\x00 "))
	}

	pos := Slots * CarNumberWidth
	for i := range f.Cars {
		word := binary.LittleEndian.Uint32(b[pos:])
		f.Cars[i].BestLap = uint16(bestLapField.Unpack(word))
		f.Cars[i].CurrentLap = uint16(currentLapField.Unpack(word))
		f.Cars[i].Position = uint8(positionField.Unpack(word))
		f.Cars[i].Laps = uint8(lapsField.Unpack(word))
		pos += carWordSize
	}

	word := uint32(binary.LittleEndian.Uint16(b[pos:]))
	f.Flag = Flag(flagField.Unpack(word))
	f.Reserved = uint16(reservedField.Unpack(word))
	return f, nil
}
