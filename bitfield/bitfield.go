// Package bitfield packs integer sub-fields into fixed-width container words.
//
// Signed fields use sign-magnitude: the top bit of the field is the sign and
// the remaining bits hold the absolute value. Values that do not fit are
// saturated to the largest representable magnitude instead of wrapping, so a
// bad reading can never bleed into the neighbouring field of the same word.
package bitfield

import (
	"github.com/pkg/errors"
)

const (
	Word16 uint = 16
	Word32 uint = 32
)

type Field struct {
	Name   string
	Width  uint
	Offset uint
	Signed bool
}

// Mask returns the low width bits set.
func Mask(width uint) uint32 {
	if width >= 32 {
		return 0xFFFFFFFF
	}
	return uint32(1)<<width - 1
}

func maxMagnitude(width uint, signed bool) int64 {
	if signed {
		width--
	}
	return int64(uint64(1)<<width - 1)
}

// Encode converts value to its raw width-bit representation. The second
// return value reports whether value had to be clamped. Containers are at
// most 32 bits, so a width of 0 or above 32 stores nothing: it encodes as 0
// and always reports a clamp.
func Encode(value int64, width uint, signed bool) (uint32, bool) {
	if width == 0 || width > Word32 {
		return 0, true
	}
	max := maxMagnitude(width, signed)
	if !signed {
		switch {
		case value < 0:
			return 0, true
		case value > max:
			return uint32(max), true
		}
		return uint32(value), false
	}

	neg := value < 0
	mag := value
	if neg {
		mag = -value
	}
	clamped := false
	// -MinInt64 overflows back to a negative number
	if mag > max || mag < 0 {
		mag = max
		clamped = true
	}
	raw := uint32(mag)
	if neg && mag != 0 {
		raw |= uint32(1) << (width - 1)
	}
	return raw, clamped
}

// Decode is the inverse of Encode. Bits above width are ignored and a
// negative zero decodes to 0. Widths Encode rejects decode as 0.
func Decode(raw uint32, width uint, signed bool) int64 {
	if width == 0 || width > Word32 {
		return 0
	}
	raw &= Mask(width)
	if !signed {
		return int64(raw)
	}
	sign := uint32(1) << (width - 1)
	mag := int64(raw &^ sign)
	if raw&sign != 0 {
		return -mag
	}
	return mag
}

// Clamp returns the value that survives a pack/unpack cycle.
func Clamp(value int64, width uint, signed bool) int64 {
	raw, _ := Encode(value, width, signed)
	return Decode(raw, width, signed)
}

func (f Field) Max() int64 {
	return maxMagnitude(f.Width, f.Signed)
}

func (f Field) Min() int64 {
	if f.Signed {
		return -f.Max()
	}
	return 0
}

// Pack returns the field's contribution to its container word.
func (f Field) Pack(value int64) (uint32, bool) {
	raw, clamped := Encode(value, f.Width, f.Signed)
	return raw << f.Offset, clamped
}

func (f Field) Unpack(word uint32) int64 {
	return Decode(word>>f.Offset, f.Width, f.Signed)
}

// Validate checks that the field fits a container of size bits.
func (f Field) Validate(size uint) error {
	switch {
	case f.Width == 0:
		return errors.Errorf("field %s has zero width", f.Name)
	case f.Width > Word32:
		return errors.Errorf("field %s is %d bits, at most %d fit a word", f.Name, f.Width, Word32)
	case f.Signed && f.Width < 2:
		return errors.Errorf("signed field %s needs at least 2 bits", f.Name)
	case f.Offset+f.Width > size:
		return errors.Errorf("field %s (offset %d, width %d) overflows %d-bit word",
			f.Name, f.Offset, f.Width, size)
	}
	return nil
}

// Split breaks the width-bit value raw into parts, most significant part
// first. The part widths must sum to width.
func Split(raw uint32, widths ...uint) []uint32 {
	var total uint
	for _, w := range widths {
		total += w
	}
	parts := make([]uint32, len(widths))
	shift := total
	for i, w := range widths {
		shift -= w
		parts[i] = (raw >> shift) & Mask(w)
	}
	return parts
}

// Join concatenates parts, most significant first. It is the inverse of
// Split.
func Join(parts []uint32, widths ...uint) uint32 {
	var raw uint32
	for i, w := range widths {
		raw = raw<<w | parts[i]&Mask(w)
	}
	return raw
}
