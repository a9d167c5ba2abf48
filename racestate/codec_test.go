package racestate

import (
	"encoding/binary"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jd3nn1s/racelink/bitfield"
)

func sampleFrame() *Frame {
	f := &Frame{Flag: FlagYellow}
	f.Cars[0] = Car{Number: "42", BestLap: 95, CurrentLap: 101, Position: 3, Laps: 12}
	f.Cars[1] = Car{Number: "F24A", BestLap: 1023, CurrentLap: 1023, Position: 31, Laps: 127}
	f.Cars[5] = Car{Number: "7", Position: 1, Laps: 14}
	return f
}

func TestRoundTrip(t *testing.T) {
	c := NewCodec()
	for _, f := range []*Frame{{}, sampleFrame(), {Flag: FlagRed, Reserved: 0x1234}} {
		b := c.Encode(f)
		assert.Len(t, b, FrameSize)
		got, err := c.Decode(b)
		require.NoError(t, err)
		if diff := cmp.Diff(f, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestFrameSize(t *testing.T) {
	assert.Equal(t, 74, FrameSize)
	assert.Equal(t, FrameSize, NewCodec().Size())
}

func TestWireLayout(t *testing.T) {
	f := &Frame{Flag: FlagGreen}
	f.Cars[0] = Car{Number: "12", BestLap: 1, CurrentLap: 2, Position: 3, Laps: 4}
	b := NewCodec().Encode(f)

	assert.Equal(t, []byte{'1', '2', 0, 0, 0}, b[0:5])
	word := binary.LittleEndian.Uint32(b[40:])
	assert.Equal(t, uint32(1<<22|2<<12|3<<7|4), word)
	assert.Equal(t, uint16(1<<14), binary.LittleEndian.Uint16(b[72:]))
}

func TestClamping(t *testing.T) {
	counter := bitfield.NewClampCounter()
	c := NewCodec(WithClampObserver(counter))
	f := &Frame{Flag: Flag(7)}
	f.Cars[2] = Car{Number: "123456", BestLap: 2000, CurrentLap: 50, Position: 32, Laps: 9}

	got, err := c.Decode(c.Encode(f))
	require.NoError(t, err)
	car := got.Cars[2]
	assert.Equal(t, "12345", car.Number)
	assert.Equal(t, uint16(1023), car.BestLap)
	assert.Equal(t, uint16(50), car.CurrentLap)
	assert.Equal(t, uint8(31), car.Position)
	assert.Equal(t, uint8(9), car.Laps)
	assert.Equal(t, FlagRed, got.Flag)
	assert.Equal(t, uint16(0), got.Reserved)

	assert.Equal(t, uint64(1), counter.Count("carNumber"))
	assert.Equal(t, uint64(1), counter.Count("bestLap"))
	assert.Equal(t, uint64(1), counter.Count("position"))
	assert.Equal(t, uint64(1), counter.Count("flag"))
}

func TestCarNumberTruncatesOnRuneBoundary(t *testing.T) {
	counter := bitfield.NewClampCounter()
	c := NewCodec(WithClampObserver(counter))
	f := &Frame{}
	// the fifth and sixth bytes are one two-byte rune
	f.Cars[0] = Car{Number: "1234é", Laps: 1}
	f.Cars[1] = Car{Number: "12é45", Laps: 1}

	got, err := c.Decode(c.Encode(f))
	require.NoError(t, err)
	assert.Equal(t, "1234", got.Cars[0].Number)
	assert.Equal(t, "12é4", got.Cars[1].Number)
	assert.True(t, utf8.ValidString(got.Cars[0].Number))
	assert.Equal(t, uint64(2), counter.Count("carNumber"))
}

func TestDecodeWrongLength(t *testing.T) {
	c := NewCodec()
	for _, n := range []int{0, FrameSize - 1, FrameSize + 1} {
		_, err := c.Decode(make([]byte, n))
		assert.ErrorIs(t, err, ErrWrongLength, "length %d", n)
	}
}

func TestEmptySlot(t *testing.T) {
	got, err := NewCodec().Decode(make([]byte, FrameSize))
	require.NoError(t, err)
	for _, car := range got.Cars {
		assert.True(t, car.Empty())
		assert.Equal(t, uint16(0), car.CurrentLap)
		assert.Equal(t, uint8(0), car.Position)
		assert.Equal(t, uint8(0), car.Laps)
	}
	assert.Equal(t, FlagNone, got.Flag)
	assert.Empty(t, got.Active())
}

func TestSpacePaddedNumbers(t *testing.T) {
	b := NewCodec().Encode(&Frame{})
	copy(b[5:10], "9    ")
	got, err := NewCodec().Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "9", got.Cars[1].Number)
	assert.Equal(t, []int{1}, got.Active())
}

func TestPositionPassthrough(t *testing.T) {
	f := &Frame{}
	// ranks need not follow slot order or be unique
	f.Cars[0] = Car{Number: "1", Position: 5}
	f.Cars[1] = Car{Number: "2", Position: 5}
	f.Cars[2] = Car{Number: "3", Position: 1}
	got, err := NewCodec().Decode(NewCodec().Encode(f))
	require.NoError(t, err)
	assert.Equal(t, uint8(5), got.Cars[0].Position)
	assert.Equal(t, uint8(5), got.Cars[1].Position)
	assert.Equal(t, uint8(1), got.Cars[2].Position)
}

func TestFlags(t *testing.T) {
	for _, f := range []Flag{FlagNone, FlagGreen, FlagYellow, FlagRed} {
		parsed, err := ParseFlag(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
	assert.Equal(t, uint8(3), uint8(FlagRed))
	_, err := ParseFlag("checkered")
	assert.Error(t, err)
	assert.Equal(t, "Flag(9)", Flag(9).String())
}
