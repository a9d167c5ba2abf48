package telemetry

import (
	"fmt"
	"math"

	"github.com/jd3nn1s/racelink/bitfield"
)

// Car designates the team car a frame came from.
type Car uint8

const (
	CarBlue Car = iota
	CarRed
	CarWhite
)

func (c Car) String() string {
	switch c {
	case CarBlue:
		return "Blue"
	case CarRed:
		return "Red"
	case CarWhite:
		return "White"
	}
	return fmt.Sprintf("Car(%d)", uint8(c))
}

const (
	// altitude is carried as three 4-bit nibbles, one per hop word
	AltitudeBits   = 12
	altitudeNibble = 4
	Hops           = 3
)

// Frame is one Transceiver record. Fields hold wire units; the accessor
// methods convert to physical values.
type Frame struct {
	RPM          uint16
	DriverNumber uint8
	DeviceID     uint8

	Warnings Warnings

	TempMotorF uint8
	TempAuxF   uint8

	VoltsTenths uint16
	Laps        uint8

	SpeedTenths     uint16 // mph * 10
	EnergyRemaining uint8  // percent

	Distance      uint16 // miles * 100
	TimeRemaining uint8  // minutes

	AmpsTenths uint16
	D0ID       uint8

	Energy uint16 // watt hours
	D1ID   uint8

	Lap2Amps uint16
	D2ID     uint8
	SourceID Car

	RaceTime uint16 // seconds

	// seconds driven by the driver in each seat slot
	D0Time uint16
	D1Time uint16
	D2Time uint16
	// Altitude is the offset in feet from the reference altitude captured
	// at race start.
	Altitude int16

	LapTime uint16

	// hundredths of a g
	GForceX int16
	GForceY int16
	GForceZ int16

	TotalEnergy uint8  // watt hours / 10
	LapAmps     uint16 // amps / 10

	LapEnergy       uint16 // watt hours
	DistanceToStart uint8  // miles * 100

	Latitude  float32
	Longitude float32
}

func tenths(v uint16) float64 {
	return float64(v) / 10
}

func toTenths(v float64) uint16 {
	return uint16(clampRound(v*10, math.MaxUint16))
}

func clampRound(v float64, max float64) float64 {
	v = math.Round(v)
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > max:
		return max
	}
	return v
}

func (f *Frame) Volts() float64 {
	return tenths(f.VoltsTenths)
}

func (f *Frame) SetVolts(v float64) {
	f.VoltsTenths = toTenths(v)
}

func (f *Frame) Speed() float64 {
	return tenths(f.SpeedTenths)
}

func (f *Frame) SetSpeed(mph float64) {
	f.SpeedTenths = toTenths(mph)
}

func (f *Frame) Amps() float64 {
	return tenths(f.AmpsTenths)
}

func (f *Frame) SetAmps(a float64) {
	f.AmpsTenths = toTenths(a)
}

func (f *Frame) Miles() float64 {
	return float64(f.Distance) / 100
}

func (f *Frame) MilesToStart() float64 {
	return float64(f.DistanceToStart) / 100
}

func (f *Frame) TotalEnergyWh() int {
	return int(f.TotalEnergy) * 10
}

func (f *Frame) LapAmpsValue() int {
	return int(f.LapAmps) * 10
}

// GForce returns the three accelerometer axes in g.
func (f *Frame) GForce() (x, y, z float64) {
	return float64(f.GForceX) / 100, float64(f.GForceY) / 100, float64(f.GForceZ) / 100
}

func (f *Frame) SetGForce(x, y, z float64) {
	toHundredths := func(g float64) int16 {
		v := math.Round(g * 100)
		if math.IsNaN(v) {
			return 0
		}
		return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, v)))
	}
	f.GForceX = toHundredths(x)
	f.GForceY = toHundredths(y)
	f.GForceZ = toHundredths(z)
}

// AltitudeFeet applies the frame's offset to reference, the altitude
// recorded when the race started.
func (f *Frame) AltitudeFeet(reference float64) float64 {
	return reference + float64(f.Altitude)
}

// AltitudeNibbles returns the per-hop nibbles the altitude is sent as.
func (f *Frame) AltitudeNibbles() [Hops]uint8 {
	raw, _ := bitfield.Encode(int64(f.Altitude), AltitudeBits, true)
	return SplitAltitude(uint16(raw))
}

// JoinAltitude concatenates hop nibbles, earliest hop most significant, into
// the raw 12-bit altitude value.
func JoinAltitude(nibbles [Hops]uint8) uint16 {
	parts := make([]uint32, Hops)
	for i, n := range nibbles {
		parts[i] = uint32(n)
	}
	return uint16(bitfield.Join(parts, altitudeNibble, altitudeNibble, altitudeNibble))
}

func SplitAltitude(raw uint16) [Hops]uint8 {
	parts := bitfield.Split(uint32(raw)&bitfield.Mask(AltitudeBits),
		altitudeNibble, altitudeNibble, altitudeNibble)
	var nibbles [Hops]uint8
	for i, p := range parts {
		nibbles[i] = uint8(p)
	}
	return nibbles
}

// AltitudeOffset interprets a raw 12-bit altitude as a sign-magnitude
// offset in feet.
func AltitudeOffset(raw uint16) int16 {
	return int16(bitfield.Decode(uint32(raw), AltitudeBits, true))
}
