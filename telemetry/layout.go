package telemetry

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/jd3nn1s/racelink/bitfield"
)

// MaxPacketSize is the largest payload the radio link carries.
const MaxPacketSize = 58

// Version identifies one revision of the Transceiver layout. Nothing on the
// wire says which revision a sender used, so both ends must agree on it.
type Version int

const (
	// VersionAltitude passes altitude in the per-hop time words.
	VersionAltitude Version = iota + 1
	// VersionAccel adds the two accelerometer words.
	VersionAccel
	// VersionGPS adds latitude and longitude so race lines can be plotted.
	VersionGPS

	CurrentVersion = VersionGPS
)

func (v Version) String() string {
	switch v {
	case VersionAltitude:
		return "altitude"
	case VersionAccel:
		return "accel"
	case VersionGPS:
		return "gps"
	}
	return fmt.Sprintf("Version(%d)", int(v))
}

// ParseVersion accepts either the numeric version or its name.
func ParseVersion(s string) (Version, error) {
	for _, v := range []Version{VersionAltitude, VersionAccel, VersionGPS} {
		if s == v.String() || s == fmt.Sprint(int(v)) {
			return v, nil
		}
	}
	return 0, errors.Errorf("unknown telemetry version %q", s)
}

// fieldDef is one logical value of the frame. A value may be spread over
// several word segments.
type fieldDef struct {
	name   string
	width  uint
	signed bool
	get    func(f *Frame) int64
	set    func(f *Frame, v int64)
}

type floatDef struct {
	name string
	get  func(f *Frame) float32
	set  func(f *Frame, v float32)
}

const reserved = ""

var fieldDefs = []fieldDef{
	{"rpm", 12, false, func(f *Frame) int64 { return int64(f.RPM) }, func(f *Frame, v int64) { f.RPM = uint16(v) }},
	{"driverNumber", 2, false, func(f *Frame) int64 { return int64(f.DriverNumber) }, func(f *Frame, v int64) { f.DriverNumber = uint8(v) }},
	{"deviceId", 2, false, func(f *Frame) int64 { return int64(f.DeviceID) }, func(f *Frame, v int64) { f.DeviceID = uint8(v) }},
	{"warnings", 16, false, func(f *Frame) int64 { return int64(f.Warnings) }, func(f *Frame, v int64) { f.Warnings = Warnings(v) }},
	{"tempMotorF", 8, false, func(f *Frame) int64 { return int64(f.TempMotorF) }, func(f *Frame, v int64) { f.TempMotorF = uint8(v) }},
	{"tempAuxF", 8, false, func(f *Frame) int64 { return int64(f.TempAuxF) }, func(f *Frame, v int64) { f.TempAuxF = uint8(v) }},
	{"volts", 9, false, func(f *Frame) int64 { return int64(f.VoltsTenths) }, func(f *Frame, v int64) { f.VoltsTenths = uint16(v) }},
	{"laps", 7, false, func(f *Frame) int64 { return int64(f.Laps) }, func(f *Frame, v int64) { f.Laps = uint8(v) }},
	{"speed", 9, false, func(f *Frame) int64 { return int64(f.SpeedTenths) }, func(f *Frame, v int64) { f.SpeedTenths = uint16(v) }},
	{"energyRemaining", 7, false, func(f *Frame) int64 { return int64(f.EnergyRemaining) }, func(f *Frame, v int64) { f.EnergyRemaining = uint8(v) }},
	{"distance", 9, false, func(f *Frame) int64 { return int64(f.Distance) }, func(f *Frame, v int64) { f.Distance = uint16(v) }},
	{"timeRemaining", 7, false, func(f *Frame) int64 { return int64(f.TimeRemaining) }, func(f *Frame, v int64) { f.TimeRemaining = uint8(v) }},
	{"amps", 11, false, func(f *Frame) int64 { return int64(f.AmpsTenths) }, func(f *Frame, v int64) { f.AmpsTenths = uint16(v) }},
	{"d0Id", 5, false, func(f *Frame) int64 { return int64(f.D0ID) }, func(f *Frame, v int64) { f.D0ID = uint8(v) }},
	{"energy", 10, false, func(f *Frame) int64 { return int64(f.Energy) }, func(f *Frame, v int64) { f.Energy = uint16(v) }},
	{"d1Id", 5, false, func(f *Frame) int64 { return int64(f.D1ID) }, func(f *Frame, v int64) { f.D1ID = uint8(v) }},
	{"lap2Amps", 9, false, func(f *Frame) int64 { return int64(f.Lap2Amps) }, func(f *Frame, v int64) { f.Lap2Amps = uint16(v) }},
	{"d2Id", 5, false, func(f *Frame) int64 { return int64(f.D2ID) }, func(f *Frame, v int64) { f.D2ID = uint8(v) }},
	{"sourceId", 2, false, func(f *Frame) int64 { return int64(f.SourceID) }, func(f *Frame, v int64) { f.SourceID = Car(v) }},
	{"raceTime", 16, false, func(f *Frame) int64 { return int64(f.RaceTime) }, func(f *Frame, v int64) { f.RaceTime = uint16(v) }},
	{"d0Time", 12, false, func(f *Frame) int64 { return int64(f.D0Time) }, func(f *Frame, v int64) { f.D0Time = uint16(v) }},
	{"d1Time", 12, false, func(f *Frame) int64 { return int64(f.D1Time) }, func(f *Frame, v int64) { f.D1Time = uint16(v) }},
	{"d2Time", 12, false, func(f *Frame) int64 { return int64(f.D2Time) }, func(f *Frame, v int64) { f.D2Time = uint16(v) }},
	{"altitude", AltitudeBits, true, func(f *Frame) int64 { return int64(f.Altitude) }, func(f *Frame, v int64) { f.Altitude = int16(v) }},
	{"lapTime", 16, false, func(f *Frame) int64 { return int64(f.LapTime) }, func(f *Frame, v int64) { f.LapTime = uint16(v) }},
	{"gForceX", 10, true, func(f *Frame) int64 { return int64(f.GForceX) }, func(f *Frame, v int64) { f.GForceX = int16(v) }},
	{"gForceY", 10, true, func(f *Frame) int64 { return int64(f.GForceY) }, func(f *Frame, v int64) { f.GForceY = int16(v) }},
	{"gForceZ", 10, true, func(f *Frame) int64 { return int64(f.GForceZ) }, func(f *Frame, v int64) { f.GForceZ = int16(v) }},
	{"totalEnergy", 7, false, func(f *Frame) int64 { return int64(f.TotalEnergy) }, func(f *Frame, v int64) { f.TotalEnergy = uint8(v) }},
	{"lapAmps", 9, false, func(f *Frame) int64 { return int64(f.LapAmps) }, func(f *Frame, v int64) { f.LapAmps = uint16(v) }},
	{"lapEnergy", 9, false, func(f *Frame) int64 { return int64(f.LapEnergy) }, func(f *Frame, v int64) { f.LapEnergy = uint16(v) }},
	{"distanceToStart", 7, false, func(f *Frame) int64 { return int64(f.DistanceToStart) }, func(f *Frame, v int64) { f.DistanceToStart = uint8(v) }},
}

var floatDefs = []floatDef{
	{"LAT", func(f *Frame) float32 { return f.Latitude }, func(f *Frame, v float32) { f.Latitude = v }},
	{"LON", func(f *Frame) float32 { return f.Longitude }, func(f *Frame, v float32) { f.Longitude = v }},
}

func seg(name string, width uint) bitfield.Segment {
	return bitfield.Segment{Name: name, Width: width}
}

func word16(name string, segments ...bitfield.Segment) bitfield.Word {
	return bitfield.Word{Name: name, Size: bitfield.Word16, Segments: segments}
}

// Words in declared order. Segments naming the same field are concatenated
// in this order, most significant first.
var (
	wordRPM      = word16("RPM_DNO_DID", seg("rpm", 12), seg("driverNumber", 2), seg("deviceId", 2))
	wordWarnings = word16("WARNINGS", seg("warnings", 16))
	wordTemp     = word16("TEMPF_TEMPX", seg("tempMotorF", 8), seg("tempAuxF", 8))
	wordVolts    = word16("VOLTS_LAPS", seg("volts", 9), seg("laps", 7))
	wordSpeed    = word16("SPEED_EREM", seg("speed", 9), seg("energyRemaining", 7))
	wordDistance = word16("DISTANCE_TREM", seg("distance", 9), seg("timeRemaining", 7))
	wordAmps     = word16("AMPS_D0ID", seg("amps", 11), seg("d0Id", 5))
	wordEnergy   = word16("ENERGY_D1ID", seg("energy", 10), seg("d1Id", 5), seg(reserved, 1))
	wordLap2Amps = word16("LAP2AMPS_D2ID_SID", seg("lap2Amps", 9), seg("d2Id", 5), seg("sourceId", 2))
	wordRaceTime = word16("RACETIME", seg("raceTime", 16))
	wordD0Time   = word16("D0TIME_ALTITUDE", seg("d0Time", 12), seg("altitude", altitudeNibble))
	wordD1Time   = word16("D1TIME_ALTITUDE", seg("d1Time", 12), seg("altitude", altitudeNibble))
	wordD2Time   = word16("D2TIME_ALTITUDE", seg("d2Time", 12), seg("altitude", altitudeNibble))
	wordLapTime  = word16("LT", seg("lapTime", 16))
	wordGForceXY = word16("GFORCEX_GFORCEY", seg("gForceX", 10), seg("gForceY", 4), seg(reserved, 2))
	wordGForceZY = word16("GFORCEZ_GFORCEY", seg("gForceZ", 10), seg("gForceY", 6))
	wordEnergyTW = word16("TWHR_LAPAMPS", seg("totalEnergy", 7), seg("lapAmps", 9))
	wordLapDTS   = word16("LAPENERGY_DTS", seg("lapEnergy", 9), seg("distanceToStart", 7))
)

var versionWords = map[Version][]bitfield.Word{
	VersionAltitude: {
		wordRPM, wordWarnings, wordTemp, wordVolts, wordSpeed, wordDistance,
		wordAmps, wordEnergy, wordLap2Amps, wordRaceTime,
		wordD0Time, wordD1Time, wordD2Time, wordLapTime,
		wordEnergyTW, wordLapDTS,
	},
	VersionAccel: {
		wordRPM, wordWarnings, wordTemp, wordVolts, wordSpeed, wordDistance,
		wordAmps, wordEnergy, wordLap2Amps, wordRaceTime,
		wordD0Time, wordD1Time, wordD2Time, wordLapTime,
		wordGForceXY, wordGForceZY,
		wordEnergyTW, wordLapDTS,
	},
	VersionGPS: {
		wordRPM, wordWarnings, wordTemp, wordVolts, wordSpeed, wordDistance,
		wordAmps, wordEnergy, wordLap2Amps, wordRaceTime,
		wordD0Time, wordD1Time, wordD2Time, wordLapTime,
		wordGForceXY, wordGForceZY,
		wordEnergyTW, wordLapDTS,
	},
}

var versionFloats = map[Version][]floatDef{
	VersionGPS: floatDefs,
}

type placement struct {
	word   int
	offset uint
	width  uint
}

type fieldLayout struct {
	def    *fieldDef
	parts  []placement
	widths []uint
}

// Layout is the compiled wire layout of one version.
type Layout struct {
	Version Version
	Words   []bitfield.Word

	fields []fieldLayout
	floats []floatDef
}

func (l *Layout) Size() int {
	size := 4 * len(l.floats)
	for _, w := range l.Words {
		size += w.Bytes()
	}
	return size
}

// Floats returns the names of the trailing float words.
func (l *Layout) Floats() []string {
	names := make([]string, len(l.floats))
	for i, f := range l.floats {
		names[i] = f.name
	}
	return names
}

// Fields returns the logical field names carried by this version.
func (l *Layout) Fields() []string {
	names := make([]string, len(l.fields))
	for i, f := range l.fields {
		names[i] = f.def.name
	}
	return names
}

func (l *Layout) HasField(name string) bool {
	for _, f := range l.fields {
		if f.def.name == name {
			return true
		}
	}
	return false
}

func compileLayout(v Version) (*Layout, error) {
	words, ok := versionWords[v]
	if !ok {
		return nil, errors.Errorf("unknown telemetry version %d", int(v))
	}
	defs := map[string]*fieldDef{}
	for i := range fieldDefs {
		defs[fieldDefs[i].name] = &fieldDefs[i]
	}

	l := &Layout{
		Version: v,
		Words:   words,
		floats:  versionFloats[v],
	}
	used := map[string]*fieldLayout{}
	var order []string
	for wi, w := range words {
		if err := w.Validate(); err != nil {
			return nil, errors.Wrapf(err, "version %v", v)
		}
		for _, bf := range w.Fields() {
			if bf.Name == reserved {
				continue
			}
			def, ok := defs[bf.Name]
			if !ok {
				return nil, errors.Errorf("version %v: word %s names unknown field %s", v, w.Name, bf.Name)
			}
			fl, ok := used[bf.Name]
			if !ok {
				fl = &fieldLayout{def: def}
				used[bf.Name] = fl
				order = append(order, bf.Name)
			}
			fl.parts = append(fl.parts, placement{word: wi, offset: bf.Offset, width: bf.Width})
			fl.widths = append(fl.widths, bf.Width)
		}
	}
	for _, name := range order {
		fl := used[name]
		var total uint
		for _, w := range fl.widths {
			total += w
		}
		if total != fl.def.width {
			return nil, errors.Errorf("version %v: field %s spans %d bits, want %d", v, name, total, fl.def.width)
		}
		l.fields = append(l.fields, *fl)
	}
	if size := l.Size(); size > MaxPacketSize {
		return nil, errors.Errorf("version %v: frame is %d bytes, radio limit is %d", v, size, MaxPacketSize)
	}
	return l, nil
}

var layouts = map[Version]*Layout{}

func init() {
	for v := range versionWords {
		l, err := compileLayout(v)
		if err != nil {
			panic(err)
		}
		layouts[v] = l
	}
}

// LayoutFor returns the compiled layout of version v.
func LayoutFor(v Version) (*Layout, error) {
	l, ok := layouts[v]
	if !ok {
		return nil, errors.Errorf("unknown telemetry version %d", int(v))
	}
	return l, nil
}
