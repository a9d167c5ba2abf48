package telemetry

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Warnings is the WARNINGS word. Each bit is an independent flag.
type Warnings uint16

const (
	WarnSD Warnings = 1 << iota
	WarnBattery
	WarnTemperature
	WarnRaceStart
	WarnAmp
	WarnLapAmp
	WarnGForce
	WarnGPS
	WarnReplayRace
	WarnKeyOff
	WarnSpeedFail
	WarnAmbientFail
	WarnRadioFail
	WarnStorageFail

	// bits 14 and 15 are unassigned but survive a round trip
	warnReserved Warnings = 0xC000
)

type warningName struct {
	flag Warnings
	name string
}

var warningNames = []warningName{
	{WarnSD, "SD"},
	{WarnBattery, "BAT"},
	{WarnTemperature, "TEMP"},
	{WarnRaceStart, "RACE_START"},
	{WarnAmp, "AMP"},
	{WarnLapAmp, "LAPAMP"},
	{WarnGForce, "GFORCE"},
	{WarnGPS, "GPS"},
	{WarnReplayRace, "REPLAY_RACE"},
	{WarnKeyOff, "KEY_OFF"},
	{WarnSpeedFail, "SPEED_FAIL"},
	{WarnAmbientFail, "AMBIENT_FAIL"},
	{WarnRadioFail, "RADIO_FAIL"},
	{WarnStorageFail, "STORAGE_FAIL"},
}

// AllWarnings lists every named flag in bit order.
func AllWarnings() []Warnings {
	return lo.Map(warningNames, func(n warningName, _ int) Warnings {
		return n.flag
	})
}

func (w Warnings) Has(flag Warnings) bool {
	return w&flag == flag
}

func (w *Warnings) Set(flag Warnings) {
	*w |= flag
}

func (w *Warnings) Clear(flag Warnings) {
	*w &^= flag
}

// Reserved returns the bits that carry no named flag.
func (w Warnings) Reserved() uint16 {
	return uint16(w & warnReserved)
}

// Names returns the names of the set flags in bit order.
func (w Warnings) Names() []string {
	set := lo.Filter(warningNames, func(n warningName, _ int) bool {
		return w.Has(n.flag)
	})
	return lo.Map(set, func(n warningName, _ int) string {
		return n.name
	})
}

func (w Warnings) String() string {
	if w == 0 {
		return "none"
	}
	names := w.Names()
	if r := w.Reserved(); r != 0 {
		names = append(names, fmt.Sprintf("0x%04x", r))
	}
	return strings.Join(names, "|")
}

// ParseWarning looks up a flag by the name used in Names.
func ParseWarning(name string) (Warnings, bool) {
	n, ok := lo.Find(warningNames, func(n warningName) bool {
		return strings.EqualFold(n.name, name)
	})
	return n.flag, ok
}
