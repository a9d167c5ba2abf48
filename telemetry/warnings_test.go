package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarnings(t *testing.T) {
	var w Warnings
	assert.Equal(t, "none", w.String())

	w.Set(WarnBattery)
	w.Set(WarnGPS)
	assert.Equal(t, Warnings(0x82), w)
	assert.True(t, w.Has(WarnBattery))
	assert.False(t, w.Has(WarnSD))
	assert.Equal(t, "BAT|GPS", w.String())

	w.Clear(WarnBattery)
	assert.Equal(t, []string{"GPS"}, w.Names())

	w |= 0x4000
	assert.Equal(t, "GPS|0x4000", w.String())
	assert.Equal(t, uint16(0x4000), w.Reserved())
}

func TestWarningBits(t *testing.T) {
	bits := map[Warnings]uint16{
		WarnSD:          1,
		WarnBattery:     2,
		WarnTemperature: 4,
		WarnRaceStart:   8,
		WarnAmp:         16,
		WarnLapAmp:      32,
		WarnGForce:      64,
		WarnGPS:         128,
		WarnReplayRace:  256,
		WarnKeyOff:      512,
		WarnSpeedFail:   1024,
		WarnAmbientFail: 2048,
		WarnRadioFail:   4096,
		WarnStorageFail: 8192,
	}
	for flag, bit := range bits {
		assert.Equal(t, bit, uint16(flag))
	}
	assert.Len(t, AllWarnings(), len(bits))
}

func TestParseWarning(t *testing.T) {
	w, ok := ParseWarning("gps")
	assert.True(t, ok)
	assert.Equal(t, WarnGPS, w)
	_, ok = ParseWarning("nope")
	assert.False(t, ok)
}
