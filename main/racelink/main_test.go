package main

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jd3nn1s/racelink/racestate"
	"github.com/jd3nn1s/racelink/telemetry"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseHex(t *testing.T) {
	b, err := parseHex([]string{"0x01 02", "0A ff"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x0a, 0xff}, b)

	_, err = parseHex([]string{"0g"})
	assert.Error(t, err)
}

func TestInspectTelemetry(t *testing.T) {
	codec, err := telemetry.NewCodec(telemetry.CurrentVersion)
	require.NoError(t, err)
	f := &telemetry.Frame{
		RPM:      1234,
		SourceID: telemetry.CarRed,
		Laps:     12,
		Warnings: telemetry.WarnGPS | telemetry.WarnBattery,
		Altitude: -40,
	}
	f.SetVolts(24.5)

	out, err := execute(t, "inspect", hex.EncodeToString(codec.Encode(f)))
	require.NoError(t, err)
	assert.Contains(t, out, "Red")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "24.5")
	assert.Contains(t, out, "BAT|GPS")
	assert.Contains(t, out, "-40 ft")
}

func TestInspectWrongVersion(t *testing.T) {
	codec, err := telemetry.NewCodec(telemetry.VersionAltitude)
	require.NoError(t, err)
	encoded := hex.EncodeToString(codec.Encode(&telemetry.Frame{}))

	_, err = execute(t, "inspect", encoded)
	assert.ErrorIs(t, err, telemetry.ErrWrongLength)

	_, err = execute(t, "inspect", "--version", "altitude", encoded)
	assert.NoError(t, err)
}

func TestInspectRaceState(t *testing.T) {
	f := &racestate.Frame{Flag: racestate.FlagYellow}
	f.Cars[2] = racestate.Car{Number: "7", Position: 2, Laps: 30, BestLap: 95}

	out, err := execute(t, "inspect", "--racestate", hex.EncodeToString(racestate.NewCodec().Encode(f)))
	require.NoError(t, err)
	assert.Contains(t, out, "yellow")
	assert.Contains(t, out, "2nd")
	assert.Contains(t, out, "95s")
}

func TestLayout(t *testing.T) {
	out, err := execute(t, "layout", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "altitude (version 1): 32 B of 58 B")
	assert.Contains(t, out, "accel (version 2): 36 B of 58 B")
	assert.Contains(t, out, "gps (version 3): 44 B of 58 B")
	assert.Contains(t, out, "race state: 74 B")

	out, err = execute(t, "layout", "accel")
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, "gps (version 3)"))

	_, err = execute(t, "layout", "v7")
	assert.Error(t, err)
}

func TestBadLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "layout")
	assert.Error(t, err)
}
