package racelink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jd3nn1s/racelink/telemetry"
)

const sampleConfig = `
[telemetry]
version = "accel"
car = "red"
device_id = 2
drivers = ["Cat", "Ana"]

[udp]
server = "10.0.0.5"
port = 6000
interval = "250ms"

[can]
interface = "vcan0"
base_id = 0x300

[nats]
url = "nats://pit:4222"

[roster]
drivers = ["Ana", "Ben", "Cat"]
`

func TestLoadConfigFromReader(t *testing.T) {
	config, err := LoadConfigFromReader(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	version, err := config.TelemetryVersion()
	require.NoError(t, err)
	assert.Equal(t, telemetry.VersionAccel, version)

	car, err := config.Car()
	require.NoError(t, err)
	assert.Equal(t, telemetry.CarRed, car)
	assert.Equal(t, uint8(2), config.Telemetry.DeviceID)
	assert.Equal(t, gpsPortName, config.Telemetry.GPSPort, "defaults are kept")

	assert.Equal(t, "10.0.0.5", config.UDP.Server)
	assert.Equal(t, 6000, config.UDP.Port)
	assert.Equal(t, ":5000", config.UDP.Listen)
	assert.Equal(t, 250*time.Millisecond, config.UDP.Interval)

	assert.Equal(t, "vcan0", config.CAN.Interface)
	assert.Equal(t, uint32(0x300), uint32(config.CAN.BaseID))
	assert.Equal(t, "nats://pit:4222", config.NATS.URL)
	assert.Equal(t, "racelink", config.NATS.Subject)

	assert.Equal(t, []string{"Ana", "Ben", "Cat"}, config.Roster.Drivers)
	ids, err := config.DriverIDs()
	require.NoError(t, err)
	assert.Equal(t, [telemetry.Hops]uint8{2, 0, 0}, ids)
	assert.Equal(t, []string{"Blue", "Red", "White"}, config.Roster.Cars)
}

func TestLoadConfigRosterCars(t *testing.T) {
	config, err := LoadConfigFromReader(strings.NewReader(`
[roster]
cars = ["Green"]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Green"}, config.Roster.Cars)
	assert.Empty(t, config.Roster.Drivers)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":   "[udp]\nserver = \"a\"\nspeed = 3\n",
		"bad version":   "[telemetry]\nversion = \"v9\"\n",
		"bad car":       "[telemetry]\ncar = \"purple\"\n",
		"device id":     "[telemetry]\ndevice_id = 4\n",
		"too many cars": "[roster]\ncars = [\"a\", \"b\", \"c\", \"d\", \"e\"]\n",
		"not toml":      "[udp\n",
		"wrong type":    "[udp]\nport = \"x\"\n",
		"no driver":     "[telemetry]\ndrivers = [\"Ana\"]\n",
		"four drivers":  "[telemetry]\ndrivers = [\"a\", \"b\", \"c\", \"d\"]\n[roster]\ndrivers = [\"a\", \"b\", \"c\", \"d\"]\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfigFromReader(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "racelink.toml")
	require.NoError(t, os.WriteFile(fileName, []byte(sampleConfig), 0o600))

	config, err := LoadConfig(fileName)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", config.UDP.Server)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	version, err := config.TelemetryVersion()
	require.NoError(t, err)
	assert.Equal(t, telemetry.CurrentVersion, version)
}
