package racelink

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/jd3nn1s/racelink/boardcan"
	"github.com/jd3nn1s/racelink/forwarder"
	"github.com/jd3nn1s/racelink/natsrelay"
	"github.com/jd3nn1s/racelink/roster"
	"github.com/jd3nn1s/racelink/telemetry"
)

type TelemetryConfig struct {
	// Version is the layout name or number both ends of the link use.
	Version  string `toml:"version"`
	Car      string `toml:"car"`
	DeviceID uint8  `toml:"device_id"`
	GPSPort  string `toml:"gps_port"`

	// Drivers names the roster drivers in seat slots 0 to 2.
	Drivers []string `toml:"drivers"`
}

type Config struct {
	Telemetry TelemetryConfig     `toml:"telemetry"`
	UDP       forwarder.UDPConfig `toml:"udp"`
	CAN       boardcan.Config     `toml:"can"`
	NATS      natsrelay.Config    `toml:"nats"`
	Roster    roster.Roster       `toml:"roster"`
}

func DefaultConfig() *Config {
	return &Config{
		Telemetry: TelemetryConfig{
			Version: telemetry.CurrentVersion.String(),
			Car:     telemetry.CarBlue.String(),
			GPSPort: gpsPortName,
		},
		UDP: forwarder.UDPConfig{
			Server:   "127.0.0.1",
			Port:     5000,
			Listen:   ":5000",
			Interval: time.Second,
		},
		CAN: boardcan.Config{
			Interface: "can0",
			BaseID:    boardcan.DefaultBaseID,
		},
		NATS: natsrelay.Config{
			Subject: natsrelay.DefaultSubject,
		},
		Roster: *roster.Default(),
	}
}

// LoadConfig reads fileName, falling back to the directory of the binary
// when a relative name is not found in the working directory.
func LoadConfig(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil && !filepath.IsAbs(fileName) && os.IsNotExist(err) {
		dir, dirErr := filepath.Abs(filepath.Dir(os.Args[0]))
		if dirErr != nil {
			return nil, errors.Wrapf(dirErr, "unable to determine binary location")
		}
		file, err = os.Open(filepath.Join(dir, fileName))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config reader")
	}
	config := DefaultConfig()
	// tables given in the file replace the defaults rather than merge
	config.Roster = roster.Roster{}
	md, err := toml.Decode(string(data), config)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load configuration")
	}
	if !md.IsDefined("roster", "cars") {
		config.Roster.Cars = roster.Default().Cars
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown configuration keys: %v", undecoded)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if _, err := c.TelemetryVersion(); err != nil {
		return err
	}
	if _, err := c.Car(); err != nil {
		return err
	}
	if c.Telemetry.DeviceID > 3 {
		return errors.Errorf("device id %d does not fit 2 bits", c.Telemetry.DeviceID)
	}
	if err := c.Roster.Check(); err != nil {
		return errors.Wrap(err, "invalid roster")
	}
	_, err := c.DriverIDs()
	return err
}

// DriverIDs resolves the seat slot names to roster ids. Empty slots are 0.
func (c *Config) DriverIDs() ([telemetry.Hops]uint8, error) {
	var ids [telemetry.Hops]uint8
	if len(c.Telemetry.Drivers) > telemetry.Hops {
		return ids, errors.Errorf("%d drivers configured, the car has %d seat slots",
			len(c.Telemetry.Drivers), telemetry.Hops)
	}
	for i, name := range c.Telemetry.Drivers {
		id, ok := c.Roster.DriverID(name)
		if !ok {
			return ids, errors.Errorf("driver %q is not in the roster", name)
		}
		ids[i] = id
	}
	return ids, nil
}

func (c *Config) TelemetryVersion() (telemetry.Version, error) {
	return telemetry.ParseVersion(c.Telemetry.Version)
}

func (c *Config) Car() (telemetry.Car, error) {
	for _, car := range []telemetry.Car{telemetry.CarBlue, telemetry.CarRed, telemetry.CarWhite} {
		if strings.EqualFold(c.Telemetry.Car, car.String()) {
			return car, nil
		}
	}
	return 0, errors.Errorf("unknown car %q", c.Telemetry.Car)
}
