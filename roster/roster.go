// Package roster holds the team tables that decoded frames index into:
// driver names and car designators. The codecs never need it; it is used
// to validate indices before sending and to render values after receiving.
package roster

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jd3nn1s/racelink/telemetry"
)

const (
	// driver ids are 5-bit fields
	MaxDrivers = 32
	// the source car is a 2-bit field
	MaxCars = 4
)

type Roster struct {
	Drivers []string `toml:"drivers"`
	Cars    []string `toml:"cars"`
}

// Default has the three team cars and no drivers. With no drivers listed,
// driver ids are not checked.
func Default() *Roster {
	return &Roster{
		Cars: []string{"Blue", "Red", "White"},
	}
}

// Check verifies that the tables fit the widths of the fields indexing them.
func (r *Roster) Check() error {
	if len(r.Drivers) > MaxDrivers {
		return errors.Errorf("roster has %d drivers, at most %d can be addressed", len(r.Drivers), MaxDrivers)
	}
	if len(r.Cars) > MaxCars {
		return errors.Errorf("roster has %d cars, at most %d can be addressed", len(r.Cars), MaxCars)
	}
	return nil
}

// Validate reports indices in f that fall outside the tables.
func (r *Roster) Validate(f *telemetry.Frame) error {
	var problems []string
	if len(r.Drivers) > 0 {
		for i, id := range driverIDs(f) {
			if int(id) >= len(r.Drivers) {
				problems = append(problems, fmt.Sprintf("d%dId %d outside %d drivers", i, id, len(r.Drivers)))
			}
		}
	}
	if int(f.DriverNumber) >= telemetry.Hops {
		problems = append(problems, fmt.Sprintf("driver number %d outside %d driver slots", f.DriverNumber, telemetry.Hops))
	}
	if len(r.Cars) > 0 && int(f.SourceID) >= len(r.Cars) {
		problems = append(problems, fmt.Sprintf("source car %d outside %d cars", f.SourceID, len(r.Cars)))
	}
	if len(problems) > 0 {
		return errors.Errorf("invalid frame: %s", strings.Join(problems, "; "))
	}
	return nil
}

func driverIDs(f *telemetry.Frame) [telemetry.Hops]uint8 {
	return [telemetry.Hops]uint8{f.D0ID, f.D1ID, f.D2ID}
}

// DriverID looks a driver up by name, ignoring case.
func (r *Roster) DriverID(name string) (uint8, bool) {
	for i, d := range r.Drivers {
		if strings.EqualFold(d, name) {
			return uint8(i), true
		}
	}
	return 0, false
}

func (r *Roster) DriverName(id uint8) string {
	if int(id) < len(r.Drivers) {
		return r.Drivers[id]
	}
	return fmt.Sprintf("#%d", id)
}

// CurrentDriver names the driver in the seat, picked by DriverNumber from
// the three driver slots.
func (r *Roster) CurrentDriver(f *telemetry.Frame) string {
	ids := driverIDs(f)
	if int(f.DriverNumber) >= len(ids) {
		return fmt.Sprintf("slot %d", f.DriverNumber)
	}
	return r.DriverName(ids[f.DriverNumber])
}

func (r *Roster) CarName(c telemetry.Car) string {
	if int(c) < len(r.Cars) {
		return r.Cars[c]
	}
	return c.String()
}
