package racelink

import (
	"context"
	"math"
	"time"
)

// runTestMode feeds synthetic readings so the radio link and the pit tools
// can be exercised on the bench.
func (l *Logger) runTestMode(ctx context.Context) {
	gps := gpsData{
		Fix:       true,
		Latitude:  388462000,
		Longitude: -773064000,
		Altitude:  9144,
	}
	dash := DashReading{
		TempMotorF:      80,
		TempAuxF:        75,
		Volts:           25.2,
		EnergyRemaining: 100,
		TimeRemaining:   90,
	}

	go func() {
		ticker := time.NewTicker(time.Millisecond * 200)
		defer ticker.Stop()
		down := false
		started := false
		for {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
			select {
			case l.gpsChan <- gps:
			case <-ctx.Done():
				return
			}
			if !started {
				l.StartRace(math.NaN())
				started = true
			}

			if down {
				gps.Longitude -= 100
				gps.Latitude -= 100
				gps.Altitude -= 30
			} else {
				gps.Longitude += 100
				gps.Latitude += 100
				gps.Altitude += 30
			}

			if gps.Altitude >= 12192 {
				down = true
			} else if gps.Altitude <= 9144 {
				down = false
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Millisecond * 250)
		defer ticker.Stop()
		down := false
		start := time.Now()
		last := start
		var driven [len(dash.DriverTimes)]time.Duration
		for {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
			dash.RaceTime = int(time.Since(start).Seconds())
			dash.TimeRemaining = 90 - dash.RaceTime/60
			// drivers swap every ten minutes
			dash.DriverNumber = dash.RaceTime / 600 % 3
			now := time.Now()
			driven[dash.DriverNumber] += now.Sub(last)
			last = now
			for i, d := range driven {
				dash.DriverTimes[i] = int(d.Seconds())
			}
			dash.LapAmps = dash.Amps * 20
			dash.Lap2Amps = dash.Amps * 2
			dash.LapEnergy = dash.Energy / 10
			dash.DistanceToStart = math.Mod(dash.Distance, 1)
			select {
			case l.dashChan <- dash:
			case <-ctx.Done():
				return
			}

			if down {
				dash.RPM -= 100
				dash.Speed -= 1
				dash.Amps -= 2
			} else {
				dash.RPM += 100
				dash.Speed += 1
				dash.Amps += 2
			}
			dash.Volts -= 0.01
			dash.Energy += 0.05
			dash.Distance += 0.01
			dash.GForceX = dash.Speed / 100
			dash.GForceY = -dash.Speed / 200

			if dash.RPM >= 1800 {
				down = true
			} else if dash.RPM <= 0 {
				down = false
			}
		}
	}()
}
