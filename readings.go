package racelink

import "github.com/jd3nn1s/racelink/telemetry"

type gpsData struct {
	Fix       bool
	Latitude  int // degrees * 1e7
	Longitude int // degrees * 1e7
	Altitude  int // centimetres
}

// DashReading is one sample of the dash board sensors in physical units.
type DashReading struct {
	RPM        float64
	TempMotorF float64
	TempAuxF   float64
	Volts      float64
	Amps       float64
	Speed      float64 // mph
	// Energy is the watt hours used since the start of the race.
	Energy float64
	// EnergyRemaining is the battery estimate in percent.
	EnergyRemaining float64
	Laps            int
	LapTime         int     // seconds
	RaceTime        int     // seconds
	Distance        float64 // miles
	GForceX         float64
	GForceY         float64
	GForceZ         float64

	TimeRemaining int // minutes
	// LapAmps and Lap2Amps are the current drawn over the last two laps.
	LapAmps         float64
	Lap2Amps        float64
	LapEnergy       float64 // watt hours
	DistanceToStart float64 // miles

	// DriverNumber is the seat slot, 0 to 2, of the driver in the car.
	DriverNumber int
	// DriverTimes is the time in seconds each slot has driven.
	DriverTimes [telemetry.Hops]int
}
