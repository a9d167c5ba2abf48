package racelink

import (
	"context"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/jd3nn1s/racelink/roster"
	"github.com/jd3nn1s/racelink/telemetry"
)

const (
	channelBufferSize = 1

	cmPerFoot = 30.48
)

// Logger merges GPS and dash readings into the current telemetry frame and
// hands every changed frame to its forwarders.
type Logger struct {
	frame      telemetry.Frame
	forwarders []Forwarder
	roster     *roster.Roster

	gpsChan       chan gpsData
	dashChan      chan DashReading
	raceStartChan chan float64
	gpsPort       string
	testMode      bool

	// owned by the goroutine calling CheckChannels
	reference     *float64 // feet
	lastAltitude  float64  // feet
	haveAltitude  bool
	raceStartEdge bool
}

type LoggerOption func(*Logger)

func WithRoster(r *roster.Roster) LoggerOption {
	return func(l *Logger) {
		l.roster = r
	}
}

func WithGPSPort(port string) LoggerOption {
	return func(l *Logger) {
		l.gpsPort = port
	}
}

func WithTestMode() LoggerOption {
	return func(l *Logger) {
		l.testMode = true
	}
}

// WithDrivers sets the roster ids of the drivers in the three seat slots.
func WithDrivers(ids [telemetry.Hops]uint8) LoggerOption {
	return func(l *Logger) {
		l.frame.D0ID = ids[0]
		l.frame.D1ID = ids[1]
		l.frame.D2ID = ids[2]
	}
}

// WithIdentity sets the fields that say who sent the frame.
func WithIdentity(car telemetry.Car, deviceID uint8) LoggerOption {
	return func(l *Logger) {
		l.frame.SourceID = car
		l.frame.DeviceID = deviceID
	}
}

func NewLogger(opts ...LoggerOption) *Logger {
	l := &Logger{
		gpsChan:       make(chan gpsData, channelBufferSize),
		dashChan:      make(chan DashReading, channelBufferSize),
		raceStartChan: make(chan float64, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logger) AddForwarder(fwd Forwarder) {
	l.forwarders = append(l.forwarders, fwd)
}

func (l *Logger) Start(ctx context.Context) {
	if l.testMode {
		log.Info("running in test mode")
		l.runTestMode(ctx)
		return
	}
	go runGPS(ctx, l.gpsPort, l.gpsChan)
}

// SubmitDash offers a dash reading without blocking; if the previous one has
// not been consumed yet the new one is dropped.
func (l *Logger) SubmitDash(r DashReading) {
	select {
	case l.dashChan <- r:
	default:
	}
}

// StartRace asks the run loop to record the altitude all later frames are
// relative to and to mark the next frame with the race start warning. A
// reference of NaN uses the last GPS altitude. It may be called from any
// goroutine; a start arriving while another is still pending is dropped.
func (l *Logger) StartRace(referenceFeet float64) {
	select {
	case l.raceStartChan <- referenceFeet:
	default:
		log.Warn("race start already pending")
	}
}

func (l *Logger) Frame() telemetry.Frame {
	return l.frame
}

// CheckChannels waits for one reading and reports whether it changed the
// frame.
func (l *Logger) CheckChannels(ctx context.Context) (changed bool) {
	newFrame := l.frame
	select {
	case gps := <-l.gpsChan:
		l.applyGPS(&newFrame, gps)
	case dash := <-l.dashChan:
		applyDash(&newFrame, dash)
	case ref := <-l.raceStartChan:
		l.applyRaceStart(&newFrame, ref)
	case <-ctx.Done():
		return false
	}
	if l.raceStartEdge {
		newFrame.Warnings.Set(telemetry.WarnRaceStart)
	}
	if newFrame != l.frame {
		l.frame = newFrame
		return true
	}
	return false
}

func (l *Logger) applyGPS(f *telemetry.Frame, gps gpsData) {
	if !gps.Fix {
		f.Warnings.Set(telemetry.WarnGPS)
		return
	}
	f.Warnings.Clear(telemetry.WarnGPS)
	f.Latitude = float32(float64(gps.Latitude) / math.Pow(10, 7))
	f.Longitude = float32(float64(gps.Longitude) / math.Pow(10, 7))

	l.lastAltitude = float64(gps.Altitude) / cmPerFoot
	l.haveAltitude = true
	if l.reference != nil {
		f.Altitude = clampInt16(math.Round(l.lastAltitude - *l.reference))
	}
}

func (l *Logger) applyRaceStart(f *telemetry.Frame, referenceFeet float64) {
	if math.IsNaN(referenceFeet) {
		referenceFeet = l.lastAltitude
	}
	l.reference = &referenceFeet
	l.raceStartEdge = true
	if l.haveAltitude {
		f.Altitude = clampInt16(math.Round(l.lastAltitude - referenceFeet))
	}
	log.WithField("referenceFeet", referenceFeet).Info("race started")
}

func applyDash(f *telemetry.Frame, d DashReading) {
	f.RPM = uint16(clampRange(d.RPM, math.MaxUint16))
	f.TempMotorF = uint8(clampRange(d.TempMotorF, math.MaxUint8))
	f.TempAuxF = uint8(clampRange(d.TempAuxF, math.MaxUint8))
	f.SetVolts(d.Volts)
	f.SetAmps(d.Amps)
	f.SetSpeed(d.Speed)
	f.Energy = uint16(clampRange(d.Energy, math.MaxUint16))
	f.TotalEnergy = uint8(clampRange(d.Energy/10, math.MaxUint8))
	f.EnergyRemaining = uint8(clampRange(d.EnergyRemaining, math.MaxUint8))
	f.Laps = uint8(clampRange(float64(d.Laps), math.MaxUint8))
	f.LapTime = uint16(clampRange(float64(d.LapTime), math.MaxUint16))
	f.RaceTime = uint16(clampRange(float64(d.RaceTime), math.MaxUint16))
	f.Distance = uint16(clampRange(d.Distance*100, math.MaxUint16))
	f.TimeRemaining = uint8(clampRange(float64(d.TimeRemaining), math.MaxUint8))
	f.LapAmps = uint16(clampRange(d.LapAmps/10, math.MaxUint16))
	f.Lap2Amps = uint16(clampRange(d.Lap2Amps, math.MaxUint16))
	f.LapEnergy = uint16(clampRange(d.LapEnergy, math.MaxUint16))
	f.DistanceToStart = uint8(clampRange(d.DistanceToStart*100, math.MaxUint8))
	f.DriverNumber = uint8(clampRange(float64(d.DriverNumber), telemetry.Hops-1))
	f.D0Time = uint16(clampRange(float64(d.DriverTimes[0]), math.MaxUint16))
	f.D1Time = uint16(clampRange(float64(d.DriverTimes[1]), math.MaxUint16))
	f.D2Time = uint16(clampRange(float64(d.DriverTimes[2]), math.MaxUint16))
	f.SetGForce(d.GForceX, d.GForceY, d.GForceZ)
	f.Warnings.Clear(telemetry.WarnKeyOff)
	if d.RPM == 0 && d.Volts == 0 {
		f.Warnings.Set(telemetry.WarnKeyOff)
	}
}

func clampRange(v, max float64) float64 {
	v = math.Round(v)
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > max:
		return max
	}
	return v
}

func clampInt16(v float64) int16 {
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, v)))
}

// TelemetryUpdate sends the current frame to every forwarder.
func (l *Logger) TelemetryUpdate() {
	if l.roster != nil {
		if err := l.roster.Validate(&l.frame); err != nil {
			log.WithField("err", err).Warn("frame indices outside roster")
		}
	}
	for _, fwd := range l.forwarders {
		if err := fwd.Forward(&l.frame); err != nil {
			log.WithField("err", err).Error("unable to forward telemetry")
		}
	}
	if l.raceStartEdge {
		l.raceStartEdge = false
		l.frame.Warnings.Clear(telemetry.WarnRaceStart)
	}
}

// Run loops until ctx is done, forwarding each changed frame.
func (l *Logger) Run(ctx context.Context) error {
	l.Start(ctx)
	for {
		if l.CheckChannels(ctx) {
			l.TelemetryUpdate()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
