package racelink

import (
	"context"

	"github.com/jd3nn1s/skytraq"
	log "github.com/sirupsen/logrus"
)

const (
	// maximum horizontal dilution of precision
	maxHDOP = 500
)

const gpsPortName = "/dev/ttyAMA0"

type gpsRetryable struct {
	c        GPS
	port     string
	sendChan chan<- gpsData
}

func (g *gpsRetryable) Open() error {
	port := g.port
	if port == "" {
		port = gpsPortName
	}
	c, err := gpsConnect(port)
	g.c = c
	return err
}

func (g *gpsRetryable) Close() error {
	if g.c == nil {
		return nil
	}
	return g.c.Close()
}

func (g *gpsRetryable) Start(ctx context.Context) error {
	return g.c.Start(ctx, skytraq.Callbacks{
		SoftwareVersion: func(version skytraq.SoftwareVersion) {
			log.Infof("gps software version: %v", version)
		},
		NavData: g.navDataFn,
	})
}

func (g *gpsRetryable) Name() string {
	return "gps"
}

// navDataFn passes on fixes good enough to plot a race line. Losing the fix
// is passed on too so the GPS warning can be raised.
func (g *gpsRetryable) navDataFn(navData skytraq.NavData) {
	data := gpsData{}
	switch {
	case navData.Fix == skytraq.FixNone:
		log.Warn("no satellite fix")
	case navData.HDOP > maxHDOP:
		log.WithField("HDOP", navData.HDOP).Warn("poor resolution")
		return
	default:
		data = gpsData{
			Fix:       true,
			Latitude:  navData.Latitude,
			Longitude: navData.Longitude,
			Altitude:  navData.Altitude,
		}
	}

	select {
	case g.sendChan <- data:
	default:
	}
}

var gpsConnect = func(p string) (GPS, error) {
	c, err := skytraq.Connect(p)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func runGPS(ctx context.Context, port string, sendChan chan<- gpsData) {
	err := retry(ctx, &gpsRetryable{
		port:     port,
		sendChan: sendChan,
	})
	if err != nil {
		log.Errorf("gps done: %v", err)
	}
}
