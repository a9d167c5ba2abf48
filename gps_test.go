package racelink

import (
	"context"
	"sync"
	"testing"

	"github.com/jd3nn1s/skytraq"
	"github.com/stretchr/testify/assert"
)

func TestRunGPS(t *testing.T) {
	l := NewLogger()

	origGPSConnect := gpsConnect
	defer func() {
		gpsConnect = origGPSConnect
	}()

	stub := createGPSStub()
	var openedPort string
	gpsConnect = func(p string) (GPS, error) {
		openedPort = p
		return stub, nil
	}

	gps := &gpsRetryable{
		sendChan: l.gpsChan,
	}

	// close before opening
	assert.NoError(t, gps.Close())
	assert.NoError(t, gps.Open())
	assert.Equal(t, gpsPortName, openedPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		_ = gps.Start(ctx)
		wg.Done()
	}()
	<-stub.startChan

	stub.fnChan <- func() {
		stub.callbacks.SoftwareVersion(skytraq.SoftwareVersion{
			Kernel:   skytraq.Version{1, 2, 3},
			ODM:      skytraq.Version{4, 5, 6},
			Revision: skytraq.Version{7, 8, 9},
		})
	}

	navData := skytraq.NavData{
		Fix:            skytraq.Fix3D,
		SatelliteCount: 1,
		Latitude:       2,
		Longitude:      3,
		Altitude:       4,
		VX:             5,
		VY:             7,
		VZ:             8,
		HDOP:           9,
	}

	stub.fnChan <- func() {
		stub.callbacks.NavData(navData)
	}

	data := <-l.gpsChan
	assert.True(t, data.Fix)
	assert.Equal(t, 2, data.Latitude)

	cancel()
	wg.Wait()
}

func TestNavDataFn(t *testing.T) {
	l := NewLogger()
	gps := gpsRetryable{
		sendChan: l.gpsChan,
	}

	navData := skytraq.NavData{
		Fix:            skytraq.FixNone,
		SatelliteCount: 1,
		Latitude:       2,
		Longitude:      3,
		Altitude:       4,
		VX:             5,
		VY:             7,
		VZ:             8,
		HDOP:           9,
	}

	gps.navDataFn(navData)
	data := <-l.gpsChan
	assert.False(t, data.Fix, "no fix should be reported as such")
	assert.Equal(t, 0, data.Latitude)

	navData.Fix = skytraq.Fix3D
	gps.navDataFn(navData)
	data = <-l.gpsChan
	assert.True(t, data.Fix)
	assert.Equal(t, 2, data.Latitude)
	assert.Equal(t, 3, data.Longitude)
	assert.Equal(t, 4, data.Altitude)

	navData.HDOP = maxHDOP + 1
	gps.navDataFn(navData)
	assertNoData(t, l.gpsChan, "unexpected data on channel as there is high HDOP")
}

func assertNoData(t *testing.T, gpsChan <-chan gpsData, msg string) {
	select {
	case <-gpsChan:
		assert.Fail(t, msg)
	default:
	}
}
