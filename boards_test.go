package racelink

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jd3nn1s/racelink/boardcan"
	"github.com/jd3nn1s/racelink/racestate"
)

func TestBoardForwarder(t *testing.T) {
	defer noDelays()()
	origBoardBusConnect := boardBusConnect
	defer func() {
		boardBusConnect = origBoardBusConnect
	}()

	stub := createBoardBusStub()
	var connectedWith boardcan.Config
	boardBusConnect = func(cfg boardcan.Config) (BoardBus, error) {
		connectedWith = cfg
		return stub, nil
	}

	cfg := boardcan.Config{Interface: "vcan0", BaseID: 0x300}
	fwd := NewBoardForwarder(cfg)

	f := &racestate.Frame{Flag: racestate.FlagGreen}
	f.Cars[0] = racestate.Car{Number: "42", Position: 1, Laps: 3}
	assert.Error(t, fwd.Forward(f), "nothing is connected yet")

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		fwd.Run(ctx)
		wg.Done()
	}()
	<-stub.startChan
	assert.Equal(t, cfg, connectedWith)

	require.NoError(t, fwd.Forward(f))
	require.NoError(t, fwd.Forward(f))
	assert.Len(t, stub.sent, 1, "unchanged race state should not be resent")

	changed := *f
	changed.Flag = racestate.FlagYellow
	require.NoError(t, fwd.Forward(&changed))
	assert.Len(t, stub.sent, 2)
	assert.Equal(t, racestate.FlagYellow, stub.sent[1].Flag)

	// the forwarder keeps its own copy
	changed.Flag = racestate.FlagRed
	require.NoError(t, fwd.Forward(&changed))
	assert.Len(t, stub.sent, 3)

	cancel()
	wg.Wait()
}

func TestBoardForwarderSendError(t *testing.T) {
	defer noDelays()()
	origBoardBusConnect := boardBusConnect
	defer func() {
		boardBusConnect = origBoardBusConnect
	}()

	stub := createBoardBusStub()
	stub.sendErr = errors.New("bus off")
	boardBusConnect = func(boardcan.Config) (BoardBus, error) {
		return stub, nil
	}

	fwd := NewBoardForwarder(boardcan.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		fwd.Run(ctx)
		wg.Done()
	}()
	<-stub.startChan

	f := &racestate.Frame{Flag: racestate.FlagRed}
	assert.Error(t, fwd.Forward(f))

	// a failed send is retried on the next forward
	stub.mu.Lock()
	stub.sendErr = nil
	stub.mu.Unlock()
	assert.NoError(t, fwd.Forward(f))
	assert.Len(t, stub.sent, 1)

	cancel()
	wg.Wait()
}

func TestBoardBusRetryableClose(t *testing.T) {
	b := &boardBusRetryable{}
	assert.NoError(t, b.Close(), "closing before opening")
	assert.Equal(t, "boards", b.Name())
}
