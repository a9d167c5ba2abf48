package racelink

import (
	"context"
	"sync"

	"github.com/jd3nn1s/skytraq"

	"github.com/jd3nn1s/racelink/boardcan"
	"github.com/jd3nn1s/racelink/racestate"
	"github.com/jd3nn1s/racelink/telemetry"
)

type sensorStub struct {
	startChan chan struct{}
	errChan   chan error
	fnChan    chan func()
}

type skytraqStub struct {
	sensorStub
	callbacks skytraq.Callbacks
}

type boardBusStub struct {
	sensorStub
	mu        sync.Mutex
	sent      []*racestate.Frame
	sendErr   error
	callbacks boardcan.Callbacks
}

func createSensorStub() *sensorStub {
	ret := sensorStub{
		startChan: make(chan struct{}, 1),
		errChan:   make(chan error),
		fnChan:    make(chan func()),
	}
	return &ret
}

func (s *sensorStub) Close() error {
	return nil
}

func (s *sensorStub) start(ctx context.Context) error {
	select {
	case s.startChan <- struct{}{}:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-s.errChan:
			return err
		case fn := <-s.fnChan:
			fn()
		}
	}
}

func createGPSStub() *skytraqStub {
	return &skytraqStub{
		sensorStub: *createSensorStub(),
	}
}

func (k *skytraqStub) Start(ctx context.Context, callbacks skytraq.Callbacks) error {
	k.callbacks = callbacks
	return k.sensorStub.start(ctx)
}

func createBoardBusStub() *boardBusStub {
	return &boardBusStub{
		sensorStub: *createSensorStub(),
	}
}

func (b *boardBusStub) Start(ctx context.Context, callbacks boardcan.Callbacks) error {
	b.callbacks = callbacks
	return b.sensorStub.start(ctx)
}

func (b *boardBusStub) SendRaceState(f *racestate.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, f)
	return nil
}

type forwarderStub struct {
	frames []telemetry.Frame
	err    error
}

func (fwd *forwarderStub) Forward(frame *telemetry.Frame) error {
	fwd.frames = append(fwd.frames, *frame)
	return fwd.err
}

type forwarderFunc func(*telemetry.Frame) error

func (fn forwarderFunc) Forward(frame *telemetry.Frame) error {
	return fn(frame)
}
