package racelink

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jd3nn1s/racelink/boardcan"
	"github.com/jd3nn1s/racelink/racestate"
)

// to allow testing
var boardBusConnect = func(cfg boardcan.Config) (BoardBus, error) {
	c, err := boardcan.Connect(cfg, racestate.NewCodec())
	if err != nil {
		return nil, err
	}
	return c, nil
}

type boardBusRetryable struct {
	cfg boardcan.Config

	mu sync.Mutex
	c  BoardBus
}

func (b *boardBusRetryable) Name() string {
	return "boards"
}

func (b *boardBusRetryable) Open() error {
	c, err := boardBusConnect(b.cfg)
	b.mu.Lock()
	b.c = c
	b.mu.Unlock()
	return err
}

func (b *boardBusRetryable) Close() error {
	c := b.bus()
	if c == nil {
		return nil
	}
	return c.Close()
}

func (b *boardBusRetryable) Start(ctx context.Context) error {
	return b.bus().Start(ctx, boardcan.Callbacks{})
}

func (b *boardBusRetryable) bus() BoardBus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c
}

// BoardForwarder pushes race state to the display boards whenever it
// changes.
type BoardForwarder struct {
	boards *boardBusRetryable

	mu   sync.Mutex
	prev *racestate.Frame
}

func NewBoardForwarder(cfg boardcan.Config) *BoardForwarder {
	return &BoardForwarder{
		boards: &boardBusRetryable{cfg: cfg},
	}
}

// Run keeps the CAN connection up until ctx is done.
func (fwd *BoardForwarder) Run(ctx context.Context) {
	if err := retry(ctx, fwd.boards); err != nil {
		log.Errorf("boards done: %v", err)
	}
}

func (fwd *BoardForwarder) Forward(f *racestate.Frame) error {
	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	if fwd.prev != nil && *fwd.prev == *f {
		return nil
	}
	bus := fwd.boards.bus()
	if bus == nil {
		return errors.New("board bus is not initialized")
	}
	if err := bus.SendRaceState(f); err != nil {
		return errors.Wrap(err, "unable to send race state to boards")
	}
	frameCopy := *f
	fwd.prev = &frameCopy
	return nil
}
