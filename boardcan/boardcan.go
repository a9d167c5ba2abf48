// Package boardcan distributes race state frames to the display boards over
// CAN. A frame is larger than one CAN payload, so it is sent as a run of
// segments on consecutive IDs starting at the configured base ID.
package boardcan

import (
	"context"
	"sync"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jd3nn1s/racelink/racestate"
)

const (
	DefaultBaseID uint32 = 0x200

	segmentSize = 8
	segments    = (racestate.FrameSize + segmentSize - 1) / segmentSize
)

type Config struct {
	Interface string `toml:"interface"`
	BaseID    uint32 `toml:"base_id"`
}

type RaceStateFn func(*racestate.Frame)

type Callbacks struct {
	RaceState RaceStateFn
}

type CANBus interface {
	SubscribeFunc(can.HandlerFunc)
	ConnectAndPublish() error
	Disconnect() error
	Publish(can.Frame) error
}

// to allow testing
var newBus = func(name string) (CANBus, error) {
	return can.NewBusForInterfaceWithName(name)
}

type Connection struct {
	bus    CANBus
	baseID uint32
	codec  *racestate.Codec
	cb     Callbacks

	mu       sync.Mutex
	buf      [racestate.FrameSize]byte
	received uint16
}

func Connect(cfg Config, codec *racestate.Codec) (*Connection, error) {
	bus, err := newBus(cfg.Interface)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open can interface %s", cfg.Interface)
	}
	baseID := cfg.BaseID
	if baseID == 0 {
		baseID = DefaultBaseID
	}
	return &Connection{
		bus:    bus,
		baseID: baseID,
		codec:  codec,
	}, nil
}

func (c *Connection) Start(ctx context.Context, cb Callbacks) error {
	c.cb = cb
	c.bus.SubscribeFunc(c.handleFrame)
	log.Info("CAN bus opened and subscribed")

	go func() {
		<-ctx.Done()
		log.Infof("stopping can bus: %v", ctx.Err())
		if err := c.bus.Disconnect(); err != nil {
			log.WithField("err", err).Warn("unable to disconnect canbus after context")
		}
	}()

	return c.bus.ConnectAndPublish()
}

func (c *Connection) Close() error {
	if c.bus == nil {
		return errors.New("can bus not connected")
	}
	return c.bus.Disconnect()
}

// SendRaceState publishes every segment of f in order.
func (c *Connection) SendRaceState(f *racestate.Frame) error {
	if c.bus == nil {
		return errors.New("can bus not connected")
	}
	data := c.codec.Encode(f)
	log.WithField("cars", len(f.Active())).
		WithField("flag", f.Flag).
		Debug("sending race state over canbus")
	for seq := 0; seq < segments; seq++ {
		chunk := data[seq*segmentSize:]
		if len(chunk) > segmentSize {
			chunk = chunk[:segmentSize]
		}
		frame := can.Frame{
			ID:     c.baseID + uint32(seq),
			Length: uint8(len(chunk)),
		}
		copy(frame.Data[:], chunk)
		if err := c.bus.Publish(frame); err != nil {
			return errors.Wrapf(err, "unable to publish race state segment %d", seq)
		}
	}
	return nil
}

func segmentLength(seq int) int {
	if rest := racestate.FrameSize - seq*segmentSize; rest < segmentSize {
		return rest
	}
	return segmentSize
}

func (c *Connection) handleFrame(frame can.Frame) {
	log.WithField("canID", frame.ID).
		WithField("length", frame.Length).
		Debug("received canbus frame")

	if frame.ID < c.baseID || frame.ID >= c.baseID+segments {
		log.WithField("canID", frame.ID).Debug("not a race state segment")
		return
	}
	seq := int(frame.ID - c.baseID)
	if int(frame.Length) != segmentLength(seq) {
		log.WithField("canID", frame.ID).
			WithField("length", frame.Length).
			Error("incorrect race state segment size")
		c.reset()
		return
	}

	f, err := c.assemble(seq, frame.Data[:frame.Length])
	if err != nil {
		log.WithField("err", err).Error("unable to decode race state")
		return
	}
	if f == nil {
		return
	}
	if c.cb.RaceState == nil {
		log.Debug("no race state callback registered")
		return
	}
	c.cb.RaceState(f)
}

// assemble stores one segment and returns the decoded frame once the last
// one has arrived. Segment 0 always starts a new frame.
func (c *Connection) assemble(seq int, data []byte) (*racestate.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq == 0 {
		c.received = 0
	}
	copy(c.buf[seq*segmentSize:], data)
	c.received |= 1 << seq

	if c.received != 1<<segments-1 {
		return nil, nil
	}
	c.received = 0
	return c.codec.Decode(c.buf[:])
}

func (c *Connection) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = 0
}
