package forwarder

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jd3nn1s/racelink/telemetry"
)

// every packet starts with one byte naming the record that follows
const headerSize = 1

// TypeTelemetry is the only record sent over the radio. Race state is too
// large for one radio payload and reaches the boards over NATS and CAN.
const TypeTelemetry = 1

const defaultInterval = 100 * time.Millisecond

type UDPConfig struct {
	Server string `toml:"server"`
	Port   int    `toml:"port"`
	// Listen is the receiver's bind address, host:port.
	Listen string `toml:"listen"`
	// Interval is the minimum spacing between telemetry packets.
	Interval time.Duration `toml:"interval"`
}

type UDPForwarder struct {
	Config *UDPConfig

	codec   *telemetry.Codec
	conn    net.Conn
	fwdChan chan *telemetry.Frame
	mu      sync.Mutex
}

func NewUDPForwarder(config *UDPConfig, codec *telemetry.Codec) (*UDPForwarder, error) {
	if size := headerSize + codec.Size(); size > telemetry.MaxPacketSize {
		return nil, errors.Errorf("telemetry packet of %d bytes exceeds radio limit of %d", size, telemetry.MaxPacketSize)
	}
	udp := &UDPForwarder{
		Config:  config,
		codec:   codec,
		fwdChan: make(chan *telemetry.Frame, 1),
	}
	if err := udp.connect(); err != nil {
		return nil, err
	}
	return udp, nil
}

func (udp *UDPForwarder) Close() error {
	return udp.conn.Close()
}

func (udp *UDPForwarder) Forward(frame *telemetry.Frame) error {
	frameCopy := *frame
	select {
	// copy the frame as it is encoded on another go-routine
	case udp.fwdChan <- &frameCopy:
	default:
		// if channel is full, skip
	}
	return nil
}

func (udp *UDPForwarder) Start(ctx context.Context) error {
	interval := udp.Config.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	limiter := time.NewTicker(interval)
	defer limiter.Stop()
	for {
		select {
		case <-limiter.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case f := <-udp.fwdChan:
			if err := udp.send(TypeTelemetry, udp.codec.Encode(f)); err != nil {
				log.Error("unable to forward telemetry to server ", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (udp *UDPForwarder) send(typ uint8, payload []byte) error {
	if size := headerSize + len(payload); size > telemetry.MaxPacketSize {
		return errors.Errorf("packet type %d of %d bytes exceeds radio limit of %d", typ, size, telemetry.MaxPacketSize)
	}
	buf := make([]byte, 0, headerSize+len(payload))
	buf = append(buf, typ)
	buf = append(buf, payload...)

	udp.mu.Lock()
	defer udp.mu.Unlock()
	if _, err := udp.conn.Write(buf); err != nil {
		return errors.Wrapf(err, "unable to write packet type %d", typ)
	}
	return nil
}

func (udp *UDPForwarder) connect() error {
	writeBufSize := telemetry.MaxPacketSize * 2

	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d",
		udp.Config.Server,
		udp.Config.Port))
	if err != nil {
		return errors.Wrap(err, "unable to dial udp server")
	}
	udpConn := conn.(*net.UDPConn)
	if err = udpConn.SetWriteBuffer(writeBufSize); err != nil {
		return errors.Wrapf(err, "unable to set OS write buffer to %v", writeBufSize)
	}

	udp.conn = conn
	return nil
}
