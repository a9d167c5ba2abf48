package forwarder

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jd3nn1s/racelink/telemetry"
)

const readTimeout = 500 * time.Millisecond

type Handlers struct {
	Telemetry func(*telemetry.Frame)
}

// Receiver is the pit side of the link. It decodes every packet it reads
// and hands the records to Handlers; undecodable packets are logged and
// dropped.
type Receiver struct {
	conn  net.PacketConn
	codec *telemetry.Codec

	received atomic.Uint64
	dropped  atomic.Uint64
}

func Listen(addr string, codec *telemetry.Codec) (*Receiver, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on %s", addr)
	}
	return &Receiver{
		conn:  conn,
		codec: codec,
	}, nil
}

func (r *Receiver) Addr() net.Addr {
	return r.conn.LocalAddr()
}

func (r *Receiver) Close() error {
	return r.conn.Close()
}

// Received and Dropped count packets since the receiver started.
func (r *Receiver) Received() uint64 {
	return r.received.Load()
}

func (r *Receiver) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Receiver) Start(ctx context.Context, h Handlers) error {
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return errors.Wrap(err, "unable to set read deadline")
		}
		n, addr, err := r.conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return errors.Wrap(err, "unable to read packet")
		}
		r.received.Add(1)
		if err := r.handlePacket(buf[:n], h); err != nil {
			r.dropped.Add(1)
			log.WithField("from", addr).
				WithField("len", n).
				WithField("err", err).
				Warn("dropping packet")
		}
	}
}

func (r *Receiver) handlePacket(b []byte, h Handlers) error {
	if len(b) < headerSize {
		return errors.New("empty packet")
	}
	payload := b[headerSize:]
	switch b[0] {
	case TypeTelemetry:
		f, err := r.codec.Decode(payload)
		if err != nil {
			return err
		}
		if h.Telemetry != nil {
			h.Telemetry(f)
		}
	default:
		return errors.Errorf("unknown packet type %d", b[0])
	}
	return nil
}
