// Package natsrelay republishes frames received from the car on NATS so
// pit-wall tools can subscribe without touching the radio link.
package natsrelay

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jd3nn1s/racelink/racestate"
	"github.com/jd3nn1s/racelink/telemetry"
)

const (
	DefaultSubject = "racelink"

	HeaderVersion = "Racelink-Version"
	HeaderKind    = "Racelink-Kind"

	kindTelemetry = "telemetry"
	kindRaceState = "racestate"
)

type Config struct {
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
}

// Publisher is the part of *nats.Conn the relay needs.
type Publisher interface {
	PublishMsg(*nats.Msg) error
}

// Subscriber is implemented by *nats.Conn. A Publisher that also implements
// it lets the relay receive race state.
type Subscriber interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

type Relay struct {
	pub     Publisher
	sub     Subscriber
	subject string
	codec   *telemetry.Codec
	rsCodec *racestate.Codec
	conn    *nats.Conn
}

func Connect(cfg Config, codec *telemetry.Codec, rsCodec *racestate.Codec) (*Relay, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name("racelink"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithField("err", err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.WithField("url", c.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to nats at %s", url)
	}
	r := New(conn, cfg.Subject, codec, rsCodec)
	r.conn = conn
	return r, nil
}

func New(pub Publisher, subject string, codec *telemetry.Codec, rsCodec *racestate.Codec) *Relay {
	if subject == "" {
		subject = DefaultSubject
	}
	r := &Relay{
		pub:     pub,
		subject: subject,
		codec:   codec,
		rsCodec: rsCodec,
	}
	if sub, ok := pub.(Subscriber); ok {
		r.sub = sub
	}
	return r
}

func (r *Relay) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

// TelemetrySubject is where frames from car are published.
func (r *Relay) TelemetrySubject(car telemetry.Car) string {
	return fmt.Sprintf("%s.%s.%s", r.subject, kindTelemetry, strings.ToLower(car.String()))
}

func (r *Relay) RaceStateSubject() string {
	return fmt.Sprintf("%s.%s", r.subject, kindRaceState)
}

// PublishTelemetry sends the frame in its wire encoding. The layout version
// travels in a header because the payload does not carry it.
func (r *Relay) PublishTelemetry(f *telemetry.Frame) error {
	msg := nats.NewMsg(r.TelemetrySubject(f.SourceID))
	msg.Data = r.codec.Encode(f)
	msg.Header.Set(HeaderKind, kindTelemetry)
	msg.Header.Set(HeaderVersion, fmt.Sprint(int(r.codec.Version())))
	if err := r.pub.PublishMsg(msg); err != nil {
		return errors.Wrap(err, "unable to publish telemetry")
	}
	return nil
}

func (r *Relay) PublishRaceState(f *racestate.Frame) error {
	msg := nats.NewMsg(r.RaceStateSubject())
	msg.Data = r.rsCodec.Encode(f)
	msg.Header.Set(HeaderKind, kindRaceState)
	if err := r.pub.PublishMsg(msg); err != nil {
		return errors.Wrap(err, "unable to publish race state")
	}
	return nil
}

// Forward lets the relay sit behind the logger like any other forwarder.
func (r *Relay) Forward(f *telemetry.Frame) error {
	return r.PublishTelemetry(f)
}

// DecodeTelemetry turns a relayed message back into a frame, checking that
// it was encoded with the same layout version as codec.
func DecodeTelemetry(msg *nats.Msg, codec *telemetry.Codec) (*telemetry.Frame, error) {
	if v := msg.Header.Get(HeaderVersion); v != "" {
		version, err := telemetry.ParseVersion(v)
		if err != nil {
			return nil, err
		}
		if version != codec.Version() {
			return nil, errors.Errorf("message has telemetry version %v, codec expects %v", version, codec.Version())
		}
	}
	return codec.Decode(msg.Data)
}

// SubscribeRaceState calls fn with every race state published by the timing
// collaborator. Undecodable messages are logged and dropped.
func (r *Relay) SubscribeRaceState(fn func(*racestate.Frame)) (*nats.Subscription, error) {
	if r.sub == nil {
		return nil, errors.New("relay cannot subscribe")
	}
	sub, err := r.sub.Subscribe(r.RaceStateSubject(), r.raceStateHandler(fn))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to subscribe to %s", r.RaceStateSubject())
	}
	return sub, nil
}

func (r *Relay) raceStateHandler(fn func(*racestate.Frame)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		f, err := DecodeRaceState(msg, r.rsCodec)
		if err != nil {
			log.WithField("subject", msg.Subject).
				WithField("err", err).
				Warn("dropping race state message")
			return
		}
		fn(f)
	}
}

func DecodeRaceState(msg *nats.Msg, codec *racestate.Codec) (*racestate.Frame, error) {
	if kind := msg.Header.Get(HeaderKind); kind != "" && kind != kindRaceState {
		return nil, errors.Errorf("message kind %q is not race state", kind)
	}
	return codec.Decode(msg.Data)
}
