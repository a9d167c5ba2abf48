package racelink

import (
	"context"

	"github.com/jd3nn1s/skytraq"

	"github.com/jd3nn1s/racelink/boardcan"
	"github.com/jd3nn1s/racelink/racestate"
	"github.com/jd3nn1s/racelink/telemetry"
)

type GPS interface {
	Close() error
	Start(context.Context, skytraq.Callbacks) error
}

type BoardBus interface {
	Close() error
	Start(context.Context, boardcan.Callbacks) error
	SendRaceState(*racestate.Frame) error
}

// Forwarder receives every changed telemetry frame.
type Forwarder interface {
	Forward(frame *telemetry.Frame) error
}
