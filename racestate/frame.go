// Package racestate carries the RaceMonitor record: the standing of up to
// eight cars and the track flag, sent to the display boards.
package racestate

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	Slots = 8
	// CarNumberWidth is the fixed size of a car number on the wire. Shorter
	// numbers are NUL padded.
	CarNumberWidth = 5

	carWordSize  = 4
	flagWordSize = 2

	FrameSize = Slots*CarNumberWidth + Slots*carWordSize + flagWordSize
)

type Flag uint8

const (
	FlagNone Flag = iota
	FlagGreen
	FlagYellow
	FlagRed
)

func (f Flag) String() string {
	switch f {
	case FlagNone:
		return "none"
	case FlagGreen:
		return "green"
	case FlagYellow:
		return "yellow"
	case FlagRed:
		return "red"
	}
	return fmt.Sprintf("Flag(%d)", uint8(f))
}

func ParseFlag(s string) (Flag, error) {
	for _, f := range []Flag{FlagNone, FlagGreen, FlagYellow, FlagRed} {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return FlagNone, errors.Errorf("unknown flag %q", s)
}

// Car is one slot of the frame. The slot index carries no meaning; Position
// is the rank handed out by race timing and is passed through unchecked.
type Car struct {
	Number     string
	BestLap    uint16 // seconds
	CurrentLap uint16 // seconds
	Position   uint8  // 0 when unranked
	Laps       uint8
}

// Empty reports whether the slot holds no car.
func (c Car) Empty() bool {
	return c == Car{}
}

type Frame struct {
	Cars [Slots]Car
	Flag Flag
	// Reserved holds the unused low bits of the flag word.
	Reserved uint16
}

// Active returns the indices of the slots that hold a car.
func (f *Frame) Active() []int {
	var idx []int
	for i, c := range f.Cars {
		if !c.Empty() {
			idx = append(idx, i)
		}
	}
	return idx
}
