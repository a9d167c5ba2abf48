package bitfield

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrWrongLength matches any *DecodeError of kind WrongLength.
var ErrWrongLength = errors.New("wrong frame length")

type ErrorKind int

const (
	WrongLength ErrorKind = iota + 1
)

func (k ErrorKind) String() string {
	switch k {
	case WrongLength:
		return "WrongLength"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

type DecodeError struct {
	Kind  ErrorKind
	Frame string
	Want  int
	Got   int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s frame: %v: got %d bytes, want %d", e.Frame, e.Kind, e.Got, e.Want)
}

func (e *DecodeError) Is(target error) bool {
	return e.Kind == WrongLength && target == ErrWrongLength
}

// CheckLength returns a WrongLength *DecodeError when got != want.
func CheckLength(frame string, got, want int) error {
	if got == want {
		return nil
	}
	return &DecodeError{
		Kind:  WrongLength,
		Frame: frame,
		Want:  want,
		Got:   got,
	}
}
