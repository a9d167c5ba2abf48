package bitfield

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Segment is a raw bit range of a Word. A logical value may span segments of
// several words.
type Segment struct {
	Name  string
	Width uint
}

// Word is a container of Size bits. Segments are listed most significant
// first.
type Word struct {
	Name     string
	Size     uint
	Segments []Segment
}

func (w Word) Validate() error {
	if w.Size != Word16 && w.Size != Word32 {
		return errors.Errorf("word %s: unsupported size %d", w.Name, w.Size)
	}
	for _, s := range w.Segments {
		if s.Width == 0 {
			return errors.Errorf("word %s: segment %s has zero width", w.Name, s.Name)
		}
	}
	sum := lo.SumBy(w.Segments, func(s Segment) uint {
		return s.Width
	})
	if sum != w.Size {
		return errors.Errorf("word %s: segment widths sum to %d, want %d", w.Name, sum, w.Size)
	}
	return nil
}

// Fields returns the unsigned bit fields of the word with their offsets.
func (w Word) Fields() []Field {
	fields := make([]Field, 0, len(w.Segments))
	offset := w.Size
	for _, s := range w.Segments {
		offset -= s.Width
		fields = append(fields, Field{
			Name:   s.Name,
			Width:  s.Width,
			Offset: offset,
		})
	}
	return fields
}

// Bytes is the size of the word on the wire.
func (w Word) Bytes() int {
	return int(w.Size / 8)
}
