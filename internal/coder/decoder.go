// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	stderrors "errors"
	"reflect"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/bits"
	"go.e43.eu/oer/internal/errors"
	"go.e43.eu/oer/internal/wire"
)

// phase is the stage a composite value's decode has reached
type phase int

const (
	// SEQUENCE preamble; SEQUENCE OF quantity; CHOICE tag
	phasePreamble phase = 0
	// Root component fields; SEQUENCE OF elements; CHOICE alternative
	phaseRoot phase = 1
	// Extension addition presence bitmap
	phaseExtPresence phase = 2
	// Known extension additions
	phaseExtFields phase = 3
	// Unknown extension additions, which are skipped
	phaseDrain phase = 4

	phaseDone phase = 10
)

// frame is the resumption state of one composite value being decoded. Frames
// are kept on a stack indexed by nesting depth; because a resumed decode
// retraces the same path through the value, the frame at a given depth always
// belongs to the same value.
type frame struct {
	phase phase
	// Index of the member being decoded within the current phase
	index int
	// Set once the decoder of the member at index has been invoked (and has
	// consumed part of its input)
	invoked bool
	// The extension bit of the preamble was set
	extPresent bool

	preamble *bits.Reader
	extmap   *bits.Reader

	// SEQUENCE OF quantity, or the selected CHOICE alternative
	count int
}

type decoder struct {
	cr     *Coder
	target reflect.Value
	codec  xCodec

	frames []*frame
	depth  int

	// A decoder which has failed stays failed
	err error
}

var _ oerinterfaces.Decoder = &decoder{}

func (d *decoder) Decode(buf []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}

	d.depth = 0
	n, err := d.codec.Decode(d, d.target, buf)
	switch {
	case err == nil:
		d.truncate(0)
	case isWantMore(err):
		err = errors.ErrWantMore
	default:
		d.err = err
		d.truncate(0)
	}
	return n, err
}

func (d *decoder) DecodeValue(v reflect.Value, buf []byte) (int, error) {
	return d.cr.getBaseCodec(v.Type()).Decode(d, v, buf)
}

func (d *decoder) DecodeLength(buf []byte) (int, int, error) {
	return wire.FetchLength(buf)
}

func (d *decoder) DecodeOpenType(v reflect.Value, buf []byte) (int, error) {
	return d.decodeOpen(d.cr.getBaseCodec(v.Type()), v, buf)
}

func (d *decoder) SkipOpenType(buf []byte) (int, error) {
	_, n, err := wire.FetchEnvelope(buf)
	return n, err
}

// decodeOpen decodes v with c from the contents of an open type envelope.
// Nothing is consumed until the whole envelope is present; the contents must
// then hold a complete value. Octets of the contents after the value are
// ignored.
func (d *decoder) decodeOpen(c xCodec, v reflect.Value, buf []byte) (int, error) {
	contents, n, err := wire.FetchEnvelope(buf)
	if err != nil {
		return 0, err
	}

	depth := d.depth
	_, err = c.Decode(d, v, contents)
	if isWantMore(err) {
		d.truncate(depth)
		d.depth = depth
		return 0, errors.ErrOpenTypeIncomplete
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// enter returns the frame for the composite value at the current depth,
// creating it if this is the first attempt to decode the value
func (d *decoder) enter() *frame {
	if d.depth < len(d.frames) {
		f := d.frames[d.depth]
		d.depth++
		return f
	}

	f := new(frame)
	d.frames = append(d.frames, f)
	d.depth++
	return f
}

// leave pops the frame entered last. Unless the value wants more input, its
// frame (and those of any values nested within it) are discarded.
func (d *decoder) leave(err error) {
	d.depth--
	if !isWantMore(err) {
		d.truncate(d.depth)
	}
}

func (d *decoder) truncate(depth int) {
	for i := depth; i < len(d.frames); i++ {
		d.frames[i] = nil
	}
	d.frames = d.frames[:depth]
}

func isWantMore(err error) bool {
	return err == errors.ErrWantMore || (err != nil && stderrors.Is(err, errors.ErrWantMore))
}

// decoderOf returns our decoder behind d. Composite codecs keep their
// resumption state in it.
func decoderOf(d oerinterfaces.Decoder) *decoder {
	if id, ok := d.(*decoder); ok {
		return id
	}
	panic("oer: composite values can only be decoded by the decoder of a Coder")
}
