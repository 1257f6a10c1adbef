// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"
	"reflect"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/bits"
	"go.e43.eu/oer/internal/errors"
	"go.e43.eu/oer/internal/wire"
)

// sequenceCodec handles SEQUENCE types.
//
// An OER SEQUENCE is laid out as
//   - a preamble holding the extension bit (if extensible) and a presence bit
//     for each OPTIONAL or DEFAULT root component, padded to an octet
//   - the present root components, in order
//   - if the extension bit is set, a bitmap of present extension additions
//     (framed by a length determinant and an unused bits octet)
//   - each present extension addition, inside an open type envelope
//
// Additions beyond those known to the type are skipped on decode.
type sequenceCodec struct {
	name   string
	fields []field
	// Index of the first extension addition in fields, or -1 if the type is
	// not extensible
	extStart int
	// Number of root components with a presence bit
	rootOptionals int
}

var _ xCodec = &sequenceCodec{}

func makeSequenceCodec(cr *Coder, t reflect.Type, pfs []parsedField, marker int) oerinterfaces.Codec {
	c := &sequenceCodec{
		name:     t.Name(),
		fields:   make([]field, 0, len(pfs)),
		extStart: marker,
	}

	for i, pf := range pfs {
		if pf.tag != nil && pf.tag.HasChoice {
			return &errorCodec{fmt.Errorf("Field '%s' of SEQUENCE '%s' is tagged as a CHOICE alternative", pf.sf.Name, t)}
		}

		f, err := makeField(cr, pf)
		if err != nil {
			return &errorCodec{fmt.Errorf("Parsing default of field '%s' of '%s': %v", pf.sf.Name, t, err)}
		}

		if f.optional && (marker < 0 || i < marker) {
			c.rootOptionals++
		}
		c.fields = append(c.fields, f)
	}
	return c
}

func (c *sequenceCodec) extensible() bool {
	return c.extStart >= 0
}

func (c *sequenceCodec) root() []field {
	if c.extensible() {
		return c.fields[:c.extStart]
	}
	return c.fields
}

func (c *sequenceCodec) extensions() []field {
	if c.extensible() {
		return c.fields[c.extStart:]
	}
	return nil
}

// present returns the value of f within v, and whether it is to be encoded.
// Components equal to their DEFAULT are not.
func (c *sequenceCodec) present(f *field, v reflect.Value) (reflect.Value, bool) {
	fv, ok := f.member.value(v)
	if ok && f.def != nil && f.def.equal(fv) {
		return fv, false
	}
	return fv, ok
}

// absent sets f of v to the value of an absent component
func (c *sequenceCodec) absent(f *field, v reflect.Value) {
	if f.def != nil {
		f.def.set(f.member.target(v))
	} else {
		f.member.clear(v)
	}
}

func (c *sequenceCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	var (
		total      int
		presence   bits.Writer
		extPresent bool
	)

	if c.extensible() {
		ext := c.extensions()
		for i := range ext {
			if _, ok := c.present(&ext[i], v); ok {
				extPresent = true
				break
			}
		}
		presence.PutBit(extPresent)
	}

	root := c.root()
	for i := range root {
		if f := &root[i]; f.optional {
			_, ok := c.present(f, v)
			presence.PutBit(ok)
		}
	}

	if presence.Len() > 0 {
		n, err := e.Write(presence.Bytes())
		total += n
		if err != nil {
			return total, err
		}
	}

	for i := range root {
		f := &root[i]
		fv, ok := c.present(f, v)
		if !ok {
			if f.optional {
				continue
			}
			return total, errors.WithFieldError(errors.ErrMissingField, c.name, f.name)
		}

		n, err := c.encodeField(e, f, fv)
		total += n
		if err != nil {
			return total, errors.WithFieldError(err, c.name, f.name)
		}
	}

	if !extPresent {
		return total, nil
	}

	// The extension bitmap
	ext := c.extensions()
	presence.Reset()
	for i := range ext {
		_, ok := c.present(&ext[i], v)
		presence.PutBit(ok)
	}

	var scratch [16]byte
	hdr := wire.AppendLength(scratch[:0], 1+len(presence.Bytes()))
	hdr = append(hdr, byte(presence.UnusedBits()))
	n, err := e.Write(hdr)
	total += n
	if err != nil {
		return total, err
	}
	n, err = e.Write(presence.Bytes())
	total += n
	if err != nil {
		return total, err
	}

	for i := range ext {
		f := &ext[i]
		fv, ok := c.present(f, v)
		if !ok {
			continue
		}

		n, err := encodeOpen(e, f.codec, fv)
		total += n
		if err != nil {
			return total, errors.WithFieldError(err, c.name, f.name, "ext")
		}
	}
	return total, nil
}

func (c *sequenceCodec) encodeField(e oerinterfaces.Encoder, f *field, fv reflect.Value) (int, error) {
	if f.open {
		return encodeOpen(e, f.codec, fv)
	}
	return f.codec.Encode(e, fv)
}

func (c *sequenceCodec) Decode(di oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	d := decoderOf(di)
	fr := d.enter()
	n, err := c.decode(d, fr, v, buf)
	d.leave(err)
	return n, err
}

// decode advances fr through the phases of the SEQUENCE. Each phase records
// its progress in fr before returning ErrWantMore, so that the next call
// continues with the input that follows what has been consumed.
func (c *sequenceCodec) decode(d *decoder, fr *frame, v reflect.Value, buf []byte) (consumed int, err error) {
	advance := func(n int) {
		buf = buf[n:]
		consumed += n
	}

	if fr.phase == phasePreamble {
		nbits := c.rootOptionals
		if c.extensible() {
			nbits++
		}

		nbytes := (nbits + 7) / 8
		if len(buf) < nbytes {
			return consumed, errors.ErrWantMore
		}

		fr.preamble = bits.NewReader(buf[:nbytes], nbits)
		if c.extensible() {
			fr.extPresent = fr.preamble.Get(1) == 1
		}
		advance(nbytes)
		fr.phase = phaseRoot
		fr.index = 0
		fr.invoked = false
	}

	if fr.phase == phaseRoot {
		root := c.root()
		for fr.index < len(root) {
			f := &root[fr.index]
			if !fr.invoked {
				if f.optional && fr.preamble.Get(1) != 1 {
					c.absent(f, v)
					fr.index++
					continue
				}
				fr.invoked = true
			}

			n, err := c.decodeField(d, f, v, buf)
			advance(n)
			if err != nil {
				return consumed, errors.WithFieldError(err, c.name, f.name)
			}
			fr.index++
			fr.invoked = false
		}

		fr.preamble = nil
		fr.phase = phaseExtPresence
	}

	if fr.phase == phaseExtPresence {
		ext := c.extensions()
		if !fr.extPresent {
			for i := range ext {
				c.absent(&ext[i], v)
			}
			fr.phase = phaseDone
			return consumed, nil
		}

		contents, n, err := wire.FetchEnvelope(buf)
		if err != nil {
			return consumed, errors.WithFieldError(err, c.name, "...", "ext")
		}
		if len(contents) == 0 {
			return consumed, errors.WithFieldError(errors.ErrEmptyExtensionBitmap, c.name, "...", "ext")
		}
		unused := int(contents[0])
		if unused > 7 || (len(contents) == 1 && unused != 0) {
			return consumed, errors.WithFieldError(errors.ErrInvalidUnusedBits, c.name, "...", "ext")
		}

		fr.extmap = bits.NewReader(contents[1:], 8*(len(contents)-1)-unused)
		fr.extPresent = false
		advance(n)
		fr.phase = phaseExtFields
		fr.index = 0
	}

	if fr.phase == phaseExtFields {
		ext := c.extensions()
		for fr.index < len(ext) {
			f := &ext[fr.index]
			switch fr.extmap.Get(1) {
			case 1:
				n, err := d.decodeOpen(f.codec, f.member.target(v), buf)
				if err == errors.ErrWantMore {
					fr.extmap.Undo(1)
					return consumed, err
				}
				if err != nil {
					return consumed, errors.WithFieldError(err, c.name, f.name, "ext")
				}
				advance(n)
			default:
				// Absent, or beyond the end of a bitmap from an older version
				c.absent(f, v)
			}
			fr.index++
		}
		fr.phase = phaseDrain
	}

	if fr.phase == phaseDrain {
		for fr.extmap.Remaining() > 0 {
			if fr.extmap.Get(1) != 1 {
				continue
			}

			n, err := d.SkipOpenType(buf)
			if err == errors.ErrWantMore {
				fr.extmap.Undo(1)
				return consumed, err
			}
			if err != nil {
				return consumed, errors.WithFieldError(err, c.name, "?", "ext")
			}
			advance(n)
		}

		fr.extmap = nil
		fr.phase = phaseDone
	}

	return consumed, nil
}

func (c *sequenceCodec) decodeField(d *decoder, f *field, v reflect.Value, buf []byte) (int, error) {
	if f.open {
		return d.decodeOpen(f.codec, f.member.target(v), buf)
	}
	return f.codec.Decode(d, f.member.target(v), buf)
}
