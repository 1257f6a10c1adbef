// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"
	"reflect"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/errors"
	"go.e43.eu/oer/internal/wire"
)

// choiceCodec handles CHOICE types. A CHOICE is a struct in which every
// field is an alternative (a pointer or slice tagged `choice:N`), of which
// exactly one is set. On the wire, the context specific tag N of the selected
// alternative precedes its value; alternatives following an extension marker
// are wrapped in an open type envelope.
type choiceCodec struct {
	name       string
	alts       []field
	byTag      map[uint64]int
	tags       []uint64
	extensible bool
	extStart   int
}

var _ xCodec = &choiceCodec{}

// selected from frame.count for an alternative unknown to the type
const unknownAlternative = -1

func makeChoiceCodec(cr *Coder, t reflect.Type, pfs []parsedField, marker int) oerinterfaces.Codec {
	c := &choiceCodec{
		name:       t.Name(),
		alts:       make([]field, 0, len(pfs)),
		byTag:      make(map[uint64]int, len(pfs)),
		tags:       make([]uint64, 0, len(pfs)),
		extensible: marker >= 0,
		extStart:   marker,
	}
	if !c.extensible {
		c.extStart = len(pfs)
	}

	for i, pf := range pfs {
		tag := pf.tag
		if tag == nil || !tag.HasChoice {
			return &errorCodec{fmt.Errorf("Field '%s' of CHOICE '%s' has no `choice:` tag", pf.sf.Name, t)}
		}
		if tag.Opt || tag.HasDefault {
			return &errorCodec{fmt.Errorf("Alternative '%s' of CHOICE '%s' may not be OPTIONAL", pf.sf.Name, t)}
		}
		if _, dup := c.byTag[tag.Choice]; dup {
			return &errorCodec{fmt.Errorf("CHOICE tag %d of %s duplicated", tag.Choice, t)}
		}

		f, err := makeField(cr, pf)
		if err != nil {
			return &errorCodec{err}
		}
		f.open = f.open || i >= c.extStart

		c.byTag[tag.Choice] = i
		c.tags = append(c.tags, tag.Choice)
		c.alts = append(c.alts, f)
	}
	return c
}

// selected returns the index of the single set alternative of v
func (c *choiceCodec) selected(v reflect.Value) (int, reflect.Value, error) {
	sel := -1
	var sv reflect.Value
	for i := range c.alts {
		if av, ok := c.alts[i].member.value(v); ok {
			if sel >= 0 {
				return -1, sv, errors.ErrNoAlternative
			}
			sel, sv = i, av
		}
	}
	if sel < 0 {
		return -1, sv, errors.ErrNoAlternative
	}
	return sel, sv, nil
}

func (c *choiceCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	i, av, err := c.selected(v)
	if err != nil {
		return 0, errors.WithFieldError(err, c.name)
	}

	f := &c.alts[i]
	var scratch [11]byte
	n, err := e.Write(wire.AppendTag(scratch[:0], wire.Tag{wire.ClassContextSpecific, c.tags[i]}))
	if err != nil {
		return n, err
	}

	var m int
	if f.open {
		m, err = encodeOpen(e, f.codec, av)
	} else {
		m, err = f.codec.Encode(e, av)
	}
	return n + m, errors.WithFieldError(err, c.name, f.name, fmt.Sprintf("choice:%d", c.tags[i]))
}

func (c *choiceCodec) Decode(di oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	d := decoderOf(di)
	fr := d.enter()
	n, err := c.decode(d, fr, v, buf)
	d.leave(err)
	return n, err
}

func (c *choiceCodec) decode(d *decoder, fr *frame, v reflect.Value, buf []byte) (consumed int, err error) {
	if fr.phase == phasePreamble {
		t, n, err := wire.FetchTag(buf)
		if err != nil {
			return 0, errors.WithFieldError(err, c.name)
		}

		i, known := c.byTag[t.Number]
		switch {
		case known && t.Class == wire.ClassContextSpecific:
			fr.count = i
		case c.extensible:
			fr.count = unknownAlternative
		default:
			return 0, errors.WithFieldError(errors.ErrUnknownAlternative, c.name)
		}

		for i := range c.alts {
			c.alts[i].member.clear(v)
		}

		buf = buf[n:]
		consumed += n
		fr.phase = phaseRoot
	}

	if fr.count == unknownAlternative {
		n, err := d.SkipOpenType(buf)
		if err != nil {
			return consumed, errors.WithFieldError(err, c.name, "?")
		}
		fr.phase = phaseDone
		return consumed + n, nil
	}

	f := &c.alts[fr.count]
	var n int
	if f.open {
		n, err = d.decodeOpen(f.codec, f.member.target(v), buf)
	} else {
		n, err = f.codec.Decode(d, f.member.target(v), buf)
	}
	if err != nil {
		return consumed + n, errors.WithFieldError(err, c.name, f.name, fmt.Sprintf("choice:%d", c.tags[fr.count]))
	}

	fr.phase = phaseDone
	return consumed + n, nil
}
