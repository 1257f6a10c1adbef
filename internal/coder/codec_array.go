// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"reflect"
	"sync"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/errors"
	"go.e43.eu/oer/internal/tags"
	"go.e43.eu/oer/internal/wire"
)

func newForT(t reflect.Type) func() interface{} {
	return func() interface{} {
		return reflect.New(t)
	}
}

// fixedOctetsCodec handles fixed size OCTET STRING held in a byte array
type fixedOctetsCodec struct {
	bufs sync.Pool
	len  int
}

var _ xCodec = &fixedOctetsCodec{}

func makeFixedOctetsCodec(t reflect.Type, tag *tags.Tag) oerinterfaces.Codec {
	if tag != nil && (tag.HasSize && tag.Size != t.Len() || tag.HasMaxLen || tag.Enum || tag.Range != nil || tag.Next != nil) {
		return &errorCodec{errors.InvalidTagForTypeError{t, tag}}
	}

	c := &fixedOctetsCodec{len: t.Len()}
	c.bufs.New = newForT(t)
	return c
}

func (c *fixedOctetsCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	// If the user passed in an on-the-stack value then v.CanAddr() may be
	// false, which means we cannot slice it. Copy it into a pooled array.
	if !v.CanAddr() {
		p := c.bufs.Get().(reflect.Value)
		defer c.bufs.Put(p)

		pe := p.Elem()
		pe.Set(v)
		v = pe
	}

	return e.Write(v.Slice(0, c.len).Bytes())
}

func (c *fixedOctetsCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	if len(buf) < c.len {
		return 0, errors.ErrWantMore
	}
	copy(v.Slice(0, c.len).Bytes(), buf)
	return c.len, nil
}

// seqOfCodec handles SEQUENCE OF, held in a slice or (for a fixed quantity)
// an array
type seqOfCodec struct {
	elem   xCodec
	elemt  reflect.Type
	array  bool
	len    int
	maxlen int

	// Whether elements occupy no octets on the wire. Computed on first
	// decode, once any recursive element codec has been resolved.
	emptyOnce sync.Once
	empty     bool
}

// maxEmptyElements bounds the quantity of a SEQUENCE OF whose elements take
// no octets on the wire but still need storage (e.g. pointers to NULL). The
// quantity of any other SEQUENCE OF is bounded by the input.
const maxEmptyElements = 1 << 20

var _ xCodec = &seqOfCodec{}

func makeSeqOfCodec(cr *Coder, t reflect.Type, tag *tags.Tag) oerinterfaces.Codec {
	if tag != nil && (tag.Enum || tag.Range != nil || tag.HasSize) {
		return &errorCodec{errors.InvalidTagForTypeError{t, tag}}
	}

	c := &seqOfCodec{
		elem:   cr.getCodec(t.Elem(), tag.Elem()),
		elemt:  t.Elem(),
		maxlen: -1,
	}

	switch {
	case t.Kind() == reflect.Array:
		if tag != nil && tag.HasMaxLen {
			return &errorCodec{errors.InvalidTagForTypeError{t, tag}}
		}
		c.array = true
		c.len = t.Len()
	case tag != nil && tag.HasMaxLen:
		c.maxlen = tag.MaxLen
	}
	return c
}

func (c *seqOfCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	l := v.Len()
	if c.maxlen >= 0 && l > c.maxlen {
		return 0, errors.LengthError{uint64(l), uint64(c.maxlen)}
	}

	var scratch [9]byte
	total, err := e.Write(wire.AppendUnsigned(scratch[:0], uint64(l)))
	if err != nil {
		return total, err
	}

	for i := 0; i < l; i++ {
		n, err := c.elem.Encode(e, v.Index(i))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *seqOfCodec) Decode(di oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	d := decoderOf(di)
	f := d.enter()
	n, err := c.decode(d, f, v, buf)
	d.leave(err)
	return n, err
}

func (c *seqOfCodec) decode(d *decoder, f *frame, v reflect.Value, buf []byte) (consumed int, err error) {
	if f.phase == phasePreamble {
		q, n, err := wire.FetchUnsigned(buf)
		if err != nil {
			return 0, err
		}

		switch {
		case c.array && q != uint64(c.len):
			return 0, errors.ErrLengthIncorrect
		case c.maxlen >= 0 && q > uint64(c.maxlen):
			return 0, errors.LengthError{q, uint64(c.maxlen)}
		case q > uint64(maxInt):
			return 0, errors.LengthError{q, uint64(maxInt)}
		}

		c.emptyOnce.Do(func() { c.empty = emptyOnWire(c.elem, nil) })
		if c.empty {
			if c.elemt.Size() == 0 {
				// Every element is the zero value; nothing to decode
				if !c.array {
					v.Set(reflect.MakeSlice(v.Type(), int(q), int(q)))
				}
				f.phase = phaseDone
				return n, nil
			}
			if !c.array && q > maxEmptyElements {
				return 0, errors.LengthError{q, maxEmptyElements}
			}
		}

		if !c.array {
			// Don't trust the quantity for preallocation
			capacity := int(q)
			if capacity > 64 {
				capacity = 64
			}
			v.Set(reflect.MakeSlice(v.Type(), 0, capacity))
		}

		f.count = int(q)
		f.phase = phaseRoot
		f.index = 0
		buf = buf[n:]
		consumed += n
	}

	for f.index < f.count {
		if !f.invoked {
			if !c.array {
				v.Set(reflect.Append(v, reflect.Zero(c.elemt)))
			}
			f.invoked = true
		}

		n, err := c.elem.Decode(d, v.Index(f.index), buf)
		buf = buf[n:]
		consumed += n
		if err != nil {
			return consumed, err
		}

		f.index++
		f.invoked = false
	}

	f.phase = phaseDone
	return consumed, nil
}

// emptyOnWire reports whether values handled by c are always encoded as zero
// octets: NULL, SEQUENCEs of such without a preamble, and zero size strings
func emptyOnWire(c xCodec, seen map[xCodec]bool) bool {
	if seen[c] {
		return false
	}

	switch c := c.(type) {
	case *deferredCodec:
		return emptyOnWire(c.get(), seen)
	case *ptrCodec:
		return emptyOnWire(c.elem, seen)
	case *stringCodec:
		return c.fixed && c.size == 0
	case *octetsCodec:
		return c.fixed && c.size == 0
	case *fixedOctetsCodec:
		return c.len == 0
	case *sequenceCodec:
		if c.extensible() || c.rootOptionals > 0 {
			return false
		}
		if seen == nil {
			seen = make(map[xCodec]bool)
		}
		seen[c] = true
		for _, f := range c.fields {
			if f.open || !emptyOnWire(f.codec, seen) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
