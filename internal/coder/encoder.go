// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"bytes"
	"io"
	"reflect"
	"sync"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/errors"
	"go.e43.eu/oer/internal/wire"
)

var encoderPool = sync.Pool{
	New: func() interface{} {
		return &encoder{
			codecCacheSlot: 3,
		}
	},
}

type encoder struct {
	// Underlying writer
	w io.Writer
	// If the underlying writer is also an io.StringWriter, use that when writing
	// strings (to avoid allocs)
	ws io.StringWriter

	// Our coder
	cr *Coder

	// Small cache of most recently encoded types. Typically a small number of types
	// are repeatedly written to an encoder
	codecCache [4]struct {
		type_ reflect.Type
		codec xCodec
	}
	// Next slot for replacement
	codecCacheSlot int

	// Small scratch buffer (avoids needing to ever allocate when writing
	// primitives and length determinants)
	scratch [16]byte
}

var _ oerinterfaces.Encoder = &encoder{}

func (e *encoder) reset(cr *Coder, w io.Writer) {
	e.w = w
	if ws, ok := w.(io.StringWriter); ok {
		e.ws = ws
	} else {
		e.ws = nil
	}

	if e.cr != cr {
		for i := range e.codecCache {
			e.codecCache[i].type_ = nil
			e.codecCache[i].codec = nil
		}
	}

	e.cr = cr
}

func (e *encoder) Write(buf []byte) (int, error) {
	return e.w.Write(buf)
}

func (e *encoder) writeString(s string) (int, error) {
	if e.ws != nil {
		return e.ws.WriteString(s)
	}
	return e.w.Write([]byte(s))
}

func (e *encoder) EncodeLength(l int) (int, error) {
	return e.w.Write(wire.AppendLength(e.scratch[:0], l))
}

// writeEnvelope writes a length determinant followed by contents
func (e *encoder) writeEnvelope(contents []byte) (int, error) {
	n, err := e.EncodeLength(len(contents))
	if err != nil {
		return n, err
	}
	m, err := e.w.Write(contents)
	return n + m, err
}

func (e *encoder) Encode(o interface{}) (int, error) {
	v := reflect.ValueOf(o)
	if !v.IsValid() {
		return 0, errors.ErrInvalidValue
	}
	return e.EncodeValue(v)
}

func (e *encoder) EncodeValue(v reflect.Value) (int, error) {
	return e.codecFor(v.Type()).Encode(e, v)
}

func (e *encoder) codecFor(t reflect.Type) xCodec {
	for _, ce := range e.codecCache {
		if ce.type_ == t {
			return ce.codec
		}
	}

	c := e.cr.getBaseCodec(t)
	e.codecCacheSlot = (e.codecCacheSlot + 1) & (len(e.codecCache) - 1)
	e.codecCache[e.codecCacheSlot].type_ = t
	e.codecCache[e.codecCacheSlot].codec = c
	return c
}

func (e *encoder) EncodeOpenType(v reflect.Value) (int, error) {
	return e.encodeOpen(e.codecFor(v.Type()), v)
}

// encodeOpen encodes v with c into a scratch buffer, then writes it wrapped
// in an open type envelope
func (e *encoder) encodeOpen(c xCodec, v reflect.Value) (int, error) {
	b := bufferPool.Get().(*bytes.Buffer)
	b.Reset()
	defer bufferPool.Put(b)

	inner := e.cr.newEncoder(b)
	_, err := c.Encode(inner, v)
	inner.release()
	if err != nil {
		return 0, err
	}

	return e.writeEnvelope(b.Bytes())
}

func (e *encoder) release() {
	e.w = nil
	e.ws = nil
	encoderPool.Put(e)
}

// encodeOpen wraps the encoding of v by c in an open type envelope
func encodeOpen(e oerinterfaces.Encoder, c xCodec, v reflect.Value) (int, error) {
	if ie, ok := e.(*encoder); ok {
		return ie.encodeOpen(c, v)
	}

	// Something other than our encoder; buffer with a fresh one
	b := new(bytes.Buffer)
	inner := &encoder{cr: NewCoder()}
	inner.reset(inner.cr, b)
	if _, err := c.Encode(inner, v); err != nil {
		return 0, err
	}

	n, err := e.EncodeLength(b.Len())
	if err != nil {
		return n, err
	}
	m, err := e.Write(b.Bytes())
	return n + m, err
}
