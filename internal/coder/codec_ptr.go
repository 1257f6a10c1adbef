// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"reflect"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/errors"
	"go.e43.eu/oer/internal/tags"
)

// ptrCodec handles pointers. Where a pointer may be nil (i.e. is OPTIONAL)
// is decided by the SEQUENCE holding it; anywhere else it must be set.
type ptrCodec struct {
	elem  xCodec
	elemt reflect.Type
}

var _ xCodec = &ptrCodec{}

func makePtrCodec(cr *Coder, t reflect.Type, tag *tags.Tag) oerinterfaces.Codec {
	// Options apply through the pointer
	elemt := t.Elem()
	return &ptrCodec{
		elem:  cr.getCodec(elemt, tag),
		elemt: elemt,
	}
}

func (c *ptrCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	if v.IsNil() {
		return 0, errors.ErrNilPointer
	}
	return c.elem.Encode(e, v.Elem())
}

func (c *ptrCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	// Allocated once; a resumed decode continues into the same value
	if v.IsNil() {
		v.Set(reflect.New(c.elemt))
	}
	return c.elem.Decode(d, v.Elem(), buf)
}
