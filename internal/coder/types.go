// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"bytes"
	"reflect"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/errors"
	"go.e43.eu/oer/internal/wire"
)

// BitString is an ASN.1 BIT STRING. Bits are numbered from the most
// significant bit of the first byte; bits of the final byte beyond BitLength
// must be zero.
type BitString struct {
	Bytes     []byte
	BitLength int
}

// At returns the bit at index i (0 or 1), or 0 if i is out of range
func (b BitString) At(i int) int {
	if i < 0 || i >= b.BitLength {
		return 0
	}
	return int(b.Bytes[i/8]>>(7-uint(i%8))) & 1
}

// OpenType holds the encoding of a value whose type is not known statically,
// as framed by an open type envelope.
type OpenType struct {
	Bytes []byte
}

// bitStringCodec handles BIT STRING (of unconstrained size)
type bitStringCodec struct{}

var bitStringCodecI xCodec = bitStringCodec{}

func (_ bitStringCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	bs := v.Interface().(BitString)
	nbytes := (bs.BitLength + 7) / 8
	if bs.BitLength < 0 || len(bs.Bytes) != nbytes {
		return 0, errors.ErrLengthIncorrect
	}

	unused := byte(8*nbytes - bs.BitLength)
	if nbytes > 0 && bs.Bytes[nbytes-1]&(1<<unused-1) != 0 {
		return 0, errors.ErrInvalidValue
	}

	n, err := e.EncodeLength(1 + nbytes)
	if err != nil {
		return n, err
	}
	m, err := e.Write([]byte{unused})
	if err != nil {
		return n + m, err
	}
	o, err := e.Write(bs.Bytes)
	return n + m + o, err
}

func (_ bitStringCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	contents, n, err := wire.FetchEnvelope(buf)
	if err != nil {
		return 0, err
	}

	if len(contents) == 0 {
		return 0, errors.ErrLengthIncorrect
	}
	unused := int(contents[0])
	if unused > 7 || (len(contents) == 1 && unused != 0) {
		return 0, errors.ErrInvalidUnusedBits
	}

	bs := BitString{
		Bytes:     bytes.Clone(contents[1:]),
		BitLength: 8*(len(contents)-1) - unused,
	}
	v.Set(reflect.ValueOf(bs))
	return n, nil
}

// openTypeCodec handles raw open types. The envelope is kept, uninterpreted
type openTypeCodec struct{}

var openTypeCodecI xCodec = openTypeCodec{}

func (_ openTypeCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	ot := v.Interface().(OpenType)
	n, err := e.EncodeLength(len(ot.Bytes))
	if err != nil {
		return n, err
	}
	m, err := e.Write(ot.Bytes)
	return n + m, err
}

func (_ openTypeCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	contents, n, err := wire.FetchEnvelope(buf)
	if err != nil {
		return 0, err
	}
	v.Set(reflect.ValueOf(OpenType{Bytes: bytes.Clone(contents)}))
	return n, nil
}
