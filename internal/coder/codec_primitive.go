// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"math"
	"math/big"
	"reflect"
	"strconv"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/errors"
	"go.e43.eu/oer/internal/tags"
	"go.e43.eu/oer/internal/wire"
)

// boolCodec handles booleans
type boolCodec struct{}

var boolCodecI xCodec = boolCodec{}

func (_ boolCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	b := []byte{0x00}
	if v.Bool() {
		b[0] = 0xFF
	}
	return e.Write(b)
}

func (_ boolCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	if len(buf) < 1 {
		return 0, errors.ErrWantMore
	}

	switch buf[0] {
	case 0x00:
		v.SetBool(false)
	case 0xFF:
		v.SetBool(true)
	default:
		return 0, errors.ErrInvalidValue
	}
	return 1, nil
}

// intForm is the wire form an INTEGER takes, chosen from its range constraint
type intForm byte

const (
	// Length determinant then minimal two's complement
	formSigned intForm = iota
	// Length determinant then minimal unsigned (lower bound ≥ 0, no usable upper bound)
	formUnsigned
	// 1, 2, 4 or 8 octet unsigned
	formFixedUnsigned
	// 1, 2, 4 or 8 octet two's complement
	formFixedSigned
)

// integerCodec handles INTEGER types, of any Go integer kind
type integerCodec struct {
	form intForm
	size int
	rng  *tags.Range
	// The Go type is unsigned
	unsigned bool
}

var _ xCodec = &integerCodec{}

var fixedSizes = []int{1, 2, 4, 8}

func makeIntegerCodec(t reflect.Type, tag *tags.Tag) oerinterfaces.Codec {
	if tag != nil && (tag.HasSize || tag.HasMaxLen || tag.Next != nil) {
		return &errorCodec{errors.InvalidTagForTypeError{t, tag}}
	}

	unsigned := false
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		unsigned = true
	}

	if tag != nil && tag.Enum {
		if tag.Range != nil {
			return &errorCodec{errors.InvalidTagForTypeError{t, tag}}
		}
		return &enumCodec{unsigned: unsigned}
	}

	c := &integerCodec{form: formSigned, unsigned: unsigned}
	if tag != nil {
		c.rng = tag.Range
	}

	r := c.rng
	switch {
	case r == nil || r.Lo == nil:
		// Unconstrained or only upper bounded

	case r.Lo.Sign() >= 0:
		c.form = formUnsigned
		if r.Hi == nil {
			break
		}
		for _, sz := range fixedSizes {
			if r.Hi.BitLen() <= 8*sz {
				c.form = formFixedUnsigned
				c.size = sz
				break
			}
		}

	case r.Hi != nil:
		for _, sz := range fixedSizes {
			lo := new(big.Int).Lsh(big.NewInt(-1), uint(8*sz-1))
			hi := new(big.Int).Sub(new(big.Int).Neg(lo), big.NewInt(1))
			if r.Lo.Cmp(lo) >= 0 && r.Hi.Cmp(hi) <= 0 {
				c.form = formFixedSigned
				c.size = sz
				break
			}
		}
	}
	return c
}

// integer value of either signedness
type intValue struct {
	i int64
	u uint64
	// The value is held in u
	unsigned bool
}

func (iv intValue) big() *big.Int {
	if iv.unsigned {
		return new(big.Int).SetUint64(iv.u)
	}
	return big.NewInt(iv.i)
}

func (iv intValue) String() string {
	if iv.unsigned {
		return strconv.FormatUint(iv.u, 10)
	}
	return strconv.FormatInt(iv.i, 10)
}

// asUnsigned returns the value as a uint64, reporting false if negative
func (iv intValue) asUnsigned() (uint64, bool) {
	if iv.unsigned {
		return iv.u, true
	}
	return uint64(iv.i), iv.i >= 0
}

// asSigned returns the value as an int64, reporting false if it doesn't fit
func (iv intValue) asSigned() (int64, bool) {
	if iv.unsigned {
		return int64(iv.u), iv.u <= math.MaxInt64
	}
	return iv.i, true
}

func (c *integerCodec) get(v reflect.Value) intValue {
	if c.unsigned {
		return intValue{u: v.Uint(), unsigned: true}
	}
	return intValue{i: v.Int()}
}

func (c *integerCodec) set(v reflect.Value, iv intValue) error {
	if c.rng != nil && !c.rng.Contains(iv.big()) {
		return errors.RangeError{iv.String(), c.rng.String()}
	}

	if c.unsigned {
		u, ok := iv.asUnsigned()
		if !ok || v.OverflowUint(u) {
			return errors.RangeError{iv.String(), v.Type().String()}
		}
		v.SetUint(u)
	} else {
		i, ok := iv.asSigned()
		if !ok || v.OverflowInt(i) {
			return errors.RangeError{iv.String(), v.Type().String()}
		}
		v.SetInt(i)
	}
	return nil
}

func (c *integerCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	iv := c.get(v)
	if c.rng != nil && !c.rng.Contains(iv.big()) {
		return 0, errors.RangeError{iv.String(), c.rng.String()}
	}

	var scratch [16]byte
	buf := scratch[:0]
	switch c.form {
	case formFixedUnsigned:
		u, _ := iv.asUnsigned()
		buf = wire.AppendUint(buf, u, c.size)

	case formFixedSigned:
		i, _ := iv.asSigned()
		buf = wire.AppendInt(buf, i, c.size)

	case formUnsigned:
		u, _ := iv.asUnsigned()
		buf = wire.AppendUnsigned(buf, u)

	default:
		if i, ok := iv.asSigned(); ok {
			buf = wire.AppendSigned(buf, i)
		} else {
			// Above MaxInt64: nine octets with a leading zero
			buf = append(buf, 9, 0)
			buf = wire.AppendUint(buf, iv.u, 8)
		}
	}
	return e.Write(buf)
}

func (c *integerCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	var (
		iv intValue
		n  int
	)

	switch c.form {
	case formFixedUnsigned:
		if len(buf) < c.size {
			return 0, errors.ErrWantMore
		}
		iv = intValue{u: wire.Uint(buf[:c.size]), unsigned: true}
		n = c.size

	case formFixedSigned:
		if len(buf) < c.size {
			return 0, errors.ErrWantMore
		}
		iv = intValue{i: wire.Int(buf[:c.size])}
		n = c.size

	case formUnsigned:
		u, l, err := wire.FetchUnsigned(buf)
		if err != nil {
			return 0, err
		}
		iv = intValue{u: u, unsigned: true}
		n = l

	default:
		contents, l, err := wire.FetchEnvelope(buf)
		if err != nil {
			return 0, err
		}
		switch {
		case len(contents) == 0:
			return 0, errors.ErrInvalidValue
		case len(contents) == 9 && contents[0] == 0 && contents[1]&0x80 != 0:
			iv = intValue{u: wire.Uint(contents[1:]), unsigned: true}
		case len(contents) > 8:
			return 0, errors.ErrValueOutOfRange
		default:
			iv = intValue{i: wire.Int(contents)}
		}
		n = l
	}

	if err := c.set(v, iv); err != nil {
		return 0, err
	}
	return n, nil
}

// enumCodec handles ENUMERATED types
type enumCodec struct {
	unsigned bool
}

var _ xCodec = &enumCodec{}

func (c *enumCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	var i int64
	if c.unsigned {
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, errors.RangeError{strconv.FormatUint(u, 10), "ENUMERATED"}
		}
		i = int64(u)
	} else {
		i = v.Int()
	}

	if i >= 0 && i <= 127 {
		return e.Write([]byte{byte(i)})
	}

	var scratch [9]byte
	sz := wire.SignedSize(i)
	buf := append(scratch[:0], 0x80|byte(sz))
	return e.Write(wire.AppendInt(buf, i, sz))
}

func (c *enumCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	if len(buf) < 1 {
		return 0, errors.ErrWantMore
	}

	var (
		i int64
		n int
	)
	if buf[0]&0x80 == 0 {
		i, n = int64(buf[0]), 1
	} else {
		sz := int(buf[0] & 0x7F)
		if sz == 0 || sz > 8 {
			return 0, errors.ErrInvalidValue
		}
		if len(buf) < 1+sz {
			return 0, errors.ErrWantMore
		}
		i, n = wire.Int(buf[1:1+sz]), 1+sz
	}

	if c.unsigned {
		if i < 0 || v.OverflowUint(uint64(i)) {
			return 0, errors.RangeError{strconv.FormatInt(i, 10), v.Type().String()}
		}
		v.SetUint(uint64(i))
	} else {
		if v.OverflowInt(i) {
			return 0, errors.RangeError{strconv.FormatInt(i, 10), v.Type().String()}
		}
		v.SetInt(i)
	}
	return n, nil
}
