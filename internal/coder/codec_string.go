// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"reflect"

	"github.com/pkg/errors"

	oerinterfaces "go.e43.eu/oer/interfaces"
	oererrors "go.e43.eu/oer/internal/errors"
	"go.e43.eu/oer/internal/tags"
	"go.e43.eu/oer/internal/wire"
)

// sizeLimits are the size constraints of a string type. A fixed size string
// has no length determinant.
type sizeLimits struct {
	fixed  bool
	size   int
	maxlen int
}

func makeSizeLimits(t reflect.Type, tag *tags.Tag) (sizeLimits, error) {
	l := sizeLimits{maxlen: -1}
	if tag == nil {
		return l, nil
	}

	if tag.Enum || tag.Range != nil || tag.Next != nil {
		return l, oererrors.InvalidTagForTypeError{t, tag}
	}
	if tag.HasSize && tag.HasMaxLen {
		return l, errors.Errorf("%s may not have both `size:` and `maxlen:`", t)
	}

	switch {
	case tag.HasSize:
		l.fixed = true
		l.size = tag.Size
	case tag.HasMaxLen:
		l.maxlen = tag.MaxLen
	}
	return l, nil
}

func (l sizeLimits) check(n int) error {
	switch {
	case l.fixed && n != l.size:
		return oererrors.ErrLengthIncorrect
	case l.maxlen >= 0 && n > l.maxlen:
		return oererrors.LengthError{uint64(n), uint64(l.maxlen)}
	}
	return nil
}

// fetch returns the contents of a string encoded with these limits
func (l sizeLimits) fetch(buf []byte) (contents []byte, consumed int, err error) {
	if l.fixed {
		if len(buf) < l.size {
			return nil, 0, oererrors.ErrWantMore
		}
		return buf[:l.size], l.size, nil
	}

	n, ll, err := wire.FetchLength(buf)
	if err != nil {
		return nil, 0, err
	}
	// Check the bound before waiting for contents which can never be accepted
	if err := l.check(n); err != nil {
		return nil, 0, err
	}
	if len(buf)-ll < n {
		return nil, 0, oererrors.ErrWantMore
	}
	return buf[ll : ll+n], ll + n, nil
}

// stringCodec handles UTF8String, held in a Go string
type stringCodec struct {
	sizeLimits
}

var _ xCodec = &stringCodec{}

func makeStringCodec(t reflect.Type, tag *tags.Tag) oerinterfaces.Codec {
	l, err := makeSizeLimits(t, tag)
	if err != nil {
		return &errorCodec{err}
	}
	return &stringCodec{l}
}

func (c *stringCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	s := v.String()
	if err := c.check(len(s)); err != nil {
		return 0, err
	}

	var n int
	if !c.fixed {
		var err error
		if n, err = e.EncodeLength(len(s)); err != nil {
			return n, err
		}
	}

	var (
		m   int
		err error
	)
	if ie, ok := e.(*encoder); ok {
		m, err = ie.writeString(s)
	} else {
		m, err = e.Write([]byte(s))
	}
	return n + m, err
}

func (c *stringCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	contents, n, err := c.fetch(buf)
	if err != nil {
		return 0, err
	}
	v.SetString(string(contents))
	return n, nil
}

// octetsCodec handles OCTET STRING held in a byte slice
type octetsCodec struct {
	sizeLimits
}

var _ xCodec = &octetsCodec{}

func makeOctetsCodec(t reflect.Type, tag *tags.Tag) oerinterfaces.Codec {
	l, err := makeSizeLimits(t, tag)
	if err != nil {
		return &errorCodec{err}
	}
	return &octetsCodec{l}
}

func (c *octetsCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	b := v.Bytes()
	if err := c.check(len(b)); err != nil {
		return 0, err
	}

	var n int
	if !c.fixed {
		var err error
		if n, err = e.EncodeLength(len(b)); err != nil {
			return n, err
		}
	}
	m, err := e.Write(b)
	return n + m, err
}

func (c *octetsCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	contents, n, err := c.fetch(buf)
	if err != nil {
		return 0, err
	}
	v.SetBytes(append(make([]byte, 0, len(contents)), contents...))
	return n, nil
}
