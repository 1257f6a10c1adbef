// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package wire

import (
	"go.e43.eu/oer/internal/errors"
)

// Class is an ASN.1 tag class
type Class byte

const (
	ClassUniversal Class = iota
	ClassApplication
	ClassContextSpecific
	ClassPrivate
)

// Tag identifies a CHOICE alternative on the wire
type Tag struct {
	Class  Class
	Number uint64
}

// AppendTag appends the OER encoding of t (X.696 8.7): the class in the top
// two bits of the first octet and the number in the remaining six, or 0x3F
// followed by the number in base 128.
func AppendTag(dst []byte, t Tag) []byte {
	first := byte(t.Class) << 6
	if t.Number < 0x3F {
		return append(dst, first|byte(t.Number))
	}

	dst = append(dst, first|0x3F)
	return appendVLQ(dst, t.Number)
}

// FetchTag reads a tag from the start of buf
func FetchTag(buf []byte) (t Tag, consumed int, err error) {
	if len(buf) == 0 {
		return t, 0, errors.ErrWantMore
	}

	t.Class = Class(buf[0] >> 6)
	if n := buf[0] & 0x3F; n != 0x3F {
		t.Number = uint64(n)
		return t, 1, nil
	}

	num, n, err := fetchVLQ(buf[1:])
	if err != nil {
		return t, 0, err
	}
	if num < 0x3F {
		// Must have used the short form
		return t, 0, errors.ErrInvalidValue
	}
	t.Number = num
	return t, 1 + n, nil
}

func vlqLen(n uint64) int {
	l := 1
	for n >>= 7; n != 0; n >>= 7 {
		l++
	}
	return l
}

func appendVLQ(dst []byte, n uint64) []byte {
	for i := vlqLen(n) - 1; i > 0; i-- {
		dst = append(dst, 0x80|byte(n>>(7*uint(i))))
	}
	return append(dst, byte(n)&0x7F)
}

func fetchVLQ(buf []byte) (uint64, int, error) {
	if len(buf) > 0 && buf[0] == 0x80 {
		// Not minimally encoded
		return 0, 0, errors.ErrInvalidValue
	}

	var v uint64
	for i, b := range buf {
		if v > (^uint64(0))>>7 {
			return 0, 0, errors.ErrValueOutOfRange
		}
		v = v<<7 | uint64(b&0x7F)
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, errors.ErrWantMore
}
