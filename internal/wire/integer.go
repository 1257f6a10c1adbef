// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package wire

import (
	"golang.org/x/exp/constraints"

	"go.e43.eu/oer/internal/errors"
)

// AppendUint appends the low size octets of v in big-endian order
func AppendUint[U constraints.Unsigned](dst []byte, v U, size int) []byte {
	for i := size - 1; i >= 0; i-- {
		dst = append(dst, byte(uint64(v)>>(8*uint(i))))
	}
	return dst
}

// AppendInt appends the low size octets of the two's complement form of v
func AppendInt[I constraints.Signed](dst []byte, v I, size int) []byte {
	return AppendUint(dst, uint64(int64(v)), size)
}

// Uint reads a big-endian unsigned integer of up to 8 octets
func Uint(buf []byte) uint64 {
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

// Int reads a big-endian two's complement integer of up to 8 octets
func Int(buf []byte) int64 {
	if len(buf) == 0 {
		return 0
	}

	v := int64(int8(buf[0]))
	for _, b := range buf[1:] {
		v = v<<8 | int64(b)
	}
	return v
}

// UnsignedSize returns the minimal number of octets representing v (at least 1)
func UnsignedSize[U constraints.Unsigned](v U) int {
	n := 1
	for x := uint64(v) >> 8; x != 0; x >>= 8 {
		n++
	}
	return n
}

// SignedSize returns the minimal number of octets of the two's complement
// representation of v (at least 1)
func SignedSize[I constraints.Signed](v I) int {
	x := int64(v)
	n := 1
	for x < -128 || x > 127 {
		x >>= 8
		n++
	}
	return n
}

// FetchUnsigned reads a length determinant followed by an unsigned integer
// of that many octets (the semi-constrained INTEGER form and the quantity
// field of SEQUENCE OF).
func FetchUnsigned(buf []byte) (v uint64, consumed int, err error) {
	contents, n, err := FetchEnvelope(buf)
	if err != nil {
		return 0, 0, err
	}

	// Leading zero octets are permitted but may not push the value past 64 bits
	for len(contents) > 8 && contents[0] == 0 {
		contents = contents[1:]
	}
	if len(contents) > 8 || len(contents) == 0 {
		return 0, 0, errors.ErrValueOutOfRange
	}
	return Uint(contents), n, nil
}

// FetchSigned reads a length determinant followed by a two's complement
// integer of that many octets (the unconstrained INTEGER form).
func FetchSigned(buf []byte) (v int64, consumed int, err error) {
	contents, n, err := FetchEnvelope(buf)
	if err != nil {
		return 0, 0, err
	}

	if len(contents) == 0 || len(contents) > 8 {
		return 0, 0, errors.ErrValueOutOfRange
	}
	return Int(contents), n, nil
}

// AppendUnsigned appends a length determinant and the minimal unsigned form of v
func AppendUnsigned(dst []byte, v uint64) []byte {
	n := UnsignedSize(v)
	dst = AppendLength(dst, n)
	return AppendUint(dst, v, n)
}

// AppendSigned appends a length determinant and the minimal two's complement form of v
func AppendSigned(dst []byte, v int64) []byte {
	n := SignedSize(v)
	dst = AppendLength(dst, n)
	return AppendInt(dst, v, n)
}
