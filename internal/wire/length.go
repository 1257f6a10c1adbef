// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package wire implements the octet level building blocks of OER: length
// determinants, fixed and variable width integers and tags.
//
// Readers in this package operate on a byte slice which may be incomplete. When
// a value is cut short they return errors.ErrWantMore and consume nothing,
// which lets the caller retry once more input has arrived.
package wire

import (
	"go.e43.eu/oer/internal/errors"
)

const (
	maxUint = ^uint(0)
	maxInt  = int(maxUint >> 1)
)

// FetchLength reads a length determinant (X.696 8.6) from the start of buf.
// It returns the length and the number of octets the determinant occupied.
func FetchLength(buf []byte) (length int, consumed int, err error) {
	if len(buf) == 0 {
		return 0, 0, errors.ErrWantMore
	}

	first := buf[0]
	if first&0x80 == 0 {
		return int(first), 1, nil
	}

	n := int(first & 0x7F)
	if n == 0 {
		// 0x80 would be an indefinite length, which OER does not have
		return 0, 0, errors.ErrInvalidValue
	}
	if len(buf) < 1+n {
		return 0, 0, errors.ErrWantMore
	}

	var l uint64
	for _, b := range buf[1 : 1+n] {
		if l > uint64(maxInt)>>8 {
			return 0, 0, errors.LengthError{Actual: l << 8, Max: uint64(maxInt)}
		}
		l = l<<8 | uint64(b)
	}
	if l > uint64(maxInt) {
		return 0, 0, errors.LengthError{Actual: l, Max: uint64(maxInt)}
	}
	return int(l), 1 + n, nil
}

// LengthSize returns the number of octets AppendLength uses for l
func LengthSize(l int) int {
	if l < 0x80 {
		return 1
	}
	return 1 + UnsignedSize(uint64(l))
}

// AppendLength appends the canonical (shortest) length determinant for l
func AppendLength(dst []byte, l int) []byte {
	if l < 0x80 {
		return append(dst, byte(l))
	}

	n := UnsignedSize(uint64(l))
	dst = append(dst, 0x80|byte(n))
	return AppendUint(dst, uint64(l), n)
}

// FetchEnvelope reads a length determinant and returns the contents it
// frames, along with the total number of octets of the envelope. The whole
// envelope must be present in buf.
func FetchEnvelope(buf []byte) (contents []byte, consumed int, err error) {
	l, ll, err := FetchLength(buf)
	if err != nil {
		return nil, 0, err
	}

	if len(buf)-ll < l {
		return nil, 0, errors.ErrWantMore
	}
	return buf[ll : ll+l], ll + l, nil
}
