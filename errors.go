// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package oer

import (
	"go.e43.eu/oer/internal/errors"
)

const (
	// More input is required before decoding can progress. This is not a
	// failure; call Decode again with the unconsumed input followed by more.
	// It is never wrapped.
	ErrWantMore = errors.ErrWantMore

	ErrTruncated                  = errors.ErrTruncated
	ErrTrailingData               = errors.ErrTrailingData
	ErrLengthExceedsMax           = errors.ErrLengthExceedsMax
	ErrLengthExceedsPlatformLimit = errors.ErrLengthExceedsPlatformLimit
	ErrLengthIncorrect            = errors.ErrLengthIncorrect
	ErrValueOutOfRange            = errors.ErrValueOutOfRange
	ErrMissingField               = errors.ErrMissingField
	ErrEmptyExtensionBitmap       = errors.ErrEmptyExtensionBitmap
	ErrInvalidUnusedBits          = errors.ErrInvalidUnusedBits
	ErrOpenTypeIncomplete         = errors.ErrOpenTypeIncomplete
	ErrNoAlternative              = errors.ErrNoAlternative
	ErrUnknownAlternative         = errors.ErrUnknownAlternative
	ErrNotPointer                 = errors.ErrNotPointer
	ErrInvalidValue               = errors.ErrInvalidValue
	ErrNilPointer                 = errors.ErrNilPointer
)

type (
	InvalidTypeError       = errors.InvalidTypeError
	InvalidTagForTypeError = errors.InvalidTagForTypeError
	LengthError            = errors.LengthError
	RangeError             = errors.RangeError
	FieldError             = errors.FieldError
)

// Status is the outcome of a decode step
type Status int

const (
	// The value is complete
	StatusOK Status = iota
	// More input is needed
	StatusWantMore
	// The input is invalid; the decoder can not continue
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWantMore:
		return "WANT_MORE"
	default:
		return "FAIL"
	}
}

// StatusOf classifies an error returned by Decoder.Decode
func StatusOf(err error) Status {
	switch err {
	case nil:
		return StatusOK
	case ErrWantMore:
		return StatusWantMore
	default:
		return StatusFail
	}
}
