// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package errors

import (
	"fmt"
	"reflect"
	"strings"

	"go.e43.eu/oer/internal/tags"
)

const (
	// maxUint is the maximum value a uint can hold
	maxUint = ^uint(0)
	// maxInt is the maximum value an int can hold
	maxInt = int(maxUint >> 1)
)

type xerror string

func (e xerror) Error() string {
	return string(e)
}

const (
	// More input is required before decoding can progress. This is not a failure:
	// the caller should call again with the unconsumed bytes followed by more.
	//
	// This error is never wrapped, so it may be compared directly.
	ErrWantMore = xerror("oer: more input required")

	// Input ended in the middle of a value (returned by Unmarshal, where the
	// whole encoding is expected to be present)
	ErrTruncated = xerror("oer: unexpected end of input")

	// Unmarshal was passed bytes beyond the end of the value
	ErrTrailingData = xerror("oer: trailing data after value")

	// Variable length object longer than permitted by the schema
	ErrLengthExceedsMax = xerror("oer: Variable length object too long")

	// Decoded length larger than can be represented by the Go `int` type
	ErrLengthExceedsPlatformLimit = xerror("oer: Variable length object too long for platform")

	// Length of fixed length object incorrect
	ErrLengthIncorrect = xerror("oer: Length incorrect")

	// Value does not fit the constraint or the Go type it is decoded into
	ErrValueOutOfRange = xerror("oer: Value out of range")

	// A mandatory SEQUENCE member is absent (nil pointer on encode)
	ErrMissingField = xerror("oer: Mandatory field absent")

	// The extension addition bitmap has a length of zero
	ErrEmptyExtensionBitmap = xerror("oer: Extension bitmap length of zero")

	// The unused bits octet of a bitmap or bit string is larger than 7
	ErrInvalidUnusedBits = xerror("oer: Invalid unused bit count")

	// The contents of an open type did not form a complete value
	ErrOpenTypeIncomplete = xerror("oer: Open type contents incomplete")

	// CHOICE value with no alternative (or more than one) selected
	ErrNoAlternative = xerror("oer: CHOICE has no single alternative selected")

	// CHOICE tag not known to a non-extensible type
	ErrUnknownAlternative = xerror("oer: Unknown CHOICE alternative")

	// Decode expected pointer parameter
	ErrNotPointer = xerror("oer: Expected pointer parameter")

	// Invalid value for type
	ErrInvalidValue = xerror("oer: Invalid value for type")

	// Pointer was unexpectedly nil
	ErrNilPointer = xerror("oer: Unexpected nil pointer")
)

type InvalidTypeError struct {
	T reflect.Type
}

func (e InvalidTypeError) Error() string {
	return fmt.Sprintf("oer: Type '%s' unsupported", e.T)
}

type InvalidTagForTypeError struct {
	T   reflect.Type
	Tag *tags.Tag
}

func (e InvalidTagForTypeError) Error() string {
	return fmt.Sprintf("oer: Tag '%s' unsupported for type '%s'", e.Tag, e.T)
}

type LengthError struct {
	Actual, Max uint64
}

func (err LengthError) Is(target error) bool {
	switch target {
	case ErrLengthExceedsMax:
		return err.Actual > err.Max
	case ErrLengthExceedsPlatformLimit:
		return err.Actual > uint64(maxInt)
	default:
		return false
	}
}

func (err LengthError) Error() string {
	if err.Actual > err.Max {
		return fmt.Sprintf("%s (%d > %d)", ErrLengthExceedsMax, err.Actual, err.Max)
	} else {
		return fmt.Sprintf("%s (%d > %d)", ErrLengthExceedsPlatformLimit, err.Actual, maxInt)
	}
}

// RangeError reports an integer outside the range permitted for it. Value
// holds the decimal form so that both signed and unsigned values fit.
type RangeError struct {
	Value string
	Range string
}

func (err RangeError) Is(target error) bool {
	return target == ErrValueOutOfRange
}

func (err RangeError) Error() string {
	return fmt.Sprintf("%s (%s not in %s)", ErrValueOutOfRange, err.Value, err.Range)
}

type FieldError struct {
	Underlying error
	Path       string
}

func (err FieldError) Unwrap() error {
	return err.Underlying
}

func (err FieldError) Error() string {
	uerr := strings.TrimPrefix(err.Underlying.Error(), "oer: ")
	return fmt.Sprintf("oer: %s (at %s)", uerr, err.Path)
}

// WithFieldError annotates err with the location it occurred at. ErrWantMore
// is returned unchanged.
func WithFieldError(err error, parts ...string) error {
	if err == nil || err == ErrWantMore {
		return err
	}

	var combined string
	if parts[0] == "" {
		parts[0] = "<anonymous>"
	}

	switch len(parts) {
	case 1:
		combined = parts[0]
	case 3:
		combined = fmt.Sprintf("%s.%s(%s)", parts[0], parts[1], parts[2])
	default:
		combined = strings.Join(parts, ".")
	}

	switch err := err.(type) {
	case FieldError:
		err.Path = fmt.Sprintf("%s %s", combined, err.Path)
		return err
	default:
		return FieldError{err, combined}
	}
}
