// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package oerinterfaces defines the primary interfaces of the OER codec
//
// (This package is primarily separated out in order to permit the implementation to
// be broken down into multiple packages)
package oerinterfaces

import (
	"io"
	"reflect"
)

// interface Marshaler is the interface implemented by a type which knows how to encode
// and decode itself to/from OER
//
// UnmarshalOER follows the same contract as Codec.Decode.
type Marshaler interface {
	MarshalOER(e Encoder) (int, error)
	UnmarshalOER(d Decoder, buf []byte) (int, error)
}

// interface Codec is the interface by which the marshalling of types which are
// not natively supported may be defined.
//
// Codecs may be registered with a Coder in order to specify how to handle a
// specific type.
type Codec interface {
	// Encodes v into the encoder e, returning the number of bytes written
	Encode(e Encoder, v reflect.Value) (int, error)

	// Decodes v from the start of buf, returning the number of bytes consumed.
	//
	// If buf does not hold enough input, Decode returns ErrWantMore. It may
	// consume some of buf if its progress is recorded in the decoder's state;
	// it will then be called again with the input following the consumed bytes.
	// Codecs which keep no state should consume nothing, and will be called
	// again with the same input prefix plus more.
	Decode(d Decoder, v reflect.Value, buf []byte) (int, error)
}

// interface Coder is the top-level interface to the OER library
//
// A coder (which may be safely used from multiple threads) provides the ability
// to marshal objects to and from OER. It also contains a repository of Codecs
// which know how to marshal various types
type Coder interface {
	// Marshals o into the returned buffer
	Marshal(o interface{}) ([]byte, error)

	// Unmarshals buf into the object pointed to by op. buf must contain
	// exactly one complete value
	Unmarshal(buf []byte, op interface{}) error

	// Write marshals o into the passed writer, returning the bytes written
	Write(w io.Writer, o interface{}) (int, error)

	// Read unmarshals *op out of the passed reader
	Read(r io.Reader, op interface{}) error

	// Constructs a new encoder which writes to w
	NewEncoder(w io.Writer) Encoder

	// Constructs a new resumable decoder which decodes into the object
	// pointed to by op
	NewDecoder(op interface{}) Decoder

	// Equal reports whether a and b hold the same abstract value. Members
	// which are absent compare equal to members holding their DEFAULT value
	Equal(a, b interface{}) bool

	// Validate checks that o satisfies its constraints, i.e. that it
	// could be encoded
	Validate(o interface{}) error

	// Registers the codec. Panics if a codec is already registered for
	// the type, or an attempt is made to register a codec for a type
	// for which it is not permitted to register codecs.
	RegisterCodec(template interface{}, c Codec)
	RegisterCodecReflect(type_ reflect.Type, c Codec)
}

// interface Encoder is the interface to the OER encoder. It is a byte sink
// which knows how to encode values into itself.
type Encoder interface {
	io.Writer

	// EncodeLength writes a length determinant
	EncodeLength(l int) (int, error)

	// EncodeOpenType writes v wrapped in an open type envelope
	EncodeOpenType(v reflect.Value) (int, error)

	// Encode writes an object to the OER encoder
	Encode(o interface{}) (int, error)

	// EncodeValue encodes an object to the OER encoder (via reflection)
	EncodeValue(v reflect.Value) (int, error)
}

// interface Decoder is the interface to the resumable OER decoder.
//
// A decoder is bound to a target value. Decode is called repeatedly with
// successive input; it returns ErrWantMore until the value is complete. Each
// call must be passed the input starting immediately after the bytes consumed
// by previous calls.
type Decoder interface {
	// Decode continues decoding the target from buf, returning the number of
	// bytes consumed.
	Decode(buf []byte) (int, error)

	// DecodeValue decodes a value into v (which must be settable) from buf.
	// It is used by codecs of composite types to decode their members, and
	// shares the resumption state of the enclosing Decode call.
	DecodeValue(v reflect.Value, buf []byte) (int, error)

	// DecodeLength reads a length determinant from buf
	DecodeLength(buf []byte) (l int, consumed int, err error)

	// DecodeOpenType decodes v from an open type envelope at the start of buf.
	// The whole envelope must be present.
	DecodeOpenType(v reflect.Value, buf []byte) (int, error)

	// SkipOpenType consumes an open type envelope without interpreting it
	SkipOpenType(buf []byte) (int, error)
}
