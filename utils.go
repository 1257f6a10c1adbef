// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package oer

import (
	"io"
	"reflect"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/coder"
)

type defaultCoder struct {
	coder.Coder
}

func (d *defaultCoder) RegisterCodec(template interface{}, c oerinterfaces.Codec) {
	panic("Cannot register type on default codec")
}

func (d *defaultCoder) RegisterCodecReflect(type_ reflect.Type, c oerinterfaces.Codec) {
	panic("Cannot register type on default codec")
}

// The default coder (used by the package global functions)
//
// This behaves identically to a coder created using NewCoder, except
// that it is not permitted to register any codecs upon it.
var DefaultCoder defaultCoder

var _ Coder = &DefaultCoder

// Marshals o into the returned buffer
func Marshal(o interface{}) ([]byte, error) {
	return DefaultCoder.Marshal(o)
}

// Unmarshals buf into the object pointed to by op. buf must hold exactly
// one complete value
func Unmarshal(buf []byte, op interface{}) error {
	return DefaultCoder.Unmarshal(buf, op)
}

// Write marshals o into the passed writer
func Write(w io.Writer, o interface{}) (int, error) {
	return DefaultCoder.Write(w, o)
}

// Read unmarshals *op out of the passed reader. It may read past the end
// of the value.
func Read(r io.Reader, op interface{}) error {
	return DefaultCoder.Read(r, op)
}

// Constructs a new encoder which writes to w
func NewEncoder(w io.Writer) Encoder {
	return DefaultCoder.NewEncoder(w)
}

// Constructs a new resumable decoder which decodes into the object pointed
// to by op
func NewDecoder(op interface{}) Decoder {
	return DefaultCoder.NewDecoder(op)
}

// Equal reports whether a and b hold the same value. Components absent from
// one and holding their DEFAULT value in the other are equal.
func Equal(a, b interface{}) bool {
	return DefaultCoder.Equal(a, b)
}

// Validate reports whether o satisfies the constraints of its type
func Validate(o interface{}) error {
	return DefaultCoder.Validate(o)
}

// Construct a new Coder
func NewCoder() Coder {
	return coder.NewCoder()
}
