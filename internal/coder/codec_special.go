// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"reflect"
	"sync"
	"sync/atomic"

	oerinterfaces "go.e43.eu/oer/interfaces"
)

// type xCodec is the internal codec representation we use
type xCodec = oerinterfaces.Codec

func toXCodec(c oerinterfaces.Codec) xCodec {
	return c
}

// toOriginalCodec returns the codec a deferred codec resolved to
func toOriginalCodec(x xCodec) oerinterfaces.Codec {
	if dc, ok := x.(*deferredCodec); ok {
		return dc.get()
	}
	return x
}

// codec embedding a fixed, memoised error (generally
// indicating that a type can't be marshalled)
type errorCodec struct {
	err error
}

func (c *errorCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	return 0, c.err
}

func (c *errorCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	return 0, c.err
}

// placeholder codec for types under construction, to handle cycles
type deferredCodec struct {
	real atomic.Value // xCodec
	wg   sync.WaitGroup
}

var _ xCodec = &deferredCodec{}

func newDeferredCodec() *deferredCodec {
	dc := new(deferredCodec)
	dc.wg.Add(1)
	return dc
}

func (dc *deferredCodec) get() xCodec {
	real := dc.real.Load()
	if real == nil {
		dc.wg.Wait()
		real = dc.real.Load()
	}
	return real.(xCodec)
}

func (dc *deferredCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	return dc.get().Encode(e, v)
}

func (dc *deferredCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	return dc.get().Decode(d, v, buf)
}

func (dc *deferredCodec) resolve(real xCodec) {
	dc.real.Store(real)
	dc.wg.Done()
}

// marshalerCodec handles types which know how to self marshal. If addr is
// set, the methods are declared on the pointer type.
type marshalerCodec struct {
	addr bool
}

func (mc *marshalerCodec) marshaler(v reflect.Value) oerinterfaces.Marshaler {
	if !mc.addr {
		return v.Interface().(oerinterfaces.Marshaler)
	}

	if !v.CanAddr() {
		nv := reflect.New(v.Type()).Elem()
		nv.Set(v)
		v = nv
	}
	return v.Addr().Interface().(oerinterfaces.Marshaler)
}

func (mc *marshalerCodec) Encode(e oerinterfaces.Encoder, v reflect.Value) (int, error) {
	return mc.marshaler(v).MarshalOER(e)
}

func (mc *marshalerCodec) Decode(d oerinterfaces.Decoder, v reflect.Value, buf []byte) (int, error) {
	return mc.marshaler(v).UnmarshalOER(d, buf)
}
