// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"bytes"
	"reflect"
)

// Equal reports whether a and b hold the same abstract value. An absent
// component with a DEFAULT compares equal to one holding the default.
func (cr *Coder) Equal(a, b interface{}) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}
	return equalValue(cr.getBaseCodec(va.Type()), va, vb)
}

func equalValue(c xCodec, a, b reflect.Value) bool {
	switch c := c.(type) {
	case *deferredCodec:
		return equalValue(c.get(), a, b)

	case *ptrCodec:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return equalValue(c.elem, a.Elem(), b.Elem())

	case *seqOfCodec:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !equalValue(c.elem, a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true

	case *sequenceCodec:
		for i := range c.fields {
			f := &c.fields[i]
			av, aok := c.present(f, a)
			bv, bok := c.present(f, b)
			if aok != bok {
				return false
			}
			if aok && !equalValue(f.codec, av, bv) {
				return false
			}
		}
		return true

	case *choiceCodec:
		ai, av, aerr := c.selected(a)
		bi, bv, berr := c.selected(b)
		if aerr != nil || berr != nil {
			return aerr != nil && berr != nil && reflect.DeepEqual(a.Interface(), b.Interface())
		}
		return ai == bi && equalValue(c.alts[ai].codec, av, bv)

	case *octetsCodec:
		// A nil and an empty OCTET STRING are the same value
		return bytes.Equal(a.Bytes(), b.Bytes())
	}

	return reflect.DeepEqual(a.Interface(), b.Interface())
}
