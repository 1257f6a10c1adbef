// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"
	"reflect"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/tags"
)

// member locates a component within the struct holding it, and knows how
// its absence is represented
type member interface {
	// value returns the component's value within parent, and false if it is
	// absent (a nil pointer or slice)
	value(parent reflect.Value) (reflect.Value, bool)
	// target returns a settable value to decode the component into,
	// allocating storage if required
	target(parent reflect.Value) reflect.Value
	// clear marks the component absent
	clear(parent reflect.Value)
}

// inlineMember is a component stored directly in its field. If nilable, a
// nil slice (or pointer) is absent.
type inlineMember struct {
	index   int
	nilable bool
}

func (m inlineMember) value(parent reflect.Value) (reflect.Value, bool) {
	fv := parent.Field(m.index)
	return fv, !m.nilable || !fv.IsNil()
}

func (m inlineMember) target(parent reflect.Value) reflect.Value {
	return parent.Field(m.index)
}

func (m inlineMember) clear(parent reflect.Value) {
	fv := parent.Field(m.index)
	fv.Set(reflect.Zero(fv.Type()))
}

// pointerMember is a component stored behind a pointer field. A nil pointer
// is absent.
type pointerMember struct {
	index int
	elem  reflect.Type
}

func (m pointerMember) value(parent reflect.Value) (reflect.Value, bool) {
	fv := parent.Field(m.index)
	if fv.IsNil() {
		return fv, false
	}
	return fv.Elem(), true
}

func (m pointerMember) target(parent reflect.Value) reflect.Value {
	fv := parent.Field(m.index)
	if fv.IsNil() {
		fv.Set(reflect.New(m.elem))
	}
	return fv.Elem()
}

func (m pointerMember) clear(parent reflect.Value) {
	fv := parent.Field(m.index)
	fv.Set(reflect.Zero(fv.Type()))
}

// defaultValue is the DEFAULT of a component
type defaultValue struct {
	v reflect.Value
}

func (d *defaultValue) set(v reflect.Value) {
	v.Set(d.v)
}

func (d *defaultValue) equal(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool() == d.v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == d.v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == d.v.Uint()
	case reflect.String:
		return v.String() == d.v.String()
	default:
		return false
	}
}

type field struct {
	index int
	name  string
	// Codec of the component's type (with pointers stripped)
	codec  xCodec
	member member
	// The component has a presence bit (OPTIONAL or DEFAULT)
	optional bool
	def      *defaultValue
	// The component is wrapped in an open type envelope
	open bool
}

type parsedField struct {
	sf  reflect.StructField
	tag *tags.Tag
}

func makeField(cr *Coder, pf parsedField) (field, error) {
	sf, tag := pf.sf, pf.tag
	f := field{
		index:    sf.Index[0],
		name:     sf.Name,
		optional: tag.IsOptional(),
		open:     tag != nil && tag.Open,
	}

	base := sf.Type
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
		f.member = pointerMember{index: f.index, elem: base}
	} else {
		f.member = inlineMember{index: f.index, nilable: tag != nil && (tag.Opt || tag.HasChoice)}
	}

	if tag != nil && tag.HasDefault {
		dv, err := tags.ParseDefault(base, tag.Default)
		if err != nil {
			return f, err
		}
		f.def = &defaultValue{dv}
	}

	f.codec = cr.getCodec(base, tag.TypeOptions())
	return f, nil
}

func makeStructCodec(cr *Coder, t reflect.Type) oerinterfaces.Codec {
	var (
		fields   []parsedField
		marker   = -1
		isChoice bool
	)

	for i, fieldCount := 0, t.NumField(); i < fieldCount; i++ {
		sf := t.Field(i)
		tag, err := tags.ParseStructTag(sf.Type, sf.Tag)
		if err != nil {
			return &errorCodec{fmt.Errorf("Parsing tag of field '%s' of '%s': %v",
				sf.Name, t, err)}
		}

		switch {
		case tag != nil && tag.Skip:
			continue
		case tag != nil && tag.ExtMarker:
			if marker >= 0 {
				return &errorCodec{fmt.Errorf("Extension marker of %s duplicated", t)}
			}
			marker = len(fields)
			continue
		case sf.PkgPath != "":
			// Unexported
			continue
		}

		if tag != nil && tag.HasChoice {
			isChoice = true
		}
		fields = append(fields, parsedField{sf, tag})
	}

	if isChoice {
		return makeChoiceCodec(cr, t, fields, marker)
	}
	return makeSequenceCodec(cr, t, fields, marker)
}
