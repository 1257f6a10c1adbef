// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package main

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"go.e43.eu/oer"
)

const readingSchema = `
name: Reading
fields:
  - {name: a, type: integer, range: "0..255"}
  - {name: b, type: boolean, optional: true}
extensible: true
extensions:
  - {name: c, type: integer, range: "0..255", default: 0}
`

const frameSchema = `
name: Frame
fields:
  - {name: id, type: octets, size: 2}
  - name: body
    type: sequence
    fields:
      - {name: flag, type: boolean}
      - {name: note, type: utf8, optional: true, maxlen: 8}
  - {name: kind, type: enumerated}
  - {name: delta, type: integer}
  - {name: gap, type: null, optional: true}
`

func compile(t *testing.T, schema string) reflect.Type {
	t.Helper()
	s, err := LoadSchema(strings.NewReader(schema))
	require.NoError(t, err)
	st, err := s.Type()
	require.NoError(t, err)
	return st
}

// valueOf parses doc as a value of type st and returns a pointer to it
func valueOf(t *testing.T, st reflect.Type, doc string) interface{} {
	t.Helper()
	vp := reflect.New(st)
	require.NoError(t, yaml.Unmarshal([]byte(doc), vp.Interface()))
	return vp.Interface()
}

func TestSchemaFields(t *testing.T) {
	st := compile(t, readingSchema)
	require.Equal(t, 4, st.NumField())

	assert.Equal(t, reflect.TypeOf(uint64(0)), st.Field(0).Type)
	assert.Equal(t, "range:0..255", st.Field(0).Tag.Get("oer"))
	assert.Equal(t, "a", st.Field(0).Tag.Get("yaml"))

	assert.Equal(t, reflect.TypeOf((*bool)(nil)), st.Field(1).Type)
	assert.Equal(t, "opt", st.Field(1).Tag.Get("oer"))
	assert.Equal(t, "b,omitempty", st.Field(1).Tag.Get("yaml"))

	assert.Equal(t, "...", st.Field(2).Tag.Get("oer"))
	assert.Equal(t, "-", st.Field(2).Tag.Get("yaml"))

	assert.Equal(t, reflect.TypeOf(uint64(0)), st.Field(3).Type)
	assert.Equal(t, "range:0..255,default:0", st.Field(3).Tag.Get("oer"))
}

func TestSchemaSignedRange(t *testing.T) {
	st := compile(t, `
fields:
  - {name: x, type: integer, range: "-5..5"}
  - {name: y, type: integer, range: "MIN..0"}
  - {name: z, type: integer}
`)
	for i := 0; i < 3; i++ {
		assert.Equal(t, reflect.TypeOf(int64(0)), st.Field(i).Type, "field %d", i)
	}
}

func TestSchemaEncoding(t *testing.T) {
	st := compile(t, readingSchema)

	buf, err := oer.Marshal(valueOf(t, st, "{a: 7, c: 5}"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x07, 0x02, 0x07, 0x80, 0x01, 0x05}, buf)

	// c at its default is not sent, so there is no extension bitmap
	buf, err = oer.Marshal(valueOf(t, st, "{a: 7, b: true}"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x40, 0x07, 0xFF}, buf)
}

func TestSchemaNested(t *testing.T) {
	st := compile(t, frameSchema)
	v := valueOf(t, st, `
id: "0102"
body: {flag: true, note: hi}
kind: 3
delta: -1
`)

	expect := []byte{
		0x00,       // preamble: gap absent
		0x01, 0x02, // id
		0x80, 0xFF, 0x02, 'h', 'i', // body
		0x03,       // kind
		0x01, 0xFF, // delta
	}
	buf, err := oer.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, expect, buf)

	out := reflect.New(st).Interface()
	require.NoError(t, oer.Unmarshal(buf, out))
	assert.True(t, oer.Equal(v, out))

	_, err = oer.Marshal(valueOf(t, st, `{id: "010203"}`))
	assert.True(t, errors.Is(err, oer.ErrLengthIncorrect), "got %v", err)
}

func TestSchemaErrors(t *testing.T) {
	cases := map[string]string{
		"unknown type":          `fields: [{name: a, type: float}]`,
		"missing name":          `fields: [{type: integer}]`,
		"duplicate name":        `fields: [{name: a, type: integer}, {name: a, type: boolean}]`,
		"optional and default":  `fields: [{name: a, type: integer, optional: true, default: 1}]`,
		"range on string":       `fields: [{name: a, type: utf8, range: "0..1"}]`,
		"size on integer":       `fields: [{name: a, type: integer, size: 1}]`,
		"components on integer": `fields: [{name: a, type: integer, fields: [{name: b, type: integer}]}]`,
		"not extensible":        `extensions: [{name: a, type: integer}]`,
		"nested error":          `fields: [{name: a, type: sequence, fields: [{name: b, type: real}]}]`,
	}

	for name, schema := range cases {
		s, err := LoadSchema(strings.NewReader(schema))
		require.NoError(t, err, name)
		_, err = s.Type()
		assert.Error(t, err, name)
	}

	_, err := LoadSchema(strings.NewReader(`fields: [{name: a, type: integer, colour: red}]`))
	assert.Error(t, err, "unknown schema keys are rejected")
}

func TestHexBytes(t *testing.T) {
	var b hexBytes
	require.NoError(t, yaml.Unmarshal([]byte(`"de ad be ef"`), &b))
	assert.Equal(t, hexBytes{0xDE, 0xAD, 0xBE, 0xEF}, b)

	out, err := yaml.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte(`"xyz"`), &b))
}
