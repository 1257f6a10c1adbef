// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package oer

import (
	"bytes"
	"encoding/json"
	"io"
	"reflect"
	"testing"
)

func EncodeBenchmarkCommon(b *testing.B, ob interface{}) {
	b.Run("OERMarshal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, err := Marshal(ob)
			if err != nil {
				b.Fatalf("Marshal: %s", err)
			}
		}
	})

	b.Run("JSONMarshal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, err := json.Marshal(ob)
			if err != nil {
				b.Fatalf("json.Marshal: %s", err)
			}
		}
	})

	b.Run("OERWriteDiscard", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, err := Write(io.Discard, ob)
			if err != nil {
				b.Fatalf("Write: %s", err)
			}
		}
	})

	b.Run("OEREncoderBuffer", func(b *testing.B) {
		var buf bytes.Buffer
		w := NewEncoder(&buf)
		for i := 0; i < b.N; i++ {
			_, err := w.Encode(ob)
			if err != nil {
				b.Fatalf("Encode: %s", err)
			}

			if (i % 2048) == 0 {
				buf.Reset()
			}
		}
	})
}

func DecodeBenchmarkCommon(b *testing.B, ob interface{}) {
	buf, err := Marshal(ob)
	if err != nil {
		b.Fatalf("Marshal: %s", err)
	}
	t := reflect.TypeOf(ob)

	b.Run("OERUnmarshal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := Unmarshal(buf, reflect.New(t).Interface()); err != nil {
				b.Fatalf("Unmarshal: %s", err)
			}
		}
	})

	b.Run("OERDecodeEveryByte", func(b *testing.B) {
		cuts := everyByte(len(buf))
		for i := 0; i < b.N; i++ {
			if _, err := feed(NewDecoder(reflect.New(t).Interface()), buf, cuts...); err != nil {
				b.Fatalf("Decode: %s", err)
			}
		}
	})
}

func BenchmarkInt32Encode(b *testing.B) {
	EncodeBenchmarkCommon(b, int32(123))
}

func BenchmarkInt64Encode(b *testing.B) {
	EncodeBenchmarkCommon(b, int64(768))
}

func BenchmarkStringEncode(b *testing.B) {
	EncodeBenchmarkCommon(b, "Hello World")
}

type benchSequence struct {
	X  int32  `oer:"range:0..MAX"`
	Y  int64
	S  string `oer:"maxlen:32"`
	O  []byte `oer:"maxlen:32"`
	IP *int32 `oer:"opt" json:",omitempty"`
	_  struct{} `oer:"..."`
	E  uint16 `oer:"range:0..65535,default:0"`
}

var benchSequenceValue = &benchSequence{
	X:  123456,
	Y:  12345678,
	S:  "Hello Encoders",
	O:  []byte("Byte Slice"),
	IP: new(int32),
	E:  8080,
}

func BenchmarkSimpleSequenceEncode(b *testing.B) {
	EncodeBenchmarkCommon(b, benchSequenceValue)
}

func BenchmarkSimpleSequenceDecode(b *testing.B) {
	DecodeBenchmarkCommon(b, *benchSequenceValue)
}

func BenchmarkChoicesEncode(b *testing.B) {
	type S1 struct {
		Frob int32
		Glob int32
	}

	type S2 struct {
		Foo int32
		Bar string `oer:"maxlen:32"`
	}

	type S3 struct {
		Foo *S1 `oer:"opt" json:"foo,omitempty"`
		Baz int32
	}

	type C struct {
		S1 *S1 `oer:"choice:0" json:"s1,omitempty"`
		S2 *S2 `oer:"choice:1" json:"s2,omitempty"`
		_  struct{} `oer:"..."`
		S3 *S3 `oer:"choice:2" json:"s3,omitempty"`
	}

	vals := []C{
		{S1: &S1{123, 456}},
		{S2: &S2{789, "A string"}},
		{S3: &S3{&S1{65535, 1024}, 512}},
		{S2: &S2{789, "A second string"}},
		{S3: &S3{nil, 256}},
	}
	EncodeBenchmarkCommon(b, vals)
}
