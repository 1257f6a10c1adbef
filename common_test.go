// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package oer

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDirection int

const (
	bothTest testDirection = iota
	encodeTest
	decodeTest
)

// comparingWriter is an io.Writer which immediately compares every byte
// written to it against the values read from the passed reader. This
// enables capturing the call stack at the time any discrepancy in the
// written data occurs
//
// It captures the written data so that a final comparison (which may somtimes
// be more informative) can also be made
type comparingWriter struct {
	T *testing.T

	// The reader
	R io.Reader

	// Error returned by reader
	Rerr error

	// Bytes written
	B []byte

	// Bytes expected
	X []byte
}

func newComparingWriter(t *testing.T, r io.Reader) *comparingWriter {
	return &comparingWriter{
		T: t,
		R: r,
	}
}

func (w *comparingWriter) Write(buf []byte) (int, error) {
	w.T.Helper()

	w.B = append(w.B, buf...)

	// Gather the expected bytes
	var expected []byte
	if w.Rerr == nil {
		expected = make([]byte, len(buf))
		nr, err := io.ReadFull(w.R, expected)
		expected = expected[0:nr]
		w.X = append(w.X, expected...)
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}

		if err != nil {
			require.Equal(w.T, io.EOF, err, "comparingWriter: Comparison reader returned non-EOF error")
			assert.Failf(w.T, "Attempt to write after end", "Attempt to write %d bytes after end of expected data", len(buf)-nr)
			w.Rerr = err
		}
	}

	// If we read any bytes, cross compare them
	if len(expected) != 0 {
		assert.Equalf(w.T, expected, buf[0:len(expected)], "Expected equal value during %d byte write", len(buf))
	}

	return len(buf), nil
}

func (w *comparingWriter) Assert() {
	buf := make([]byte, 1024)
	err := w.Rerr

	var n int
	for err == nil {
		n, err = w.R.Read(buf)
		w.X = append(w.X, buf[0:n]...)
		require.Equal(w.T, io.EOF, err, "comparingWriter: Comparison reader must only return io.EOF error")
	}

	assert.Equalf(w.T, w.X, w.B, "Expected written data to match expected")
}

// singleByteReader is a really annoying io.Reader which returns a single byte at a time
type singleByteReader struct {
	R io.Reader
}

func (r *singleByteReader) Read(buf []byte) (int, error) {
	switch {
	case len(buf) == 0:
		return 0, nil
	default:
		return r.R.Read(buf[0:1])
	}
}

// feed drives d over data, delivering it in pieces cut at the given offsets.
// Unconsumed input is carried over into the next call, as a network reader
// would. Returns the final error (ErrTruncated if the input ran out) and the
// bytes consumed in total.
func feed(d Decoder, data []byte, cuts ...int) (int, error) {
	var (
		pending  []byte
		consumed int
		prev     int
	)

	cuts = append(cuts, len(data))
	for _, cut := range cuts {
		pending = append(pending, data[prev:cut]...)
		prev = cut

		n, err := d.Decode(pending)
		consumed += n
		pending = pending[n:]
		if err != ErrWantMore {
			return consumed, err
		}
	}
	return consumed, ErrTruncated
}

// everyByte returns the cuts which deliver n bytes one at a time
func everyByte(n int) []int {
	cuts := make([]int, 0, n)
	for i := 1; i < n; i++ {
		cuts = append(cuts, i)
	}
	return cuts
}

type testcase struct {
	// Name of this test case
	Name string

	// Which directions to run this test in (defaults to both)
	Direction testDirection

	// The object to marshal, or to use for comparison on unmarshalling
	Object interface{}

	// The encoded representation of the object
	Bytes []byte

	// Error expected on en/decode
	EncErrorIs error
	DecErrorIs error

	// Comparator to use (instead of default) after successful decoding
	DecodeComparator func(t *testing.T, expt, actual interface{})
}

func assertErrorIs(t *testing.T, err, target error, what string) {
	t.Helper()
	if assert.Errorf(t, err, "%s should have returned an error", what) {
		assert.Truef(t, errors.Is(err, target), "Error expected to be %s, but was %s", target, err)
	}
}

func RunTestcases(t *testing.T, tcs []testcase) {
	for i := range tcs {
		tc := &tcs[i]
		if tc.DecodeComparator == nil {
			tc.DecodeComparator = func(t *testing.T, l, r interface{}) {
				t.Helper()
				assert.Equal(t, l, r, "unmarshal output should match; diff (-want +got):\n%s", pretty.Compare(l, r))
			}
		}
	}

	t.Parallel()

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			if tc.Direction != decodeTest {
				t.Run("Encode", func(t *testing.T) {
					var w io.Writer
					if tc.EncErrorIs != nil {
						w = io.Discard
					} else {
						w = newComparingWriter(t, bytes.NewReader(tc.Bytes))
					}
					n, err := NewEncoder(w).Encode(tc.Object)
					if tc.EncErrorIs != nil {
						assertErrorIs(t, err, tc.EncErrorIs, "Encoding")
						assert.Error(t, Validate(tc.Object), "Validate should reject what cannot be encoded")
					} else {
						require.NoError(t, err, "Encode should succeed")
						assert.Equal(t, len(tc.Bytes), n, "Encode should report the bytes written")
						w.(*comparingWriter).Assert()
					}
				})

				// Pointers at the top level are transparent
				t.Run("EncodePtr", func(t *testing.T) {
					v := reflect.ValueOf(tc.Object)
					vp := reflect.New(v.Type())
					vp.Elem().Set(v)

					buf, err := Marshal(vp.Interface())
					if tc.EncErrorIs != nil {
						assertErrorIs(t, err, tc.EncErrorIs, "Marshal")
					} else {
						require.NoError(t, err, "Marshal should succeed")
						assert.Equal(t, tc.Bytes, buf)
					}
				})
			}

			if tc.Direction == encodeTest {
				return
			}

			check := func(t *testing.T, tgtp interface{}, err error) {
				t.Helper()
				if tc.DecErrorIs != nil {
					assertErrorIs(t, err, tc.DecErrorIs, "Decoding")
					return
				}

				require.NoError(t, err, "Decode should succeed")
				// Dereference the pointer to get a T for comparison purposes
				o := reflect.ValueOf(tgtp).Elem().Interface()
				tc.DecodeComparator(t, tc.Object, o)
			}
			newTarget := func() interface{} {
				// If tc.Object is of type T, then construct new(T)
				return reflect.New(reflect.TypeOf(tc.Object)).Interface()
			}

			t.Run("Unmarshal", func(t *testing.T) {
				tgtp := newTarget()
				check(t, tgtp, Unmarshal(tc.Bytes, tgtp))
			})

			t.Run("DecodeEveryByte", func(t *testing.T) {
				tgtp := newTarget()
				n, err := feed(NewDecoder(tgtp), tc.Bytes, everyByte(len(tc.Bytes))...)
				check(t, tgtp, err)
				if err == nil {
					assert.Equal(t, len(tc.Bytes), n, "Decoder should consume the whole value")
				}
			})

			t.Run("DecodeSplit", func(t *testing.T) {
				for cut := 0; cut <= len(tc.Bytes); cut++ {
					tgtp := newTarget()
					_, err := feed(NewDecoder(tgtp), tc.Bytes, cut)
					check(t, tgtp, err)
				}
			})

			t.Run("ReadSingleByte", func(t *testing.T) {
				tgtp := newTarget()
				r := &singleByteReader{bytes.NewReader(tc.Bytes)}
				check(t, tgtp, Read(r, tgtp))
			})
		})
	}
}
