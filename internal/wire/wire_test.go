// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.e43.eu/oer/internal/errors"
)

func TestLength(t *testing.T) {
	cases := []struct {
		l   int
		enc []byte
	}{
		{0, []byte{0x00}},
		{5, []byte{0x05}},
		{127, []byte{0x7F}},
		{128, []byte{0x81, 0x80}},
		{255, []byte{0x81, 0xFF}},
		{256, []byte{0x82, 0x01, 0x00}},
		{70000, []byte{0x83, 0x01, 0x11, 0x70}},
	}

	for _, c := range cases {
		assert.Equal(t, c.enc, AppendLength(nil, c.l), "AppendLength(%d)", c.l)
		assert.Equal(t, len(c.enc), LengthSize(c.l), "LengthSize(%d)", c.l)

		l, n, err := FetchLength(append(c.enc, 0xEE))
		require.NoError(t, err)
		assert.Equal(t, c.l, l)
		assert.Equal(t, len(c.enc), n)

		for i := 0; i < len(c.enc); i++ {
			_, n, err := FetchLength(c.enc[:i])
			assert.Equal(t, errors.ErrWantMore, err, "Truncated length %x", c.enc[:i])
			assert.Equal(t, 0, n)
		}
	}
}

func TestLengthErrors(t *testing.T) {
	_, _, err := FetchLength([]byte{0x80})
	assert.Equal(t, errors.ErrInvalidValue, err, "Indefinite length is not OER")

	_, _, err = FetchLength([]byte{0x89, 0x01, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.IsType(t, errors.LengthError{}, err)

	// Non canonical forms are tolerated on input
	l, n, err := FetchLength([]byte{0x82, 0x00, 0x05})
	require.NoError(t, err)
	assert.Equal(t, 5, l)
	assert.Equal(t, 3, n)
}

func TestEnvelope(t *testing.T) {
	contents, n, err := FetchEnvelope([]byte{0x02, 0xAA, 0xBB, 0xCC})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, contents)
	assert.Equal(t, 3, n)

	_, n, err = FetchEnvelope([]byte{0x03, 0xAA, 0xBB})
	assert.Equal(t, errors.ErrWantMore, err)
	assert.Equal(t, 0, n)
}

func TestFixedIntegers(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x02}, AppendUint(nil, uint16(0x0102), 2))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0xFF}, AppendUint(nil, uint8(0xFF), 4))
	assert.Equal(t, []byte{0xFF, 0xFE}, AppendInt(nil, int16(-2), 2))
	assert.Equal(t, []byte{0x80}, AppendInt(nil, int64(-128), 1))

	assert.Equal(t, uint64(0x0102), Uint([]byte{0x01, 0x02}))
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), Uint([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}))
	assert.Equal(t, int64(-2), Int([]byte{0xFF, 0xFE}))
	assert.Equal(t, int64(127), Int([]byte{0x7F}))
	assert.Equal(t, int64(-32768), Int([]byte{0x80, 0x00}))
	assert.Equal(t, int64(0), Int(nil))
}

func TestIntegerSizes(t *testing.T) {
	assert.Equal(t, 1, UnsignedSize(uint8(0)))
	assert.Equal(t, 1, UnsignedSize(uint(255)))
	assert.Equal(t, 2, UnsignedSize(uint32(256)))
	assert.Equal(t, 8, UnsignedSize(^uint64(0)))

	assert.Equal(t, 1, SignedSize(int8(-128)))
	assert.Equal(t, 1, SignedSize(127))
	assert.Equal(t, 2, SignedSize(128))
	assert.Equal(t, 2, SignedSize(-129))
	assert.Equal(t, 8, SignedSize(int64(-1<<63)))
}

func TestVariableIntegers(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x00}, AppendUnsigned(nil, 0))
	assert.Equal(t, []byte{0x02, 0x01, 0x00}, AppendUnsigned(nil, 256))
	assert.Equal(t, []byte{0x01, 0xFF}, AppendSigned(nil, -1))
	assert.Equal(t, []byte{0x02, 0x00, 0x80}, AppendSigned(nil, 128))

	u, n, err := FetchUnsigned([]byte{0x02, 0x01, 0x00, 0xEE})
	require.NoError(t, err)
	assert.Equal(t, uint64(256), u)
	assert.Equal(t, 3, n)

	// Redundant leading zeroes beyond 64 bits are accepted
	u, _, err = FetchUnsigned([]byte{0x09, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), u)

	_, _, err = FetchUnsigned([]byte{0x09, 0x01, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.Equal(t, errors.ErrValueOutOfRange, err)

	_, _, err = FetchUnsigned([]byte{0x00})
	assert.Equal(t, errors.ErrValueOutOfRange, err, "An integer must have at least one octet")

	_, n, err = FetchUnsigned([]byte{0x02, 0x01})
	assert.Equal(t, errors.ErrWantMore, err)
	assert.Equal(t, 0, n)

	s, n, err := FetchSigned([]byte{0x02, 0xFF, 0x7F})
	require.NoError(t, err)
	assert.Equal(t, int64(-129), s)
	assert.Equal(t, 3, n)

	_, _, err = FetchSigned([]byte{0x09, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.Equal(t, errors.ErrValueOutOfRange, err)
}

func TestTags(t *testing.T) {
	cases := []struct {
		tag Tag
		enc []byte
	}{
		{Tag{ClassContextSpecific, 0}, []byte{0x80}},
		{Tag{ClassContextSpecific, 62}, []byte{0xBE}},
		{Tag{ClassContextSpecific, 63}, []byte{0xBF, 0x3F}},
		{Tag{ClassContextSpecific, 127}, []byte{0xBF, 0x7F}},
		{Tag{ClassContextSpecific, 128}, []byte{0xBF, 0x81, 0x00}},
		{Tag{ClassUniversal, 5}, []byte{0x05}},
		{Tag{ClassApplication, 1}, []byte{0x41}},
		{Tag{ClassPrivate, 1000}, []byte{0xFF, 0x87, 0x68}},
	}

	for _, c := range cases {
		assert.Equal(t, c.enc, AppendTag(nil, c.tag), "AppendTag(%v)", c.tag)

		tag, n, err := FetchTag(c.enc)
		require.NoError(t, err)
		assert.Equal(t, c.tag, tag)
		assert.Equal(t, len(c.enc), n)

		for i := 0; i < len(c.enc); i++ {
			_, _, err := FetchTag(c.enc[:i])
			assert.Equal(t, errors.ErrWantMore, err, "Truncated tag %x", c.enc[:i])
		}
	}
}

func TestTagErrors(t *testing.T) {
	_, _, err := FetchTag([]byte{0xBF, 0x05})
	assert.Equal(t, errors.ErrInvalidValue, err, "Small numbers must use the short form")

	_, _, err = FetchTag([]byte{0xBF, 0x80, 0x7F})
	assert.Equal(t, errors.ErrInvalidValue, err, "Leading zero groups are not minimal")

	_, _, err = FetchTag([]byte{0xBF, 0x81, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00})
	assert.Equal(t, errors.ErrValueOutOfRange, err)
}
