// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package bits implements the MSB-first bit cursors used for OER preambles,
// extension addition bitmaps and bit string contents.
package bits

// Reader reads bits from a buffer it owns. Bits are read most significant
// first.
type Reader struct {
	buf []byte
	pos int // in bits
	end int // in bits
}

// NewReader constructs a Reader over the first nbits bits of a copy of buf.
// nbits is clamped to the length of buf.
func NewReader(buf []byte, nbits int) *Reader {
	if max := len(buf) * 8; nbits > max {
		nbits = max
	}
	if nbits < 0 {
		nbits = 0
	}

	return &Reader{
		buf: append([]byte(nil), buf[:(nbits+7)/8]...),
		end: nbits,
	}
}

// Get returns the next n bits (n <= 31) as an integer, or -1 if fewer than n
// bits remain. Nothing is consumed when -1 is returned.
func (r *Reader) Get(n int) int {
	if n < 0 || n > 31 {
		panic("bits: Get of more than 31 bits")
	}
	if r.end-r.pos < n {
		return -1
	}

	v := 0
	for i := 0; i < n; i++ {
		b := r.buf[r.pos>>3] >> (7 - uint(r.pos&7)) & 1
		v = v<<1 | int(b)
		r.pos++
	}
	return v
}

// Undo rolls back the last n bits read. It is used to undo a speculative
// read when the operation depending on those bits cannot complete yet.
func (r *Reader) Undo(n int) {
	if n > r.pos {
		panic("bits: Undo past start of buffer")
	}
	r.pos -= n
}

// Remaining returns the number of unread bits
func (r *Reader) Remaining() int {
	return r.end - r.pos
}

// Writer accumulates bits most significant first.
type Writer struct {
	buf []byte
	n   int // in bits
}

// PutBit appends a single bit
func (w *Writer) PutBit(b bool) {
	if w.n&7 == 0 {
		w.buf = append(w.buf, 0)
	}
	if b {
		w.buf[w.n>>3] |= 0x80 >> uint(w.n&7)
	}
	w.n++
}

// Len returns the number of bits written
func (w *Writer) Len() int {
	return w.n
}

// UnusedBits returns the number of padding bits in the final octet
func (w *Writer) UnusedBits() int {
	return (8 - w.n&7) & 7
}

// Bytes returns the written bits flushed to byte alignment (padding bits are
// zero). The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reset discards all written bits, retaining the buffer
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.n = 0
}
