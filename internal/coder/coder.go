// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"reflect"
	"sync"

	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/errors"
	"go.e43.eu/oer/internal/tags"
)

const (
	// maxUint is the maximum value a uint can hold
	maxUint = ^uint(0)
	// maxInt is the maximum value an int can hold
	maxInt = int(maxUint >> 1)
)

var (
	marshalerType = reflect.TypeOf((*oerinterfaces.Marshaler)(nil)).Elem()
	bitStringType = reflect.TypeOf(BitString{})
	openTypeType  = reflect.TypeOf(OpenType{})
)

type xType struct {
	Type       reflect.Type
	EncodedTag string
}

type Coder struct {
	knownBaseCodecs sync.Map // map[reflect.Type]xCodec
	knownCodecs     sync.Map // map[xType]xCodec
}

func NewCoder() *Coder {
	return new(Coder)
}

func (cr *Coder) getBaseCodec(t reflect.Type) xCodec {
	c, ok := cr.knownBaseCodecs.Load(t)
	if ok {
		return c.(xCodec)
	}

	// Less common case: need to construct a codec
	return cr.getNewCodec(xType{t, ""}, nil)
}

func (cr *Coder) getCodec(t reflect.Type, tag *tags.Tag) xCodec {
	// Common case: already known; just lookup type
	xt := xType{t, tag.Key()}
	c, ok := cr.knownCodecs.Load(xt)
	if ok {
		return c.(xCodec)
	}

	// Less common case: need to construct a codec
	return cr.getNewCodec(xt, tag.TypeOptions())
}

// Types of object you are prevented from registering codecs for
var prohibitedCustomCodecKinds = map[reflect.Kind]struct{}{
	reflect.Invalid: struct{}{},

	// Prohibited because these would interact poorly with tagged fields in structs.
	reflect.Array:  struct{}{},
	reflect.Slice:  struct{}{},
	reflect.String: struct{}{},
	reflect.Map:    struct{}{},

	// Would make behaviour of pointers (and optional members) inconsistent
	reflect.Ptr: struct{}{},

	// These make little sense to support
	reflect.Chan: struct{}{},
	reflect.Func: struct{}{},

	reflect.UnsafePointer: struct{}{},
}

// These are blocked because implementing different behaviour for
// the primitive types would be incredibly confusing
var prohibitedPrimitives = map[reflect.Type]struct{}{
	reflect.TypeOf(false):      struct{}{},
	reflect.TypeOf(int8(0)):    struct{}{},
	reflect.TypeOf(int16(0)):   struct{}{},
	reflect.TypeOf(int32(0)):   struct{}{},
	reflect.TypeOf(int64(0)):   struct{}{},
	reflect.TypeOf(int(0)):     struct{}{},
	reflect.TypeOf(uint8(0)):   struct{}{},
	reflect.TypeOf(uint16(0)):  struct{}{},
	reflect.TypeOf(uint32(0)):  struct{}{},
	reflect.TypeOf(uint64(0)):  struct{}{},
	reflect.TypeOf(uint(0)):    struct{}{},
	reflect.TypeOf(uintptr(0)): struct{}{},
	bitStringType:              struct{}{},
	openTypeType:               struct{}{},
}

func (cr *Coder) RegisterCodec(template interface{}, c oerinterfaces.Codec) {
	cr.RegisterCodecReflect(reflect.TypeOf(template), c)
}

func (cr *Coder) RegisterCodecReflect(t reflect.Type, c oerinterfaces.Codec) {
	if _, badKind := prohibitedCustomCodecKinds[t.Kind()]; badKind {
		panic(fmt.Sprintf("Attempt to register codec for type %s which is of a prohibited kind", t))
	}

	if _, isPrimitive := prohibitedPrimitives[t]; isPrimitive {
		panic(fmt.Sprintf("Attempt to register codec for primitive %s is prohibited", t))
	}

	xt := xType{t, ""}
	xc := toXCodec(c)
	existing, found := cr.knownCodecs.LoadOrStore(xt, xc)
	if found && toOriginalCodec(existing.(xCodec)) != c {
		panic(fmt.Sprintf("Attempt to register codec '%s' for type '%s' but '%s' is already registered", c, t, existing))
	}
	cr.knownBaseCodecs.LoadOrStore(t, xc)
}

func (cr *Coder) getNewCodec(xt xType, tag *tags.Tag) xCodec {
	// We create a "deferred codec" in order to handle cycles in the type graph
	// (e.g. a SEQUENCE with an OPTIONAL member of its own type). Another
	// goroutine may be constructing a related codec simultaneously, so this
	// codec must not explode if called while being constructed
	//
	// Every call to the deferred codec will block until we finish constructing the
	// real one.
	dc := newDeferredCodec()

	// If someone else has built (or is building) the codec, we'll go with theirs instead
	c, ok := cr.knownCodecs.LoadOrStore(xt, dc)
	if ok {
		return c.(xCodec)
	}

	cc := toXCodec(cr.buildCodec(xt.Type, tag))

	// Publish our newly built codec, and release anyone waiting on us
	cr.knownCodecs.Store(xt, cc)
	if tag.Empty() {
		cr.knownBaseCodecs.Store(xt.Type, cc)
	}
	dc.resolve(cc)
	return cc
}

func (cr *Coder) buildCodec(t reflect.Type, tag *tags.Tag) oerinterfaces.Codec {
	k := t.Kind()

	// Pointers are transparent
	if k == reflect.Ptr {
		return makePtrCodec(cr, t, tag)
	}

	switch {
	case t.Implements(marshalerType):
		return &marshalerCodec{}
	case reflect.PtrTo(t).Implements(marshalerType):
		return &marshalerCodec{addr: true}
	}

	// Delegate straight through to types with their own tag handling
	switch k {
	case reflect.String:
		return makeStringCodec(t, tag)

	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return makeFixedOctetsCodec(t, tag)
		}
		return makeSeqOfCodec(cr, t, tag)

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return makeOctetsCodec(t, tag)
		}
		return makeSeqOfCodec(cr, t, tag)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return makeIntegerCodec(t, tag)
	}

	// None of the remaining types admit any tags
	if !tag.Empty() {
		return &errorCodec{errors.InvalidTagForTypeError{t, tag}}
	}

	switch {
	case k == reflect.Bool:
		return boolCodecI
	case t == bitStringType:
		return bitStringCodecI
	case t == openTypeType:
		return openTypeCodecI
	case k == reflect.Struct:
		return makeStructCodec(cr, t)
	default:
		return &errorCodec{errors.InvalidTypeError{t}}
	}
}

func (cr *Coder) NewEncoder(w io.Writer) oerinterfaces.Encoder {
	return cr.newEncoder(w)
}

func (cr *Coder) newEncoder(w io.Writer) *encoder {
	e := encoderPool.Get().(*encoder)
	e.reset(cr, w)
	return e
}

func (cr *Coder) NewDecoder(op interface{}) oerinterfaces.Decoder {
	return cr.newDecoder(op)
}

func (cr *Coder) newDecoder(op interface{}) *decoder {
	d := &decoder{cr: cr}
	v := reflect.ValueOf(op)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() {
		d.err = errors.ErrNotPointer
		return d
	}

	d.target = v.Elem()
	d.codec = cr.getBaseCodec(d.target.Type())
	return d
}

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

func (cr *Coder) Marshal(o interface{}) ([]byte, error) {
	b := bufferPool.Get().(*bytes.Buffer)
	b.Reset()
	defer bufferPool.Put(b)

	e := cr.newEncoder(b)
	_, err := e.Encode(o)
	e.release()
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), b.Bytes()...), nil
}

func (cr *Coder) Unmarshal(buf []byte, op interface{}) error {
	d := cr.newDecoder(op)
	n, err := d.Decode(buf)
	switch {
	case err == errors.ErrWantMore:
		return errors.ErrTruncated
	case err != nil:
		return err
	case n != len(buf):
		return errors.ErrTrailingData
	}
	return nil
}

var writerPool = sync.Pool{
	New: func() interface{} {
		return bufio.NewWriter(nil)
	},
}

func (cr *Coder) Write(w io.Writer, o interface{}) (int, error) {
	switch w.(type) {
	case *bytes.Buffer, *bufio.Writer:
		// Already buffered
		e := cr.newEncoder(w)
		n, err := e.Encode(o)
		e.release()
		return n, err
	}

	bw := writerPool.Get().(*bufio.Writer)
	bw.Reset(w)
	e := cr.newEncoder(bw)
	n, err := e.Encode(o)
	e.release()
	if err == nil {
		err = bw.Flush()
	}
	bw.Reset(nil)
	writerPool.Put(bw)
	return n, err
}

// readChunk is the amount Read asks of the underlying reader at a time
const readChunk = 512

// Read pumps a resumable decoder from r. Bytes read from r beyond the end
// of the value are discarded; wrap r in a reader which yields exactly one
// value, or drive a Decoder directly, when that matters.
//
// Returns io.EOF if r is at EOF before the value begins, and ErrTruncated if
// it ends part way through.
func (cr *Coder) Read(r io.Reader, op interface{}) error {
	d := cr.newDecoder(op)
	var (
		pending []byte
		chunk   [readChunk]byte
		started bool
	)

	for {
		nr, rerr := r.Read(chunk[:])
		pending = append(pending, chunk[:nr]...)
		started = started || nr > 0

		if nr > 0 || rerr != nil {
			n, err := d.Decode(pending)
			pending = pending[:copy(pending, pending[n:])]
			switch {
			case err == nil:
				return nil
			case err != errors.ErrWantMore:
				return err
			}
		}

		switch {
		case rerr == io.EOF && started:
			return errors.ErrTruncated
		case rerr != nil:
			return rerr
		}
	}
}

// Validate encodes o without keeping the output, reporting the first
// constraint o violates
func (cr *Coder) Validate(o interface{}) error {
	_, err := cr.Write(io.Discard, o)
	return err
}
