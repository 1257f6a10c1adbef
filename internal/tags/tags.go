// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package tags

import (
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Tag represents a decoded `oer` struct tag. Tags may describe several
// "layers" of type, separated by forward slashes: the first layer applies to
// the field itself (and its type, with any pointer stripped), each following
// layer to the element type of the previous one.
//
// As an example, consider the struct field:
//    Foo *[]int32 `oer:"opt,maxlen:4/range:0..7"`
//
// The field is OPTIONAL, the SEQUENCE OF it holds may contain at most four
// elements, and every element is an INTEGER (0..7).
//
// Within a layer, options are separated by commas. `default:` consumes the
// remainder of its layer, so it must be the final option.
type Tag struct {
	// Field options (first layer only)

	// Skip this field entirely; `oer:"-"`
	Skip bool
	// The field (which must be nil-able) is OPTIONAL
	Opt bool
	// The field marks the extension point (`...`). It must be of type struct{}
	// and carries no data
	ExtMarker bool
	// The field is wrapped in an open type envelope
	Open bool
	// The field has a DEFAULT value, given in its textual form
	HasDefault bool
	Default    string
	// The field is a CHOICE alternative with the given context-specific tag
	HasChoice bool
	Choice    uint64

	// Type options

	// The integer is an ENUMERATED
	Enum bool
	// The integer is constrained to Range
	Range *Range
	// The string or octet string has a fixed size
	HasSize bool
	Size    int
	// The string, octet string or SEQUENCE OF has an upper size bound
	HasMaxLen bool
	MaxLen    int

	// Options for the element type
	Next *Tag
}

// Range is an integer value constraint. Nil bounds are unbounded (MIN/MAX).
type Range struct {
	Lo, Hi *big.Int
}

func (r *Range) String() string {
	lo, hi := "MIN", "MAX"
	if r.Lo != nil {
		lo = r.Lo.String()
	}
	if r.Hi != nil {
		hi = r.Hi.String()
	}
	return lo + ".." + hi
}

// Contains reports whether v is within the range
func (r *Range) Contains(v *big.Int) bool {
	if r == nil {
		return true
	}
	if r.Lo != nil && v.Cmp(r.Lo) < 0 {
		return false
	}
	if r.Hi != nil && v.Cmp(r.Hi) > 0 {
		return false
	}
	return true
}

// Empty returns if this tag carries no options
func (t *Tag) Empty() bool {
	return t == nil || *t == Tag{}
}

// Elem returns the options for the element type, or nil
func (t *Tag) Elem() *Tag {
	if t == nil {
		return nil
	}
	return t.Next
}

// IsOptional reports whether the field is OPTIONAL or has a DEFAULT
func (t *Tag) IsOptional() bool {
	return t != nil && (t.Opt || t.HasDefault)
}

// TypeOptions returns the tag stripped of field options, for use as the
// options of the field's type. Returns nil if nothing remains.
func (t *Tag) TypeOptions() *Tag {
	if t == nil {
		return nil
	}

	nt := &Tag{
		Enum:      t.Enum,
		Range:     t.Range,
		HasSize:   t.HasSize,
		Size:      t.Size,
		HasMaxLen: t.HasMaxLen,
		MaxLen:    t.MaxLen,
		Next:      t.Next,
	}
	if nt.Empty() {
		return nil
	}
	return nt
}

// Key returns the canonical form of the type options, suitable for use as
// part of a map key for codec resolution
func (t *Tag) Key() string {
	return t.TypeOptions().String()
}

// String formats the tag in struct tag syntax
func (t *Tag) String() string {
	if t == nil {
		return ""
	}

	var parts []string
	add := func(s string) { parts = append(parts, s) }

	switch {
	case t.Skip:
		return "-"
	case t.ExtMarker:
		return "..."
	}

	if t.Opt {
		add("opt")
	}
	if t.Open {
		add("open")
	}
	if t.HasChoice {
		add("choice:" + strconv.FormatUint(t.Choice, 10))
	}
	if t.Enum {
		add("enum")
	}
	if t.Range != nil {
		add("range:" + t.Range.String())
	}
	if t.HasSize {
		add("size:" + strconv.Itoa(t.Size))
	}
	if t.HasMaxLen {
		add("maxlen:" + strconv.Itoa(t.MaxLen))
	}
	if t.HasDefault {
		add("default:" + t.Default)
	}

	s := strings.Join(parts, ",")
	if t.Next != nil {
		s += "/" + t.Next.String()
	}
	return s
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func canBeOpt(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice:
		return true
	default:
		return false
	}
}

func canHaveDefault(t reflect.Type) bool {
	return isInteger(t) || t.Kind() == reflect.Bool || t.Kind() == reflect.String
}

func isSized(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	default:
		return false
	}
}

// Deref strips a single level of pointer from t
func Deref(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// ParseStructTag parses the `oer` tag of a struct field of type t
func ParseStructTag(t reflect.Type, rtag reflect.StructTag) (*Tag, error) {
	return ParseTag(t, rtag.Get("oer"))
}

// ParseTag parses the body of an `oer` tag applied to a field of type t
func ParseTag(t reflect.Type, stags string) (*Tag, error) {
	stags = strings.TrimSpace(stags)

	switch stags {
	case "":
		return nil, nil
	case "-":
		return &Tag{Skip: true}, nil
	case "...":
		if t.Kind() != reflect.Struct || t.NumField() != 0 {
			return nil, errors.Errorf("extension marker must be of type struct{}, not %s", t)
		}
		return &Tag{ExtMarker: true}, nil
	}

	layers := strings.Split(stags, "/")
	var (
		root *Tag
		prev *Tag
	)

	// The first layer's type options apply to the pointee of a pointer field
	lt := t
	for i, layer := range layers {
		xt := new(Tag)
		bt := Deref(lt)
		if err := parseLayer(xt, lt, bt, layer, i == 0); err != nil {
			return nil, errors.Wrapf(err, "parsing layer %d of `oer:\"%s\"`", i, stags)
		}

		if prev == nil {
			root = xt
		} else {
			prev.Next = xt
		}
		prev = xt

		// Descend one level through the types
		if i+1 != len(layers) {
			switch bt.Kind() {
			case reflect.Array, reflect.Slice:
				lt = bt.Elem()
			default:
				return nil, errors.Errorf("trailing tags (%v) after reaching type %s", layers[i+1:], bt)
			}
		}
	}

	// A layer with no options in the middle of a tag is permitted (to skip a
	// level); normalise empty trailing layers away
	trim(root)
	return root, nil
}

func trim(t *Tag) bool {
	if t == nil {
		return true
	}
	if trim(t.Next) {
		t.Next = nil
	}
	return t.Empty()
}

func parseLayer(xt *Tag, ft, t reflect.Type, layer string, first bool) error {
	opts := strings.Split(layer, ",")
	for i := 0; i < len(opts); i++ {
		p := strings.TrimSpace(opts[i])
		switch {
		case p == "":
			// Nothing

		case first && p == "opt":
			if !canBeOpt(ft) {
				return errors.Errorf("type %s cannot be 'opt'", ft)
			}
			xt.Opt = true

		case first && p == "open":
			xt.Open = true

		case first && strings.HasPrefix(p, "choice:"):
			n, err := strconv.ParseUint(p[len("choice:"):], 0, 64)
			if err != nil {
				return errors.Wrap(err, "parsing `choice:` tag number")
			}
			if !canBeOpt(ft) {
				return errors.Errorf("CHOICE alternative of type %s must be a pointer or slice", ft)
			}
			xt.HasChoice = true
			xt.Choice = n

		case first && strings.HasPrefix(p, "default:"):
			// The default consumes the remainder of the layer
			def := strings.Join(append([]string{p[len("default:"):]}, opts[i+1:]...), ",")
			if !canHaveDefault(t) {
				return errors.Errorf("cannot apply `default:` to %s", t)
			}
			if _, err := ParseDefault(t, def); err != nil {
				return err
			}
			xt.HasDefault = true
			xt.Default = def
			return nil

		case p == "enum":
			if !isInteger(t) {
				return errors.Errorf("'enum' applied to %s, but only applicable to integers", t)
			}
			xt.Enum = true

		case strings.HasPrefix(p, "range:"):
			if !isInteger(t) {
				return errors.Errorf("cannot apply `range:` to %s; must be an integer", t)
			}
			r, err := parseRange(p[len("range:"):])
			if err != nil {
				return err
			}
			xt.Range = r

		case strings.HasPrefix(p, "size:"):
			n, err := strconv.Atoi(p[len("size:"):])
			if err != nil || n < 0 {
				return errors.Errorf("invalid `size:` value %q", p[len("size:"):])
			}
			if !isSized(t) {
				return errors.Errorf("cannot apply `size:` to %s; must be string or byte slice", t)
			}
			xt.HasSize = true
			xt.Size = n

		case strings.HasPrefix(p, "maxlen:"):
			n, err := strconv.Atoi(p[len("maxlen:"):])
			if err != nil || n < 0 {
				return errors.Errorf("invalid `maxlen:` value %q", p[len("maxlen:"):])
			}
			switch t.Kind() {
			case reflect.String, reflect.Slice:
			default:
				return errors.Errorf("cannot apply `maxlen:` to %s; must be string or slice", t)
			}
			xt.HasMaxLen = true
			xt.MaxLen = n

		default:
			return errors.Errorf("unknown OER tag '%s'", p)
		}
	}
	return nil
}

// parseRange parses "lo..hi", where either bound may be MIN/MAX or empty
func parseRange(s string) (*Range, error) {
	i := strings.Index(s, "..")
	if i < 0 {
		return nil, errors.Errorf("range %q must have the form lo..hi", s)
	}

	bound := func(b, unbounded string) (*big.Int, error) {
		b = strings.TrimSpace(b)
		if b == "" || b == unbounded {
			return nil, nil
		}
		v, ok := new(big.Int).SetString(b, 0)
		if !ok {
			return nil, errors.Errorf("invalid range bound %q", b)
		}
		return v, nil
	}

	lo, err := bound(s[:i], "MIN")
	if err != nil {
		return nil, err
	}
	hi, err := bound(s[i+2:], "MAX")
	if err != nil {
		return nil, err
	}
	if lo != nil && hi != nil && lo.Cmp(hi) > 0 {
		return nil, errors.Errorf("range %q is empty", s)
	}
	return &Range{Lo: lo, Hi: hi}, nil
}

// ParseDefault converts the textual default s into a value of type t
func ParseDefault(t reflect.Type, s string) (reflect.Value, error) {
	v := reflect.New(t).Elem()

	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return v, errors.Wrapf(err, "parsing default %q", s)
		}
		v.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 0, t.Bits())
		if err != nil {
			return v, errors.Wrapf(err, "parsing default %q", s)
		}
		v.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(s, 0, t.Bits())
		if err != nil {
			return v, errors.Wrapf(err, "parsing default %q", s)
		}
		v.SetUint(u)

	case reflect.String:
		v.SetString(s)

	default:
		return v, errors.Errorf("type %s cannot have a default", t)
	}

	return v, nil
}
