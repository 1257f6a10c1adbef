// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Schema describes a SEQUENCE type at runtime. It is loaded from a YAML
// document such as
//
//	name: Reading
//	fields:
//	  - {name: sensor, type: integer, range: "0..255"}
//	  - {name: label, type: utf8, optional: true, maxlen: 16}
//	extensible: true
//	extensions:
//	  - {name: scale, type: integer, range: "0..255", default: 0}
type Schema struct {
	Name  string `yaml:"name"`
	Group `yaml:",inline"`
}

// Group is the component list of a SEQUENCE
type Group struct {
	Fields     []Field `yaml:"fields"`
	Extensible bool    `yaml:"extensible"`
	Extensions []Field `yaml:"extensions"`
}

type Field struct {
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"`
	Optional bool    `yaml:"optional"`
	Default  *string `yaml:"default"`
	Range    string  `yaml:"range"`
	Size     *int    `yaml:"size"`
	MaxLen   *int    `yaml:"maxlen"`

	// Components of a nested sequence
	Group `yaml:",inline"`
}

// hexBytes is an OCTET STRING which reads and writes YAML as hex
type hexBytes []byte

func (b hexBytes) MarshalYAML() (interface{}, error) {
	return hex.EncodeToString(b), nil
}

func (b *hexBytes) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}

	buf, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return errors.Wrapf(err, "line %d: octets must be hex", n.Line)
	}
	*b = buf
	return nil
}

var (
	int64Type    = reflect.TypeOf(int64(0))
	uint64Type   = reflect.TypeOf(uint64(0))
	boolType     = reflect.TypeOf(false)
	stringType   = reflect.TypeOf("")
	hexBytesType = reflect.TypeOf(hexBytes(nil))
	nullType     = reflect.TypeOf(struct{}{})
)

// LoadSchema reads a schema document from r
func LoadSchema(r io.Reader) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "reading schema")
	}
	return &s, nil
}

// Type builds the Go struct type whose OER encoding is described by s
func (s *Schema) Type() (reflect.Type, error) {
	name := s.Name
	if name == "" {
		name = "<schema>"
	}

	return s.Group.structType(name)
}

func (g *Group) structType(path string) (reflect.Type, error) {
	if len(g.Extensions) > 0 && !g.Extensible {
		return nil, errors.Errorf("%s: extensions listed but not extensible", path)
	}

	var sfs []reflect.StructField
	seen := make(map[string]bool)

	add := func(fs []Field, ext bool) error {
		for i := range fs {
			f := &fs[i]
			if f.Name == "" {
				return errors.Errorf("%s: field %d has no name", path, len(sfs))
			}
			if seen[f.Name] {
				return errors.Errorf("%s: field %q duplicated", path, f.Name)
			}
			seen[f.Name] = true

			sf, err := f.structField(path+"."+f.Name, len(sfs), ext)
			if err != nil {
				return err
			}
			sfs = append(sfs, sf)
		}
		return nil
	}

	if err := add(g.Fields, false); err != nil {
		return nil, err
	}

	if g.Extensible {
		sfs = append(sfs, reflect.StructField{
			Name: "Extensions",
			Type: nullType,
			Tag:  `oer:"..." yaml:"-"`,
		})
	}

	if err := add(g.Extensions, true); err != nil {
		return nil, err
	}

	return reflect.StructOf(sfs), nil
}

// structField maps f onto a field of the generated struct. Optional fields and
// extension additions without a default are pointers so that absence can be
// represented.
func (f *Field) structField(path string, index int, ext bool) (reflect.StructField, error) {
	var (
		opts []string
		t    reflect.Type
	)

	if f.Optional && f.Default != nil {
		return reflect.StructField{}, errors.Errorf("%s: cannot be both optional and have a default", path)
	}
	if f.Type != "sequence" && (len(f.Fields) > 0 || len(f.Extensions) > 0 || f.Extensible) {
		return reflect.StructField{}, errors.Errorf("%s: only a sequence has components", path)
	}
	if f.Range != "" && f.Type != "integer" {
		return reflect.StructField{}, errors.Errorf("%s: range applies only to integers", path)
	}
	if (f.Size != nil || f.MaxLen != nil) && f.Type != "octets" && f.Type != "utf8" {
		return reflect.StructField{}, errors.Errorf("%s: size bounds apply only to octets and utf8", path)
	}

	switch f.Type {
	case "integer":
		t = int64Type
		if f.Range != "" {
			if !signedRange(f.Range) {
				t = uint64Type
			}
			opts = append(opts, "range:"+f.Range)
		}
	case "enumerated":
		t = int64Type
		opts = append(opts, "enum")
	case "boolean":
		t = boolType
	case "utf8":
		t = stringType
	case "octets":
		t = hexBytesType
	case "null":
		t = nullType
	case "sequence":
		st, err := f.Group.structType(path)
		if err != nil {
			return reflect.StructField{}, err
		}
		t = st
	default:
		return reflect.StructField{}, errors.Errorf("%s: unknown type %q", path, f.Type)
	}

	if f.Size != nil {
		opts = append(opts, "size:"+strconv.Itoa(*f.Size))
	}
	if f.MaxLen != nil {
		opts = append(opts, "maxlen:"+strconv.Itoa(*f.MaxLen))
	}

	yamlTag := f.Name
	switch {
	case f.Default != nil:
		// default: consumes the rest of the tag
		opts = append(opts, "default:"+*f.Default)
	case f.Optional || ext:
		t = reflect.PtrTo(t)
		opts = append([]string{"opt"}, opts...)
		yamlTag += ",omitempty"
	}

	tag := fmt.Sprintf(`oer:%s yaml:%s`, strconv.Quote(strings.Join(opts, ",")), strconv.Quote(yamlTag))
	return reflect.StructField{
		Name: "F" + strconv.Itoa(index),
		Type: t,
		Tag:  reflect.StructTag(tag),
	}, nil
}

// signedRange reports whether the lower bound of the range text r admits
// negative values
func signedRange(r string) bool {
	lo := strings.TrimSpace(strings.SplitN(r, "..", 2)[0])
	return lo == "" || lo == "MIN" || strings.HasPrefix(lo, "-")
}
