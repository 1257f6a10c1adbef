// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package oer implements encoding and decoding of ASN.1 values in the Octet
// Encoding Rules (OER), as specified in ITU-T X.696.
//
// Values are described by Go types (annotated by struct tags), and marshalled
// via reflection. Decoding is resumable: a Decoder may be fed its input in
// arbitrarily small pieces, returning ErrWantMore until the value is complete.
//
// The mapping from Go types to ASN.1 is:
//
//                            Go | ASN.1
//     --------------------------+--------------------------------
//                          bool | BOOLEAN
//        intN, uintN, int, uint | INTEGER
//                        string | UTF8String
//                        []byte | OCTET STRING
//                       [N]byte | OCTET STRING (SIZE(N))
//                     BitString | BIT STRING
//                      struct{} | NULL
//                  struct{ ...} | SEQUENCE { ... }
//                           []T | SEQUENCE OF T
//                          [N]T | SEQUENCE (SIZE(N)) OF T
//                      OpenType | an open type, kept undecoded
//                            *T | T (Go pointers are ignored, except
//                               |   as members of a SEQUENCE or CHOICE)
//
// Further control is provided by the `oer:"..."` struct tag:
//
//                                   ASN.1 | Go
//     ------------------------------------+-----------------------------------------
//     ident T OPTIONAL                    | *T      `oer:"opt"` (or []T)
//     ident T DEFAULT v                   |  T      `oer:"default:v"` (or *T)
//     INTEGER (lo..hi)                    | int32   `oer:"range:lo..hi"`
//     INTEGER (0..MAX)                    | uint64  `oer:"range:0..MAX"`
//     ENUMERATED                          | int32   `oer:"enum"`
//     OCTET STRING (SIZE(N))              | []byte  `oer:"size:N"`
//     OCTET STRING (SIZE(0..N))           | []byte  `oer:"maxlen:N"`
//     SEQUENCE (SIZE(0..N)) OF T          | []T     `oer:"maxlen:N"`
//     ...                                 | _ struct{} `oer:"..."`
//
// Tags are applied heirarchically: tags separated by forward slashes apply in
// turn from the field to the element types of the slices and arrays it holds.
// Within a layer, options are separated by commas. For example,
//
//     Ports []uint16 `oer:"maxlen:8/range:1..65535"`
//
// is a SEQUENCE (SIZE(0..8)) OF INTEGER (1..65535).
//
// Defined tags:
//
//     `-`
//         Must comprise the entirety of the tag; the field is skipped
//
//     `...`
//         Marks the extension point of the SEQUENCE or CHOICE. Must comprise
//         the entirety of the tag of a field of type struct{}. Fields which
//         follow it are extension additions.
//
//     `opt`
//         Applied to a pointer or slice: the component is OPTIONAL, and absent
//         when nil
//
//     `default:V`
//         Applied to a boolean, integer or string (or pointer to one): the
//         component has a DEFAULT of V. A component equal to its default is
//         never encoded, and an absent component decodes as the default.
//         Consumes the remainder of its layer.
//
//     `open`
//         The component is wrapped in an open type envelope (a length
//         determinant followed by the encoding)
//
//     `range:lo..hi`
//         Constrains an integer. Either bound may be MIN or MAX (or empty) to
//         leave it unbounded. The range decides the encoding: a range fitting
//         in 1, 2, 4 or 8 octets is encoded at that fixed width
//
//     `enum`
//         The integer is an ENUMERATED
//
//     `size:N`, `maxlen:N`
//         Fixed size, or upper bound on the size, of a string, byte slice or
//         SEQUENCE OF
//
//     `choice:N`
//         The struct is a CHOICE, and this field (which must be a pointer or
//         slice) is the alternative with context specific tag [N]. Every field
//         of the struct (except the extension marker) must carry one. Exactly
//         one alternative is set.
//
// Unexported fields are ignored.
//
// A SEQUENCE which is extensible is decoded by any version of the type: extension
// additions it does not know are skipped, and ones missing from the input
// are absent.
//
// You can specify custom behaviour for your type using the Marshaler interface. If
// implemented, it replaces the default behaviour. You can override behaviour for third
// party types by implementing and regisering a Codec; see the documentation for that
// type and the Coder with which they are registered.
//
// To avoid confusion and conflicts between different packages, it is not possible to
// register new codecs with the default (global) Coder.
package oer

import (
	oerinterfaces "go.e43.eu/oer/interfaces"
	"go.e43.eu/oer/internal/coder"
)

// interface Coder is the top-level interface to the OER library
//
// A coder (which may be safely used from multiple threads) provides the ability
// to marshal objects to and from OER. It also contains a repository of Codecs
// which know how to marshal various types
type Coder = oerinterfaces.Coder

// interface Encoder is the interface to the OER encoder
type Encoder = oerinterfaces.Encoder

// interface Decoder is the interface to the resumable OER decoder
type Decoder = oerinterfaces.Decoder

type Codec = oerinterfaces.Codec

type Marshaler = oerinterfaces.Marshaler

// BitString is an ASN.1 BIT STRING
type BitString = coder.BitString

// OpenType holds the undecoded contents of an open type
type OpenType = coder.OpenType
