// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// oerc converts between YAML documents and their OER encodings, given a
// SEQUENCE type described by a YAML schema (see Schema).
//
//	oerc encode --schema reading.yaml --in value.yaml --hex
//	oerc decode --schema reading.yaml --in value.oer --chunk 1 --verbose
//
// Decoding drives the resumable decoder, offering it --chunk bytes at a time,
// which makes oerc handy for inspecting how far a partial message gets.
package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"go.e43.eu/oer"
)

// schemaEnv names the variable consulted when --schema is not given
const schemaEnv = "OERC_SCHEMA"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "oerc: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	schema  string
	in      string
	hex     bool
	chunk   int
	verbose bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr, nil)
		return errors.New("no command given")
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "encode", "decode":
	case "help", "-h", "--help":
		printUsage(stderr, nil)
		return nil
	default:
		printUsage(stderr, nil)
		return errors.Errorf("unknown command %q", cmd)
	}

	var opts options
	flagSet := pflag.NewFlagSet("oerc "+cmd, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.schema, "schema", "", "schema file (default: $"+schemaEnv+")")
	flagSet.StringVar(&opts.in, "in", "", "input file (default: standard input)")
	flagSet.BoolVar(&opts.hex, "hex", false, "OER data is hex text rather than binary")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug records to standard error")
	if cmd == "decode" {
		flagSet.IntVar(&opts.chunk, "chunk", 0, "offer the decoder this many bytes at a time (default: all at once)")
	}

	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return errors.Errorf("unexpected argument: %s", rest[0])
	}
	if opts.schema == "" {
		opts.schema = os.Getenv(schemaEnv)
	}
	if opts.schema == "" {
		return errors.Errorf("no schema given; use --schema or set %s", schemaEnv)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	t, err := loadSchemaFile(opts.schema)
	if err != nil {
		return err
	}
	logger.Debug("loaded schema", "path", opts.schema, "type", t.String())

	input, err := readInput(opts.in, stdin)
	if err != nil {
		return err
	}

	if cmd == "encode" {
		return encode(t, input, opts, stdout, logger)
	}
	return decode(t, input, opts, stdout, logger)
}

func loadSchemaFile(path string) (reflect.Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening schema")
	}
	defer f.Close()

	s, err := LoadSchema(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return s.Type()
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		buf, err := io.ReadAll(stdin)
		return buf, errors.Wrap(err, "reading standard input")
	}

	buf, err := os.ReadFile(path)
	return buf, errors.Wrap(err, "reading input")
}

func encode(t reflect.Type, input []byte, opts options, w io.Writer, logger *slog.Logger) error {
	vp := reflect.New(t)
	dec := yaml.NewDecoder(bytes.NewReader(input))
	dec.KnownFields(true)
	if err := dec.Decode(vp.Interface()); err != nil && err != io.EOF {
		return errors.Wrap(err, "parsing value")
	}

	buf, err := oer.Marshal(vp.Interface())
	if err != nil {
		return errors.Wrap(err, "encoding")
	}
	logger.Debug("encoded value", "bytes", len(buf))

	if opts.hex {
		_, err = fmt.Fprintln(w, hex.EncodeToString(buf))
	} else {
		_, err = w.Write(buf)
	}
	return err
}

func decode(t reflect.Type, input []byte, opts options, w io.Writer, logger *slog.Logger) error {
	if opts.hex {
		buf, err := hex.DecodeString(strings.Join(strings.Fields(string(input)), ""))
		if err != nil {
			return errors.Wrap(err, "parsing hex input")
		}
		input = buf
	}

	vp := reflect.New(t)
	n, err := pump(oer.NewDecoder(vp.Interface()), input, opts.chunk, logger)
	if err != nil {
		return errors.Wrapf(err, "decoding (after %d bytes)", n)
	}
	if n != len(input) {
		return errors.Wrapf(oer.ErrTrailingData, "%d bytes after value", len(input)-n)
	}

	var out bytes.Buffer
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(vp.Interface()); err != nil {
		return errors.Wrap(err, "formatting value")
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err = w.Write(out.Bytes())
	return err
}

// pump feeds data to d in pieces of at most chunk bytes, carrying unconsumed
// input over to the next call. Returns the bytes consumed in total.
func pump(d oer.Decoder, data []byte, chunk int, logger *slog.Logger) (int, error) {
	if chunk <= 0 {
		chunk = len(data)
	}

	var (
		pending  []byte
		consumed int
		offset   int
	)
	for {
		end := min(offset+chunk, len(data))
		pending = append(pending, data[offset:end]...)
		offset = end

		n, err := d.Decode(pending)
		consumed += n
		pending = pending[n:]
		logger.Debug("decode step",
			"offered", end,
			"consumed", consumed,
			"status", oer.StatusOf(err))

		switch {
		case err != oer.ErrWantMore:
			return consumed, err
		case offset == len(data):
			return consumed, oer.ErrTruncated
		}
	}
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `oerc converts between YAML values and OER encodings.

Usage:
  oerc encode --schema FILE [--in FILE] [--hex]
  oerc decode --schema FILE [--in FILE] [--hex] [--chunk N]

The schema is a YAML description of a SEQUENCE type:

  name: Reading
  fields:
    - {name: sensor, type: integer, range: "0..255"}
    - {name: label, type: utf8, optional: true, maxlen: 16}
  extensible: true
  extensions:
    - {name: scale, type: integer, range: "0..255", default: 0}

Field types are integer, enumerated, boolean, utf8, octets (hex in YAML),
null and sequence (with nested fields, extensible and extensions).
`)
	if flagSet != nil {
		fmt.Fprintf(w, "\nFlags:\n")
		flagSet.PrintDefaults()
	}
}
