// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"go.e43.eu/oer"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func runCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestEncodeCommand(t *testing.T) {
	schema := writeFile(t, "reading.yaml", readingSchema)

	out, _, err := runCommand(t, "a: 7\nc: 5\n", "encode", "--schema", schema, "--hex")
	require.NoError(t, err)
	assert.Equal(t, "80070207800105\n", out)

	out, _, err = runCommand(t, "a: 7\n", "encode", "--schema", schema)
	require.NoError(t, err)
	assert.Equal(t, "\x00\x07", out)
}

func TestDecodeCommand(t *testing.T) {
	schema := writeFile(t, "reading.yaml", readingSchema)

	for _, chunk := range []string{"0", "1", "3"} {
		out, stderr, err := runCommand(t, "80 07 02 07 80 01 05\n",
			"decode", "--schema", schema, "--hex", "--chunk", chunk, "--verbose")
		require.NoError(t, err, "chunk %s", chunk)
		assert.Contains(t, stderr, "decode step")

		var v map[string]interface{}
		require.NoError(t, yaml.Unmarshal([]byte(out), &v))
		assert.Equal(t, map[string]interface{}{"a": 7, "c": 5}, v, "chunk %s", chunk)
	}
}

func TestDecodeCommandRoundTrip(t *testing.T) {
	schema := writeFile(t, "frame.yaml", frameSchema)
	value := "id: \"0a0b\"\nbody: {flag: true}\nkind: 200\ndelta: 100000\ngap: {}\n"

	encoded, _, err := runCommand(t, value, "encode", "--schema", schema)
	require.NoError(t, err)

	in := writeFile(t, "frame.oer", encoded)
	decoded, _, err := runCommand(t, "", "decode", "--schema", schema, "--in", in, "--chunk", "2")
	require.NoError(t, err)

	again, _, err := runCommand(t, decoded, "encode", "--schema", schema)
	require.NoError(t, err)
	assert.Equal(t, encoded, again)
}

func TestDecodeCommandErrors(t *testing.T) {
	schema := writeFile(t, "reading.yaml", readingSchema)

	_, _, err := runCommand(t, "80 07 02", "decode", "--schema", schema, "--hex")
	assert.True(t, errors.Is(err, oer.ErrTruncated), "got %v", err)

	_, _, err = runCommand(t, "00 07 00", "decode", "--schema", schema, "--hex")
	assert.True(t, errors.Is(err, oer.ErrTrailingData), "got %v", err)

	_, _, err = runCommand(t, "80 07 00", "decode", "--schema", schema, "--hex", "--chunk", "1")
	assert.True(t, errors.Is(err, oer.ErrEmptyExtensionBitmap), "got %v", err)

	_, _, err = runCommand(t, "zz", "decode", "--schema", schema, "--hex")
	assert.Error(t, err)
}

func TestSchemaFromEnvironment(t *testing.T) {
	t.Setenv(schemaEnv, writeFile(t, "reading.yaml", readingSchema))

	out, _, err := runCommand(t, "a: 1\nb: false\n", "encode", "--hex")
	require.NoError(t, err)
	assert.Equal(t, "400100\n", out)
}

func TestCommandUsage(t *testing.T) {
	t.Setenv(schemaEnv, "")

	_, stderr, err := runCommand(t, "")
	assert.Error(t, err)
	assert.Contains(t, stderr, "Usage:")

	_, _, err = runCommand(t, "", "frobnicate")
	assert.Error(t, err)

	_, stderr, err = runCommand(t, "", "decode", "--help")
	assert.NoError(t, err)
	assert.Contains(t, stderr, "--chunk")

	_, _, err = runCommand(t, "", "encode")
	assert.Error(t, err, "no schema given")

	_, _, err = runCommand(t, "", "encode", "--schema", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, _, err = runCommand(t, "", "encode", "--chunk", "1")
	assert.Error(t, err, "--chunk is only accepted by decode")

	schema := writeFile(t, "reading.yaml", readingSchema)
	_, _, err = runCommand(t, "a: 7\nz: 1\n", "encode", "--schema", schema)
	assert.Error(t, err, "unknown value keys are rejected")

	_, _, err = runCommand(t, "a: 300\n", "encode", "--schema", schema)
	assert.True(t, errors.Is(err, oer.ErrValueOutOfRange), "got %v", err)
}
