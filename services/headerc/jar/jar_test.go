// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jar

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestJar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, b := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(b)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestReadClassPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.jar")
	writeTestJar(t, path, map[string][]byte{
		"p/A.class":    {1, 2, 3},
		"p/B.class":    {4},
		"META-INF/x":   {9},
		"notaclass.md": {9},
	})

	lookup, err := ReadClassPath([]string{path})
	require.NoError(t, err)

	b, ok := lookup.Bytes("p/A")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, b)
	_, ok = lookup.Bytes("META-INF/x")
	assert.False(t, ok)
	_, ok = lookup.Bytes("missing/C")
	assert.False(t, ok)
}

func TestReadClassPathEarlierArchiveWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.jar")
	second := filepath.Join(dir, "second.jar")
	writeTestJar(t, first, map[string][]byte{"p/A.class": {1}})
	writeTestJar(t, second, map[string][]byte{"p/A.class": {2}})

	lookup, err := ReadClassPath([]string{first, second})
	require.NoError(t, err)
	b, _ := lookup.Bytes("p/A")
	assert.Equal(t, []byte{1}, b)
}

func TestReadClassPathMissingArchive(t *testing.T) {
	_, err := ReadClassPath([]string{"/does/not/exist.jar"})
	require.Error(t, err)
}

func TestWriteSortsAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.jar")
	err := Write(out, []Entry{
		{Name: "p/Z", Bytes: []byte{3}},
		{Name: "p/A", Bytes: []byte{1}},
		{Name: "p/M", Bytes: []byte{2}},
	})
	require.NoError(t, err)

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 3)
	assert.Equal(t, "p/A.class", zr.File[0].Name)
	assert.Equal(t, "p/M.class", zr.File[1].Name)
	assert.Equal(t, "p/Z.class", zr.File[2].Name)
}

func TestWriteDeterministic(t *testing.T) {
	dir := t.TempDir()
	entries := []Entry{
		{Name: "p/B", Bytes: []byte("bbb")},
		{Name: "p/A", Bytes: []byte("aaa")},
	}
	p1 := filepath.Join(dir, "one.jar")
	p2 := filepath.Join(dir, "two.jar")
	require.NoError(t, Write(p1, entries))
	require.NoError(t, Write(p2, entries))

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(b1, b2))
}
