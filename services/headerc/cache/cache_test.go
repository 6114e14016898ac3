// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPutRoundTrip(t *testing.T) {
	c, err := OpenInMemory()
	require.NoError(t, err)
	defer c.Close()

	key := Key("/tmp/lib.jar", 12345, "p/A")
	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok, "miss before put")

	require.NoError(t, c.Put(key, []byte{1, 2, 3}))
	b, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

func TestKeyIncludesModTime(t *testing.T) {
	a := Key("/lib.jar", 1, "p/A")
	b := Key("/lib.jar", 2, "p/A")
	assert.NotEqual(t, a, b, "rebuilt archives must miss")
}

func TestPersistentOpen(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	key := Key("x.jar", 0, "p/B")
	require.NoError(t, c.Put(key, []byte("v")))
	require.NoError(t, c.Close())

	c2, err := Open(dir)
	require.NoError(t, err)
	defer c2.Close()
	b, ok, err := c2.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), b)
}
