package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG
var pngPixel, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

func TestPutStoresImage(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	obj, err := Put(context.Background(), store, bytes.NewReader(pngPixel), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.True(t, strings.HasSuffix(obj.Name, ".png"))

	rc, ct, err := store.Open(context.Background(), obj.Name)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pngPixel, got)
	assert.Equal(t, "image/png", ct)
}

func TestPutRejectsNonImages(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = Put(context.Background(), store, strings.NewReader("#!/bin/sh\necho hi\n"), 1<<20)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPutRejectsOversize(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = Put(context.Background(), store, bytes.NewReader(pngPixel), 10)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDiskOpenRejectsTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../etc/passwd", "", ".hidden", "a/b.png"} {
		_, _, err := store.Open(context.Background(), name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
	_, _, err = store.Open(context.Background(), "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}
