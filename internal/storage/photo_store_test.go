package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPhotoStore(t *testing.T) *PhotoStore {
	t.Helper()

	store, err := NewPhotoStore(t.TempDir(), 1<<20, []string{".jpg", ".jpeg", ".png"})
	require.NoError(t, err)
	return store
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSave_StoresUnderRandomName(t *testing.T) {
	store := newTestPhotoStore(t)
	data := encodePNG(t, 64, 64)

	filename, err := store.Save("headshot.png", int64(len(data)), data)
	require.NoError(t, err)

	assert.NotEqual(t, "headshot.png", filename)
	assert.Equal(t, ".png", filepath.Ext(filename))

	path, err := store.Path(filename)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSave_DownscalesOversizedImages(t *testing.T) {
	store := newTestPhotoStore(t)
	data := encodePNG(t, 1024, 768)

	filename, err := store.Save("wide.png", int64(len(data)), data)
	require.NoError(t, err)

	path, err := store.Path(filename)
	require.NoError(t, err)
	stored, err := imaging.Open(path)
	require.NoError(t, err)

	bounds := stored.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), 512)
	assert.LessOrEqual(t, bounds.Dy(), 512)
	// Aspect ratio preserved: 1024x768 fits to 512x384.
	assert.Equal(t, 384, bounds.Dy())
}

func TestSave_KeepsSmallImagesAtOriginalSize(t *testing.T) {
	store := newTestPhotoStore(t)
	data := encodePNG(t, 100, 80)

	filename, err := store.Save("small.png", int64(len(data)), data)
	require.NoError(t, err)

	path, err := store.Path(filename)
	require.NoError(t, err)
	stored, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Bounds().Dx())
	assert.Equal(t, 80, stored.Bounds().Dy())
}

func TestSave_RejectsOversizedUpload(t *testing.T) {
	store, err := NewPhotoStore(t.TempDir(), 10, []string{".png"})
	require.NoError(t, err)

	data := encodePNG(t, 64, 64)
	_, err = store.Save("big.png", int64(len(data)), data)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSave_RejectsUnknownExtension(t *testing.T) {
	store := newTestPhotoStore(t)
	data := encodePNG(t, 64, 64)

	_, err := store.Save("photo.gif", int64(len(data)), data)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSave_RejectsNonImagePayload(t *testing.T) {
	store := newTestPhotoStore(t)
	data := []byte("#!/bin/sh\necho pwned\n")

	_, err := store.Save("script.png", int64(len(data)), data)
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestPath_RejectsTraversal(t *testing.T) {
	store := newTestPhotoStore(t)

	for _, name := range []string{"../secret.png", "a/b.png", "..", ""} {
		_, err := store.Path(name)
		assert.Error(t, err, name)
	}
}

func TestDelete_MissingFileIsNotAnError(t *testing.T) {
	store := newTestPhotoStore(t)
	assert.NoError(t, store.Delete("never-existed.png"))
	assert.NoError(t, store.Delete(""))
}

func TestDelete_RemovesStoredFile(t *testing.T) {
	store := newTestPhotoStore(t)
	data := encodePNG(t, 32, 32)

	filename, err := store.Save("p.png", int64(len(data)), data)
	require.NoError(t, err)
	require.NoError(t, store.Delete(filename))

	path, err := store.Path(filename)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
