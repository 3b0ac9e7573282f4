package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExtension(t *testing.T) {
	for _, name := range []string{"photo.png", "photo.JPG", "a.jpeg", "b.gif", "c.WebP"} {
		_, err := Extension(name)
		assert.NoError(t, err, name)
	}
	for _, name := range []string{"photo.bmp", "photo", "archive.tar.gz", ".png.exe"} {
		_, err := Extension(name)
		assert.ErrorIs(t, err, ErrUnsupportedImage, name)
	}
}

func TestSaveDownscalesWideImages(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	ref, err := s.Save("wide.png", bytes.NewReader(pngBytes(t, 1600, 400)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "uploads/"), ref)
	assert.True(t, strings.HasSuffix(ref, ".png"), ref)

	f, err := os.Open(filepath.Join(s.Dir, filepath.Base(ref)))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, MaxWidth, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestSaveKeepsSmallImages(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	ref, err := s.Save("small.JPEG", &buf)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".jpg"), ref)

	f, err := os.Open(filepath.Join(s.Dir, filepath.Base(ref)))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Width)
}

func TestSaveStoresGIFVerbatim(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	data := []byte("GIF89a-not-really-decoded")
	ref, err := s.Save("anim.gif", bytes.NewReader(data))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(s.Dir, filepath.Base(ref)))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSaveRejectsAndCleansUp(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	_, err = s.Save("photo.bmp", strings.NewReader("BM"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = s.Save("broken.png", strings.NewReader("not a png"))
	assert.Error(t, err)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed uploads must not leave files behind")
}

func TestRemove(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	ref, err := s.Save("a.webp", strings.NewReader("RIFF"))
	require.NoError(t, err)
	require.NoError(t, s.Remove(ref))
	require.NoError(t, s.Remove(ref), "removing twice is not an error")

	_, err = os.Stat(filepath.Join(s.Dir, filepath.Base(ref)))
	assert.True(t, os.IsNotExist(err))
}
