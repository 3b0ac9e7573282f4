// Package media validates and stores uploaded product images.
package media

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// MaxWidth is the widest a stored raster image may be.
const MaxWidth = 800

var ErrUnsupportedImage = errors.New("unsupported image format")

var allowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
}

// Extension returns the lower-cased extension of filename when it is an
// allowed image type.
func Extension(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%q: %w (allowed: png, jpg, jpeg, gif, webp)", filename, ErrUnsupportedImage)
	}
	return ext, nil
}

// RefPrefix starts every stored image reference. The server maps it onto Dir.
const RefPrefix = "uploads"

// Store writes images under Dir. References returned by Save look like
// "uploads/<uuid>.jpg" whatever Dir is.
type Store struct {
	Dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) SaveFile(fh *multipart.FileHeader) (string, error) {
	if _, err := Extension(fh.Filename); err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.Save(fh.Filename, f)
}

// Save stores the image read from r under a fresh uuid name. PNG and JPEG
// images wider than MaxWidth are scaled down; GIF and WebP are kept as is.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	ext, err := Extension(filename)
	if err != nil {
		return "", err
	}
	if ext == "jpeg" {
		ext = "jpg"
	}

	name := uuid.New().String() + "." + ext
	dst := filepath.Join(s.Dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	switch ext {
	case "png", "jpg":
		err = writeRaster(out, r, ext)
	default:
		_, err = io.Copy(out, r)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(dst); rmErr != nil {
			slog.Warn("Failed to remove partial upload", "path", dst, "error", rmErr)
		}
		return "", err
	}

	return path.Join(RefPrefix, name), nil
}

func writeRaster(w io.Writer, r io.Reader, ext string) error {
	var img image.Image
	var err error
	if ext == "png" {
		img, err = png.Decode(r)
	} else {
		img, err = jpeg.Decode(r)
	}
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	// Resize image (max width 800px, preserve aspect ratio)
	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	if ext == "png" {
		err = png.Encode(w, img)
	} else {
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 80})
	}
	if err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return nil
}

// Remove deletes a file previously returned by Save. Missing files are ignored.
func (s *Store) Remove(ref string) error {
	name := path.Base(ref)
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
