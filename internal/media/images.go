package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	MaxWidth    = 800
	jpegQuality = 80

	// MaxPixels caps width*height of an upload before it is decoded.
	MaxPixels = 40_000_000
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format, only PNG, JPG, JPEG are allowed")
	ErrTooLarge          = errors.New("image dimensions are too large")
)

// Store writes product images under Dir and hands out paths under URLPrefix.
type Store struct {
	Dir       string
	URLPrefix string
}

func NewStore(dir, urlPrefix string) *Store {
	return &Store{Dir: dir, URLPrefix: urlPrefix}
}

// Save decodes a PNG or JPEG, scales it down to MaxWidth and stores it as
// JPEG. It returns the public path of the stored file.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	var (
		decodeConfig func(io.Reader) (image.Config, error)
		decode       func(io.Reader) (image.Image, error)
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		decodeConfig, decode = png.DecodeConfig, png.Decode
	case ".jpg", ".jpeg":
		decodeConfig, decode = jpeg.DecodeConfig, jpeg.Decode
	default:
		return "", ErrUnsupportedFormat
	}

	// the header is read twice: once for the dimensions, once to decode
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	cfg, err := decodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooLarge)
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + ".jpg"
	if err := writeJPEG(filepath.Join(s.Dir, name), img); err != nil {
		return "", err
	}
	return path.Join(s.URLPrefix, name), nil
}

// writeJPEG encodes img to dst and leaves no file behind on failure.
func writeJPEG(dst string, img image.Image) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close image file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return nil
}

// Remove deletes a file previously returned by Save. Unknown paths are ignored.
func (s *Store) Remove(publicPath string) error {
	if publicPath == "" || !strings.HasPrefix(publicPath, s.URLPrefix) {
		return nil
	}
	name := filepath.Base(publicPath)
	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
