// Package codec reads and writes image files.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/opencv/conversion"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrDecode            = errors.New("decode failed")
	ErrEncode            = errors.New("encode failed")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Decoder loads an image file into a buffer.
type Decoder interface {
	Decode(path string) (*buffer.Buffer, error)
}

// Encoder writes a buffer to an image file.
type Encoder interface {
	Encode(buf *buffer.Buffer, path string, format Format, quality int) error
}

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpg"
	FormatWebP Format = "webp"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ParseFormat accepts a format name or a file extension, with or without the dot.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFromPath derives the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// EnsureExtension appends the format's extension when path has none.
func EnsureExtension(path string, format Format) string {
	if filepath.Ext(path) != "" {
		return path
	}
	return path + "." + string(format)
}

// Params returns the OpenCV write parameters for quality: jpg and webp take
// 1-100, png takes a compression level 0-9. Values are clamped.
func Params(format Format, quality int) []int {
	switch format {
	case FormatJPEG:
		return []int{int(gocv.IMWriteJpegQuality), clamp(quality, 1, 100)}
	case FormatWebP:
		return []int{int(gocv.IMWriteWebpQuality), clamp(quality, 1, 100)}
	case FormatPNG:
		return []int{int(gocv.IMWritePngCompression), clamp(quality, 0, 9)}
	default:
		return nil
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// OpenCV reads through imgcodecs and falls back to the Go decoders for
// files OpenCV cannot read.
type OpenCV struct {
	logger logger.Logger
}

func NewOpenCV(log logger.Logger) *OpenCV {
	return &OpenCV{logger: logger.OrNop(log)}
}

func (c *OpenCV) Decode(path string) (*buffer.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Error("Codec", err, map[string]interface{}{"path": path})
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil {
		if buf := buffer.Adopt(mat, filepath.Base(path)); buf != nil {
			c.logger.Debug("Codec", "image decoded", map[string]interface{}{
				"path":     path,
				"decoder":  "opencv",
				"width":    buf.Width(),
				"height":   buf.Height(),
				"channels": buf.Channels(),
			})
			return buf, nil
		}
	}

	img, format, stdErr := image.Decode(bytes.NewReader(data))
	if stdErr != nil {
		c.logger.Error("Codec", stdErr, map[string]interface{}{"path": path})
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, stdErr)
	}

	buf, err := conversion.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	c.logger.Debug("Codec", "image decoded", map[string]interface{}{
		"path":    path,
		"decoder": "go/" + format,
		"width":   buf.Width(),
		"height":  buf.Height(),
	})
	return buf, nil
}

func (c *OpenCV) Encode(buf *buffer.Buffer, path string, format Format, quality int) error {
	if err := buffer.ValidateForOperation(buf, "encode"); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	if format == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
		format = f
	}
	path = EnsureExtension(path, format)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
	}

	src := buf
	if buf.PixelType() != buffer.Uint8 {
		converted, err := conversion.ToUint8(buf, 255)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
		defer converted.Close()
		src = converted
	}

	if ok := gocv.IMWriteWithParams(path, src.Mat(), Params(format, quality)); !ok {
		err := fmt.Errorf("%w: OpenCV could not write %s", ErrEncode, path)
		c.logger.Error("Codec", err, map[string]interface{}{"format": string(format)})
		return err
	}

	c.logger.Info("Codec", "image saved", map[string]interface{}{
		"path":    path,
		"format":  string(format),
		"quality": quality,
	})
	return nil
}
