package conversion

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"pixelgraph/internal/buffer"
)

// ToImage converts an 8-bit buffer to a Go image. Gray buffers become
// *image.Gray, BGR and BGRA buffers become *image.RGBA.
func ToImage(src *buffer.Buffer) (image.Image, error) {
	if err := buffer.ValidateChannels(src, "buffer to image conversion", 1, 3, 4); err != nil {
		return nil, err
	}

	u8 := src
	if src.PixelType() != buffer.Uint8 {
		converted, err := ToUint8(src, 1)
		if err != nil {
			return nil, err
		}
		defer converted.Close()
		u8 = converted
	}

	data, err := u8.Bytes()
	if err != nil {
		return nil, err
	}

	width, height, channels := u8.Width(), u8.Height(), u8.Channels()
	rect := image.Rect(0, 0, width, height)

	if channels == 1 {
		img := image.NewGray(rect)
		for y := 0; y < height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+width], data[y*width:(y+1)*width])
		}
		return img, nil
	}

	img := image.NewRGBA(rect)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * channels
			alpha := uint8(255)
			if channels == 4 {
				alpha = data[i+3]
			}
			img.SetRGBA(x, y, color.RGBA{R: data[i+2], G: data[i+1], B: data[i], A: alpha})
		}
	}
	return img, nil
}

// FromImage converts a Go image to an 8-bit buffer. Gray images keep one
// channel; everything else becomes BGR.
func FromImage(img image.Image) (*buffer.Buffer, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		data := make([]byte, width*height)
		for y := 0; y < height; y++ {
			row := gray.Pix[(y)*gray.Stride : y*gray.Stride+width]
			copy(data[y*width:], row)
		}
		return buffer.FromBytes(width, height, 1, data)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	data := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := rgba.RGBAAt(x, y)
			i := (y*width + x) * 3
			data[i] = p.B
			data[i+1] = p.G
			data[i+2] = p.R
		}
	}
	return buffer.FromBytes(width, height, 3, data)
}
