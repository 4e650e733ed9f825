package conversion

import (
	"fmt"
	"image"

	"pixelgraph/internal/buffer"

	"gocv.io/x/gocv"
)

// ToGray converts a buffer to single-channel luma. A 1-channel buffer is cloned.
func ToGray(src *buffer.Buffer) (*buffer.Buffer, error) {
	if err := buffer.ValidateChannels(src, "grayscale conversion", 1, 3, 4); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if src.Channels() == 1 {
		return src.Clone(), nil
	}

	srcMat := src.Mat()
	dstMat := gocv.NewMat()

	switch src.Channels() {
	case 3:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRToGray)
	case 4:
		temp := gocv.NewMat()
		defer temp.Close()
		gocv.CvtColor(srcMat, &temp, gocv.ColorBGRAToBGR)
		gocv.CvtColor(temp, &dstMat, gocv.ColorBGRToGray)
	}

	return adoptResult(dstMat, src.Tag()+"_gray")
}

// ToChannels converts between 1, 3 and 4 channel layouts. Alpha added to a
// buffer is opaque; alpha removed is dropped.
func ToChannels(src *buffer.Buffer, channels int) (*buffer.Buffer, error) {
	if err := buffer.ValidateChannels(src, "channel conversion", 1, 3, 4); err != nil {
		return nil, err
	}

	from := src.Channels()
	if from == channels {
		return src.Clone(), nil
	}
	if channels == 1 {
		return ToGray(src)
	}

	var code gocv.ColorConversionCode
	switch {
	case from == 1 && channels == 3:
		code = gocv.ColorGrayToBGR
	case from == 1 && channels == 4:
		code = gocv.ColorGrayToBGRA
	case from == 4 && channels == 3:
		code = gocv.ColorBGRAToBGR
	case from == 3 && channels == 4:
		code = gocv.ColorBGRToBGRA
	default:
		return nil, fmt.Errorf("%w: cannot convert %d to %d channels", buffer.ErrInvalidChannels, from, channels)
	}

	srcMat := src.Mat()
	dstMat := gocv.NewMat()
	gocv.CvtColor(srcMat, &dstMat, code)

	return adoptResult(dstMat, fmt.Sprintf("%s_%dch", src.Tag(), channels))
}

// ToFloat converts to float32 samples multiplied by scale. Use 1.0/255 to map
// 8-bit data into [0, 1].
func ToFloat(src *buffer.Buffer, scale float64) (*buffer.Buffer, error) {
	if err := buffer.ValidateForOperation(src, "float conversion"); err != nil {
		return nil, err
	}

	srcMat := src.Mat()
	dstMat := gocv.NewMat()
	srcMat.ConvertToWithParams(&dstMat, gocv.MatTypeCV32F, float32(scale), 0)

	return adoptResult(dstMat, src.Tag()+"_f32")
}

// ToUint8 converts to 8-bit samples multiplied by scale, rounding and
// saturating to [0, 255].
func ToUint8(src *buffer.Buffer, scale float64) (*buffer.Buffer, error) {
	if err := buffer.ValidateForOperation(src, "uint8 conversion"); err != nil {
		return nil, err
	}

	srcMat := src.Mat()
	dstMat := gocv.NewMat()
	srcMat.ConvertToWithParams(&dstMat, gocv.MatTypeCV8U, float32(scale), 0)

	return adoptResult(dstMat, src.Tag()+"_u8")
}

// Resize scales src to width x height with bilinear interpolation.
func Resize(src *buffer.Buffer, width, height int) (*buffer.Buffer, error) {
	if err := buffer.ValidateForOperation(src, "resize"); err != nil {
		return nil, err
	}
	if err := buffer.ValidateDimensions(width, height, "resize"); err != nil {
		return nil, err
	}

	if src.Width() == width && src.Height() == height {
		return src.Clone(), nil
	}

	srcMat := src.Mat()
	dstMat := gocv.NewMat()
	gocv.Resize(srcMat, &dstMat, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)

	return adoptResult(dstMat, src.Tag()+"_resized")
}

func adoptResult(mat gocv.Mat, tag string) (*buffer.Buffer, error) {
	out := buffer.Adopt(mat, tag)
	if out == nil {
		return nil, fmt.Errorf("OpenCV produced no data for %s", tag)
	}
	return out, nil
}
