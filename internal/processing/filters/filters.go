package filters

import (
	"fmt"
	"image"

	"pixelgraph/internal/buffer"

	"gocv.io/x/gocv"
)

// Convolve correlates src with k. The output keeps the input's depth and
// channel count; borders reflect without repeating the edge pixel.
func Convolve(src *buffer.Buffer, k Kernel) (*buffer.Buffer, error) {
	if err := buffer.ValidateForOperation(src, "convolution"); err != nil {
		return nil, err
	}
	if k.Size < 1 || len(k.Weights) != k.Size*k.Size {
		return nil, fmt.Errorf("invalid kernel of size %d with %d weights", k.Size, len(k.Weights))
	}

	kernelMat := k.ToMat()
	defer kernelMat.Close()

	srcMat := src.Mat()
	dstMat := gocv.NewMat()
	gocv.Filter2D(srcMat, &dstMat, -1, kernelMat, image.Point{X: -1, Y: -1}, 0, gocv.BorderReflect101)

	out := buffer.Adopt(dstMat, src.Tag()+"_filtered")
	if out == nil {
		return nil, fmt.Errorf("convolution produced no data")
	}
	return out, nil
}

// GaussianBlur applies an isotropic Gaussian of the given radius.
func GaussianBlur(src *buffer.Buffer, radius int) (*buffer.Buffer, error) {
	k, err := GaussianKernel(radius)
	if err != nil {
		return nil, err
	}
	return Convolve(src, k)
}

// MotionBlur applies a directional blur along angle degrees.
func MotionBlur(src *buffer.Buffer, radius int, angle float64) (*buffer.Buffer, error) {
	k, err := DirectionalKernel(radius, angle)
	if err != nil {
		return nil, err
	}
	return Convolve(src, k)
}

// BrightnessContrast computes saturate(alpha*pixel + beta) per sample,
// keeping the input's depth.
func BrightnessContrast(src *buffer.Buffer, alpha, beta float64) (*buffer.Buffer, error) {
	if err := buffer.ValidateForOperation(src, "brightness/contrast"); err != nil {
		return nil, err
	}

	depth := gocv.MatTypeCV8U
	if src.PixelType() == buffer.Float32 {
		depth = gocv.MatTypeCV32F
	}

	srcMat := src.Mat()
	dstMat := gocv.NewMat()
	srcMat.ConvertToWithParams(&dstMat, depth, float32(alpha), float32(beta))

	out := buffer.Adopt(dstMat, src.Tag()+"_bc")
	if out == nil {
		return nil, fmt.Errorf("brightness/contrast produced no data")
	}
	return out, nil
}

func softGaussian(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	gocv.GaussianBlur(src, &dst, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)
	return dst
}
