// Package preprocess converts raw pixel observations into the
// fixed-size single-channel frames consumed by the agent.
package preprocess

import (
	"fmt"
	"image"
	"math"

	ts "github.com/samuelfneumann/pixeldqn/timestep"
	"golang.org/x/image/draw"
)

// Luma weights for converting RGB to grayscale
const (
	RedWeight   = 0.2989
	GreenWeight = 0.587
	BlueWeight  = 0.114
)

// Preprocessor transforms a raw observation into a Frame
type Preprocessor interface {
	Transform(obs []float64) (ts.Frame, error)

	// FrameSize returns the number of values in each produced Frame
	FrameSize() int
}

// GrayscaleResize converts (height, width, channels) images with pixel
// values in [0, 255] into outH x outW grayscale frames with values in
// [0, 1] using bilinear interpolation.
type GrayscaleResize struct {
	height, width, channels int
	outH, outW              int

	src *image.Gray
	dst *image.Gray
}

// NewGrayscaleResize returns a new GrayscaleResize. Images must have
// either 1 (grayscale) or 3 (RGB) channels.
func NewGrayscaleResize(height, width, channels, outH,
	outW int) (*GrayscaleResize, error) {
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("newGrayscaleResize: images must have 1 or "+
			"3 channels, got %v", channels)
	}
	if height < 1 || width < 1 || outH < 1 || outW < 1 {
		return nil, fmt.Errorf("newGrayscaleResize: image dimensions must "+
			"be positive, got input %vx%v and output %vx%v", height, width,
			outH, outW)
	}

	return &GrayscaleResize{
		height:   height,
		width:    width,
		channels: channels,
		outH:     outH,
		outW:     outW,
		src:      image.NewGray(image.Rect(0, 0, width, height)),
		dst:      image.NewGray(image.Rect(0, 0, outW, outH)),
	}, nil
}

// Transform implements the Preprocessor interface
func (g *GrayscaleResize) Transform(obs []float64) (ts.Frame, error) {
	if len(obs) != g.height*g.width*g.channels {
		return nil, fmt.Errorf("transform: invalid observation size "+
			"\n\twant(%v)\n\thave(%v)", g.height*g.width*g.channels,
			len(obs))
	}

	for i := 0; i < g.height*g.width; i++ {
		var lum float64
		if g.channels == 1 {
			lum = obs[i]
		} else {
			px := obs[i*3 : i*3+3]
			lum = RedWeight*px[0] + GreenWeight*px[1] + BlueWeight*px[2]
		}
		g.src.Pix[i] = uint8(math.Round(math.Max(0, math.Min(255, lum))))
	}

	draw.BiLinear.Scale(g.dst, g.dst.Bounds(), g.src, g.src.Bounds(),
		draw.Src, nil)

	frame := make(ts.Frame, g.outH*g.outW)
	for i := range frame {
		frame[i] = float64(g.dst.Pix[i]) / 255.0
	}
	return frame, nil
}

// FrameSize implements the Preprocessor interface
func (g *GrayscaleResize) FrameSize() int {
	return g.outH * g.outW
}

// OutputShape returns the height and width of produced frames
func (g *GrayscaleResize) OutputShape() (int, int) {
	return g.outH, g.outW
}
