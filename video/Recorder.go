// Package video records environment observations to video files
package video

import (
	"fmt"
	"math"
	"path/filepath"

	"gocv.io/x/gocv"
)

// Video encoding
const (
	Codec = "MJPG"
	FPS   = 30.0
)

// Recorder writes RGB or grayscale observations in height-width-channel
// order, with values in [0, 255], to a video file
type Recorder struct {
	writer   *gocv.VideoWriter
	filename string
	height   int
	width    int
	channels int
	frames   int
	buf      []byte
}

// New returns a new Recorder which writes frames of the given shape to
// filename
func New(filename string, height, width, channels int,
	fps float64) (*Recorder, error) {
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("new: observations must have 1 or 3 "+
			"channels, got %v", channels)
	}
	if height < 1 || width < 1 {
		return nil, fmt.Errorf("new: invalid frame size %vx%v", height,
			width)
	}

	writer, err := gocv.VideoWriterFile(filename, Codec, fps, width, height,
		true)
	if err != nil {
		return nil, fmt.Errorf("new: could not open video writer: %w", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("new: could not open %v for writing",
			filename)
	}

	return &Recorder{
		writer:   writer,
		filename: filename,
		height:   height,
		width:    width,
		channels: channels,
	}, nil
}

// Filename returns the name of the video of an evaluation episode in
// directory dir
func Filename(dir string, episode int) string {
	return filepath.Join(dir, fmt.Sprintf("episode-%v.avi", episode))
}

// WriteFrame writes a single observation to the video
func (r *Recorder) WriteFrame(obs []float64) error {
	var err error
	r.buf, err = toBytes(r.buf, obs, r.height*r.width*r.channels)
	if err != nil {
		return fmt.Errorf("writeFrame: %w", err)
	}

	matType := gocv.MatTypeCV8UC3
	if r.channels == 1 {
		matType = gocv.MatTypeCV8UC1
	}
	frame, err := gocv.NewMatFromBytes(r.height, r.width, matType, r.buf)
	if err != nil {
		return fmt.Errorf("writeFrame: %w", err)
	}
	defer frame.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	if r.channels == 1 {
		gocv.CvtColor(frame, &bgr, gocv.ColorGrayToBGR)
	} else {
		gocv.CvtColor(frame, &bgr, gocv.ColorRGBToBGR)
	}

	if err := r.writer.Write(bgr); err != nil {
		return fmt.Errorf("writeFrame: %w", err)
	}
	r.frames++
	return nil
}

// Frames returns the number of frames written
func (r *Recorder) Frames() int {
	return r.frames
}

// Close finishes writing the video
func (r *Recorder) Close() error {
	if err := r.writer.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// toBytes rounds and clips the n values of obs into dst
func toBytes(dst []byte, obs []float64, n int) ([]byte, error) {
	if len(obs) != n {
		return nil, fmt.Errorf("expected %v values, got %v", n, len(obs))
	}
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]

	for i, v := range obs {
		dst[i] = byte(math.Max(0, math.Min(255, math.Round(v))))
	}
	return dst, nil
}
