// Package framestack implements a stack of the most recent frames seen
// in an episode, which together form the agent's state.
package framestack

import (
	"fmt"

	"github.com/gammazero/deque"
	ts "github.com/samuelfneumann/pixeldqn/timestep"
)

// FrameStack holds the K most recent frames of an episode, oldest
// first
type FrameStack struct {
	frames    *deque.Deque[ts.Frame]
	k         int
	frameSize int
}

// New returns a new FrameStack holding k frames of frameSize values
// each
func New(k, frameSize int) (*FrameStack, error) {
	if k < 1 {
		return nil, fmt.Errorf("new: stack must hold at least one frame, "+
			"got %v", k)
	}
	if frameSize < 1 {
		return nil, fmt.Errorf("new: frame size must be positive, got %v",
			frameSize)
	}

	return &FrameStack{
		frames:    deque.New[ts.Frame](k),
		k:         k,
		frameSize: frameSize,
	}, nil
}

// Reset fills every slot of the stack with f and returns the resulting
// State
func (s *FrameStack) Reset(f ts.Frame) (ts.State, error) {
	if len(f) != s.frameSize {
		return nil, fmt.Errorf("reset: invalid frame size \n\twant(%v)"+
			"\n\thave(%v)", s.frameSize, len(f))
	}

	s.frames.Clear()
	for i := 0; i < s.k; i++ {
		s.frames.PushBack(f)
	}
	return s.State(), nil
}

// Push drops the oldest frame, appends f, and returns the resulting
// State
func (s *FrameStack) Push(f ts.Frame) (ts.State, error) {
	if len(f) != s.frameSize {
		return nil, fmt.Errorf("push: invalid frame size \n\twant(%v)"+
			"\n\thave(%v)", s.frameSize, len(f))
	}
	if s.frames.Len() == 0 {
		return nil, fmt.Errorf("push: stack must be reset before pushing")
	}

	s.frames.PopFront()
	s.frames.PushBack(f)
	return s.State(), nil
}

// State returns the current State. The returned State does not alias
// the stack, so later pushes never change it.
func (s *FrameStack) State() ts.State {
	state := make(ts.State, s.frames.Len())
	for i := range state {
		state[i] = s.frames.At(i)
	}
	return state
}

// Len returns the number of frames in a State
func (s *FrameStack) Len() int {
	return s.k
}

// FrameSize returns the number of values in each frame
func (s *FrameStack) FrameSize() int {
	return s.frameSize
}
