package timestep

import "fmt"

// Frame is a single preprocessed, single-channel frame flattened in
// row-major order. Frames are never mutated once created.
type Frame []float64

// State is the stacked-frame state representation: the K most recent
// frames, oldest first.
type State []Frame

// Size returns the number of values in the flattened State
func (s State) Size() int {
	if len(s) == 0 {
		return 0
	}
	return len(s) * len(s[0])
}

// Flatten writes the State into dst as a single K*H*W row-major tensor
// and returns dst. If dst is too small, a new slice is allocated.
func (s State) Flatten(dst []float64) []float64 {
	size := s.Size()
	if cap(dst) < size {
		dst = make([]float64, size)
	}
	dst = dst[:size]

	offset := 0
	for _, frame := range s {
		copy(dst[offset:offset+len(frame)], frame)
		offset += len(frame)
	}
	return dst
}

// NextState is an optional State. It is empty exactly when the
// transition that holds it ended the episode.
type NextState struct {
	state State
	ok    bool
}

// Terminal returns the empty NextState of a transition that ended the
// episode
func Terminal() NextState {
	return NextState{}
}

// Continue returns the NextState of a transition that did not end the
// episode
func Continue(s State) NextState {
	return NextState{state: s, ok: true}
}

// Get returns the next state and true, or nil and false if the
// transition was terminal
func (n NextState) Get() (State, bool) {
	return n.state, n.ok
}

// IsTerminal returns whether the NextState marks the end of an episode
func (n NextState) IsTerminal() bool {
	return !n.ok
}

// Transition is one step of environment interaction stored for later
// learning.
type Transition struct {
	State  State
	Action int
	Next   NextState
	Reward float64
}

// NewTransition returns a new Transition
func NewTransition(state State, action int, next NextState,
	reward float64) Transition {
	return Transition{
		State:  state,
		Action: action,
		Next:   next,
		Reward: reward,
	}
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward: %.2f  |  "+
		"Terminal: %v", t.Action, t.Reward, t.Next.IsTerminal())
}
