// Package expreplay implements a bounded experience replay buffer of
// transitions.
package expreplay

import (
	"fmt"
	"strings"

	"github.com/samuelfneumann/pixeldqn/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Store adds a transition to the buffer, evicting the oldest
	// transition if the buffer is full
	Store(t timestep.Transition)

	// Sample samples n distinct transitions uniformly at random
	Sample(n int) ([]timestep.Transition, error)

	// Len returns the current number of transitions in the buffer
	Len() int

	// Capacity returns the maximum number of transitions in the buffer
	Capacity() int
}

// cache implements a concrete ExperienceReplayer as a ring buffer.
//
// Transitions hold their States by reference. Since consecutive
// States share Frames, the buffer stores each Frame once no matter how
// many stacked States refer to it.
type cache struct {
	transitions []timestep.Transition

	// next is the index at which the next transition will be stored
	next   int
	length int

	rng rand.Source
}

// New creates and returns a new ExperienceReplayer with the given
// capacity. Sampling is driven by src, which may be shared with
// other components so that a single seed determines a run.
func New(capacity int, src rand.Source) (ExperienceReplayer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("new: capacity must be >= 1, got %v",
			capacity)
	}
	if src == nil {
		return nil, fmt.Errorf("new: nil source")
	}

	return &cache{
		transitions: make([]timestep.Transition, capacity),
		rng:         src,
	}, nil
}

// Store adds a transition to the cache. If the cache is full, the
// oldest transition is overwritten.
func (c *cache) Store(t timestep.Transition) {
	c.transitions[c.next] = t
	c.next = (c.next + 1) % len(c.transitions)

	if c.length < len(c.transitions) {
		c.length++
	}
}

// Sample returns n distinct transitions drawn uniformly at random
// without replacement. The cache is not modified.
func (c *cache) Sample(n int) ([]timestep.Transition, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample: cannot sample %v transitions", n)
	}
	if c.length == 0 && n > 0 {
		return nil, &ExpReplayError{Op: "sample", Err: errEmptyCache}
	}
	if n > c.length {
		return nil, insufficientSamples("sample", n, c.length)
	}

	indices := make([]int, n)
	sampleuv.WithoutReplacement(indices, c.length, c.rng)

	batch := make([]timestep.Transition, n)
	for i, index := range indices {
		batch[i] = c.at(index)
	}
	return batch, nil
}

// at returns the i-th oldest transition in the cache
func (c *cache) at(i int) timestep.Transition {
	start := 0
	if c.length == len(c.transitions) {
		start = c.next
	}
	return c.transitions[(start+i)%len(c.transitions)]
}

// Transitions returns the transitions in the cache, oldest first
func (c *cache) Transitions() []timestep.Transition {
	out := make([]timestep.Transition, c.length)
	for i := range out {
		out[i] = c.at(i)
	}
	return out
}

// Len returns the current number of transitions in the cache
func (c *cache) Len() int {
	return c.length
}

// Capacity returns the maximum number of transitions in the cache
func (c *cache) Capacity() int {
	return len(c.transitions)
}

// String returns the string representation of the cache
func (c *cache) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ExpReplay(%v/%v)", c.length, len(c.transitions))
	for _, t := range c.Transitions() {
		fmt.Fprintf(&b, "\n\t%v", t)
	}
	return b.String()
}

// Transitions returns the contents of an ExperienceReplayer oldest
// first if it supports listing its contents
func Transitions(e ExperienceReplayer) ([]timestep.Transition, error) {
	lister, ok := e.(interface {
		Transitions() []timestep.Transition
	})
	if !ok {
		return nil, fmt.Errorf("transitions: %T cannot list its contents", e)
	}
	return lister.Transitions(), nil
}
