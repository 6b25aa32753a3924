package expreplay

import (
	"errors"
	"fmt"
)

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// insufficientSamples returns an ExpReplayError reporting that n
// samples were requested from a buffer holding only have samples
func insufficientSamples(op string, n, have int) error {
	return &ExpReplayError{
		Op:  op,
		Err: fmt.Errorf("%w: want(%v) have(%v)", errInsufficientSamples, n, have),
	}
}

var errEmptyCache error = errors.New("cache empty")

var errInsufficientSamples = errors.New("fewer transitions stored than " +
	"requested")

// IsInsufficientSamples returns whether or not an error reports that
// there are insufficient samples in the buffer to sample from the
// buffer.
//
// A buffer has too few samples to sample if it holds fewer transitions
// than were requested.
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, errInsufficientSamples)
}

// IsEmptyBuffer returns whether or not an error reports that a
// replay buffer is empty.
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, errEmptyCache)
}
