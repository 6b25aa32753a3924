package tracker

import "fmt"

// Return tracks and saves the return of each episode
type Return struct {
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker which saves to
// filename
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track implements the Tracker interface
func (r *Return) Track(e Episode) error {
	r.episodeReturns = append(r.episodeReturns, e.Reward)
	return nil
}

// Returns returns the tracked episodic returns
func (r *Return) Returns() []float64 {
	return append([]float64(nil), r.episodeReturns...)
}

// Restore implements the Restorer interface
func (r *Return) Restore(n int) error {
	data, err := restoreData(r.filename, n)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	r.episodeReturns = append(data, r.episodeReturns...)
	return nil
}

// Save saves the data tracked by the Return Tracker to disk as a gob
// encoded []float64
func (r *Return) Save() error {
	if err := saveData(r.filename, r.episodeReturns); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}
