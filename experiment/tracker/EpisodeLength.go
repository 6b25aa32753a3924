package tracker

import "fmt"

// EpisodeLength tracks and saves the lengths of episodes in an
// experiment
type EpisodeLength struct {
	episodeLengths []float64
	filename       string
}

// NewEpisodeLength returns a new EpisodeLength Tracker which will save
// its data at the specified location filename
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// Track implements the Tracker interface
func (e *EpisodeLength) Track(ep Episode) error {
	e.episodeLengths = append(e.episodeLengths, float64(ep.Steps))
	return nil
}

// Lengths returns the tracked episode lengths
func (e *EpisodeLength) Lengths() []float64 {
	return append([]float64(nil), e.episodeLengths...)
}

// Restore implements the Restorer interface
func (e *EpisodeLength) Restore(n int) error {
	data, err := restoreData(e.filename, n)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	e.episodeLengths = append(data, e.episodeLengths...)
	return nil
}

// Save saves the data tracked by the EpisodeLength Tracker to disk as
// a gob encoded []float64, so that it can be read with LoadData
func (e *EpisodeLength) Save() error {
	if err := saveData(e.filename, e.episodeLengths); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}
