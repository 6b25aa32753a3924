// Package tracker implements Trackers, which track and save data
// about the episodes of an experiment
package tracker

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Episode describes a single finished episode
type Episode struct {
	Number     int
	Training   bool
	Steps      int
	TotalSteps int // Environment steps taken over the whole run
	Reward     float64
}

// Tracker keeps track of experiment data and saves the data after the
// experiment has finished
type Tracker interface {
	Track(Episode) error
	Save() error
}

// Summarizer is a Tracker which also tracks the mean reward of each
// evaluation run
type Summarizer interface {
	Tracker
	Summarize(meanReward float64) error
}

// Restorer is a Tracker which can reload the data saved by an earlier
// run, so that a resumed run extends it rather than overwriting it
type Restorer interface {
	Tracker

	// Restore reloads at most the first n saved episodes. A missing
	// save file is not an error.
	Restore(n int) error
}

// restoreData returns at most the first n values saved to filename
func restoreData(filename string, n int) ([]float64, error) {
	data, err := LoadData(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) > n {
		data = data[:n]
	}
	return data, nil
}

// saveData gob encodes data into filename
func saveData(filename string, data interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not open save file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		return fmt.Errorf("could not encode data: %w", err)
	}
	return nil
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadData: could not open data file: %w", err)
	}
	defer file.Close()

	var data []float64
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("loadData: could not decode data: %w", err)
	}
	return data, nil
}
