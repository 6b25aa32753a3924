// Package checkpointer implements saving and loading the state of a
// training run so that it can be resumed
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/pixeldqn/network"
	"github.com/samuelfneumann/pixeldqn/solver"
)

// Record is the state of a training run after some number of
// episodes
type Record struct {
	Epoch      int
	Params     network.Snapshot
	Optimizer  solver.State
	LastReward float64
	StepsDone  int
}

// Recorder produces Records of a training run
type Recorder interface {
	Record(epoch int) (Record, error)
}

// Checkpointer checkpoints a training run after episodes
type Checkpointer interface {
	Checkpoint(episode int) error
}

// Save gob encodes r into filename
func Save(filename string, r Record) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create checkpoint file: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(r); err != nil {
		file.Close()
		return fmt.Errorf("save: could not encode checkpoint: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Load loads the Record saved in filename
func Load(filename string) (Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Record{}, fmt.Errorf("load: could not open checkpoint file: "+
			"%w", err)
	}
	defer file.Close()

	var r Record
	if err := gob.NewDecoder(file).Decode(&r); err != nil {
		return Record{}, fmt.Errorf("load: could not decode checkpoint: %w",
			err)
	}
	return r, nil
}
