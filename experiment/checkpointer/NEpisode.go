package checkpointer

import "fmt"

// nEpisode implements checkpointing every N episodes
type nEpisode struct {
	interval int
	recorder Recorder

	// filename returns the name of the file to save the Record of an
	// epoch in. Use FilenameEnumerator to generate this function.
	filename func(epoch int) string
}

// NewNEpisode returns a checkpointer that saves a Record from recorder
// every n episodes. If n < 1, no checkpoints are saved.
func NewNEpisode(n int, recorder Recorder,
	filename func(epoch int) string) Checkpointer {
	return &nEpisode{
		interval: n,
		recorder: recorder,
		filename: filename,
	}
}

// Checkpoint saves a Record if episode is a multiple of the interval
func (n *nEpisode) Checkpoint(episode int) error {
	if n.interval < 1 || episode%n.interval != 0 {
		return nil
	}

	r, err := n.recorder.Record(episode)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := Save(n.filename(episode), r); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}
