package checkpointer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Extension is the file extension of checkpoint files
const Extension = ".gob"

// FilenameEnumerator returns a function which returns the filename of
// the checkpoint of a given epoch as <dir>/<prefix><epoch>.gob
func FilenameEnumerator(dir, prefix string) func(epoch int) string {
	return func(epoch int) string {
		return filepath.Join(dir, fmt.Sprintf("%v%v%v", prefix, epoch,
			Extension))
	}
}

// Latest returns the filename of the checkpoint with the largest epoch
// in dir with the given prefix
func Latest(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("latest: %w", err)
	}

	latest, latestEpoch := "", -1
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) ||
			!strings.HasSuffix(name, Extension) {
			continue
		}

		epoch, err := strconv.Atoi(strings.TrimSuffix(
			strings.TrimPrefix(name, prefix), Extension))
		if err != nil {
			continue
		}
		if epoch > latestEpoch {
			latest, latestEpoch = filepath.Join(dir, name), epoch
		}
	}

	if latestEpoch < 0 {
		return "", fmt.Errorf("latest: no checkpoints with prefix %q in %v",
			prefix, dir)
	}
	return latest, nil
}
