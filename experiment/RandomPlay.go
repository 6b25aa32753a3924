package experiment

import (
	"fmt"

	"github.com/samuelfneumann/pixeldqn/environment"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// RandomPlay takes n steps in env with uniform random actions and logs
// the reward of each step and whether it ended an episode. It is
// useful to check that an environment works before training on it.
func RandomPlay(env environment.Environment, n int, rng *rand.Rand,
	logger *zap.Logger) (BurnInStats, error) {
	var stats BurnInStats
	if logger == nil {
		logger = zap.NewNop()
	}
	numActions := environment.NumActions(env)

	if _, err := env.Reset(); err != nil {
		return stats, fmt.Errorf("randomPlay: %w", err)
	}
	for stats.Steps < n {
		action := rng.Intn(numActions)
		step, done, err := env.Step(action)
		if err != nil {
			return stats, fmt.Errorf("randomPlay: %w", err)
		}
		stats.Steps++

		logger.Info("random step",
			zap.Int("step", stats.Steps),
			zap.Int("action", action),
			zap.Float64("reward", step.Reward),
			zap.Bool("done", done))

		if done {
			stats.Terminals++
			if _, err := env.Reset(); err != nil {
				return stats, fmt.Errorf("randomPlay: %w", err)
			}
		}
	}
	return stats, nil
}
