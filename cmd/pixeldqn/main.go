// Command pixeldqn trains and evaluates a DQN agent on pixel
// observations, either from an Atari game through OpenAI Gym or from
// the built-in catch environment
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/samuelfneumann/gogym"
	"github.com/samuelfneumann/pixeldqn/agent/deepq"
	"github.com/samuelfneumann/pixeldqn/agent/policy"
	"github.com/samuelfneumann/pixeldqn/config"
	"github.com/samuelfneumann/pixeldqn/environment"
	"github.com/samuelfneumann/pixeldqn/environment/box2d/catch"
	"github.com/samuelfneumann/pixeldqn/environment/gym"
	"github.com/samuelfneumann/pixeldqn/experiment"
	"github.com/samuelfneumann/pixeldqn/logging"
	"github.com/samuelfneumann/pixeldqn/network"
	"github.com/samuelfneumann/pixeldqn/solver"
	"github.com/samuelfneumann/pixeldqn/video"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pixeldqn: %v\n", err)
		os.Exit(1)
	}
}

// options holds the command line flags. Flags left unset do not
// override the configuration file.
type options struct {
	config     string
	save       string
	randomPlay int

	env          string
	balls        int
	model        string
	hidden       int
	expReplay    bool
	episodes     int
	evalEpisodes int
	batchSize    int
	capacity     int
	loss         string
	optimizer    string
	gamma        float64
	lr           float64
	history      int
	egreedy      bool
	epsStart     float64
	epsEnd       float64
	epsDecay     int
	schedule     string
	clamp        bool
	burnIn       int
	maxSteps     int
	ckptInterval int
	ckptDir      string
	resume       string
	videoInt     int
	videoDir     string
	seed         uint64
	logLevel     string
	metricsDB    string
	plotDir      string
	progress     bool
}

func parse(args []string) (*options, *flag.FlagSet, error) {
	o := &options{}
	fs := flag.NewFlagSet("pixeldqn", flag.ContinueOnError)

	fs.StringVar(&o.config, "config", "", "JSON configuration file")
	fs.StringVar(&o.save, "save-config", "",
		"write the resolved configuration to this file")
	fs.IntVar(&o.randomPlay, "random-play", 0,
		"take this many random steps in the environment and exit")

	fs.StringVar(&o.env, "env", "", "gym Atari id or \"catch\"")
	fs.IntVar(&o.balls, "balls", 0, "balls per catch episode")
	fs.StringVar(&o.model, "model", "", "linear, mlp, dueling, or conv")
	fs.IntVar(&o.hidden, "hidden", 0, "hidden layer width")
	fs.BoolVar(&o.expReplay, "exp-replay", true, "use experience replay")
	fs.IntVar(&o.episodes, "episodes", 0, "training episodes")
	fs.IntVar(&o.evalEpisodes, "eval-episodes", 0, "evaluation episodes")
	fs.IntVar(&o.batchSize, "batch", 0, "batch size")
	fs.IntVar(&o.capacity, "buffer", 0, "replay buffer capacity")
	fs.StringVar(&o.loss, "loss", "", "huber or mse")
	fs.StringVar(&o.optimizer, "optimizer", "", "rmsprop or adam")
	fs.Float64Var(&o.gamma, "gamma", 0, "discount factor")
	fs.Float64Var(&o.lr, "lr", 0, "learning rate")
	fs.IntVar(&o.history, "history", 0, "frames stacked per state")
	fs.BoolVar(&o.egreedy, "egreedy", true, "explore with ε-greedy")
	fs.Float64Var(&o.epsStart, "eps-start", 0, "initial ε")
	fs.Float64Var(&o.epsEnd, "eps-end", 0, "final ε")
	fs.IntVar(&o.epsDecay, "eps-decay", 0, "ε decay steps")
	fs.StringVar(&o.schedule, "schedule", "", "linear or exponential")
	fs.BoolVar(&o.clamp, "clamp", false, "clamp the linear schedule")
	fs.IntVar(&o.burnIn, "burn-in", 0, "random steps before training")
	fs.IntVar(&o.maxSteps, "max-steps", 0, "step limit per episode")
	fs.IntVar(&o.ckptInterval, "checkpoint-interval", 0,
		"episodes between checkpoints")
	fs.StringVar(&o.ckptDir, "checkpoint-dir", "", "checkpoint directory")
	fs.StringVar(&o.resume, "resume", "",
		"checkpoint file or directory to resume from")
	fs.IntVar(&o.videoInt, "video-interval", 0,
		"evaluation episodes between recordings")
	fs.StringVar(&o.videoDir, "video-dir", "", "video directory")
	fs.Uint64Var(&o.seed, "seed", 0, "random seed")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn, or error")
	fs.StringVar(&o.metricsDB, "metrics-db", "", "bbolt metrics database")
	fs.StringVar(&o.plotDir, "plot-dir", "", "directory for plots and data")
	fs.BoolVar(&o.progress, "progress", false, "show a progress bar")

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("parse: %w", err)
	}
	return o, fs, nil
}

// apply overrides cfg with every flag set on the command line
func (o *options) apply(cfg *config.Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "env":
			cfg.Environment.ID = o.env
		case "balls":
			cfg.Environment.Balls = o.balls
		case "history":
			cfg.Environment.History = o.history
		case "model":
			cfg.Agent.Model = network.Type(o.model)
		case "hidden":
			cfg.Agent.Hidden = o.hidden
		case "exp-replay":
			cfg.Agent.ExpReplay = o.expReplay
		case "batch":
			cfg.Agent.BatchSize = o.batchSize
		case "buffer":
			cfg.Agent.BufferCapacity = o.capacity
		case "loss":
			cfg.Agent.Loss = deepq.Loss(o.loss)
		case "optimizer":
			cfg.Agent.Optimizer = solver.Type(o.optimizer)
		case "gamma":
			cfg.Agent.Gamma = o.gamma
		case "lr":
			cfg.Agent.LearningRate = o.lr
		case "egreedy":
			cfg.Exploration.EGreedy = o.egreedy
		case "eps-start":
			cfg.Exploration.Start = o.epsStart
		case "eps-end":
			cfg.Exploration.End = o.epsEnd
		case "eps-decay":
			cfg.Exploration.Decay = o.epsDecay
		case "schedule":
			cfg.Exploration.Schedule = policy.ScheduleType(o.schedule)
		case "clamp":
			cfg.Exploration.Clamp = o.clamp
		case "episodes":
			cfg.Run.Episodes = o.episodes
		case "eval-episodes":
			cfg.Run.EvalEpisodes = o.evalEpisodes
		case "burn-in":
			cfg.Run.BurnIn = o.burnIn
		case "max-steps":
			cfg.Run.MaxEpisodeSteps = o.maxSteps
		case "seed":
			cfg.Run.Seed = o.seed
		case "resume":
			cfg.Run.Resume = o.resume
		case "log-level":
			cfg.Output.LogLevel = o.logLevel
		case "checkpoint-interval":
			cfg.Output.CheckpointInterval = o.ckptInterval
		case "checkpoint-dir":
			cfg.Output.CheckpointDir = o.ckptDir
		case "video-interval":
			cfg.Output.VideoInterval = o.videoInt
		case "video-dir":
			cfg.Output.VideoDir = o.videoDir
		case "metrics-db":
			cfg.Output.MetricsDB = o.metricsDB
		case "plot-dir":
			cfg.Output.PlotDir = o.plotDir
		case "progress":
			cfg.Output.Progress = o.progress
		}
	})
}

func run(args []string) error {
	o, fs, err := parse(args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if o.config != "" {
		if cfg, err = config.Load(o.config); err != nil {
			return err
		}
	}
	o.apply(cfg, fs)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if o.save != "" {
		if err := cfg.Save(o.save); err != nil {
			return err
		}
	}

	logger, err := logging.New(cfg.Output.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Environment.ID != config.Catch {
		defer gogym.Close()
	}
	env, err := newEnvironment(cfg)
	if err != nil {
		return err
	}
	if c, ok := env.(environment.Closer); ok {
		defer c.Close()
	}

	if o.randomPlay > 0 {
		rng := rand.New(rand.NewSource(cfg.Run.Seed))
		stats, err := experiment.RandomPlay(env, o.randomPlay, rng, logger)
		if err != nil {
			return err
		}
		logger.Info("random play finished",
			zap.Int("steps", stats.Steps),
			zap.Int("terminals", stats.Terminals))
		return nil
	}

	newRecording, err := recordings(cfg, env)
	if err != nil {
		return err
	}

	driver, err := experiment.Build(cfg, env, logger, os.Stderr,
		newRecording)
	if err != nil {
		return err
	}

	logger.Info("starting run",
		zap.String("env", cfg.Environment.ID),
		zap.String("model", string(cfg.Agent.Model)),
		zap.Int("episodes", cfg.Run.Episodes),
		zap.Int("eval_episodes", cfg.Run.EvalEpisodes))

	mean, runErr := driver.Run(cfg)
	if err := driver.Close(); err != nil {
		logger.Error("closing driver", zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("run finished", zap.Float64("average_reward", mean))
	return nil
}

// newEnvironment returns the environment named by cfg
func newEnvironment(cfg *config.Config) (environment.Environment, error) {
	if cfg.Environment.ID == config.Catch {
		return catch.New(cfg.Environment.Balls, cfg.Run.Seed)
	}
	return gym.NewAtari(cfg.Environment.ID, cfg.Run.Seed)
}

// recordings returns a function which opens a video recording of an
// evaluation episode, or nil if videos are disabled
func recordings(cfg *config.Config,
	env environment.Environment) (func(int) (experiment.Recording, error),
	error) {
	if cfg.Output.VideoInterval < 1 {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.Output.VideoDir, 0755); err != nil {
		return nil, fmt.Errorf("recordings: %w", err)
	}

	h, w, c, err := env.ObservationSpec().PixelShape()
	if err != nil {
		return nil, fmt.Errorf("recordings: %w", err)
	}
	return func(episode int) (experiment.Recording, error) {
		filename := video.Filename(cfg.Output.VideoDir, episode)
		return video.New(filename, h, w, c, video.FPS)
	}, nil
}
