package tracker

import (
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/samuelfneumann/pixeldqn/utils/floatutils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot files written by Progress
const (
	DurationsPlot = "durations.png"
	RewardsPlot   = "average_rewards.png"
)

// DurationWindow is the number of episodes averaged over in the
// durations plot
const DurationWindow = 100

// Progress is a Summarizer which plots the length of each training
// episode along with its moving average, and the mean reward of each
// evaluation run.
type Progress struct {
	dir       string
	durations []float64
	averages  []float64
}

// NewProgress returns a new Progress Tracker which saves its plots to
// directory dir
func NewProgress(dir string) *Progress {
	return &Progress{dir: dir}
}

// Track implements the Tracker interface. Only training episodes are
// tracked.
func (p *Progress) Track(e Episode) error {
	if e.Training {
		p.durations = append(p.durations, float64(e.Steps))
	}
	return nil
}

// Summarize implements the Summarizer interface
func (p *Progress) Summarize(meanReward float64) error {
	p.averages = append(p.averages, meanReward)
	return nil
}

// Save implements the Tracker interface
func (p *Progress) Save() error {
	if len(p.durations) > 0 {
		path := filepath.Join(p.dir, DurationsPlot)
		err := savePlot(path, "Training", "Episode", "Duration", p.durations,
			floatutils.MovingAverage(p.durations, DurationWindow))
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}

	if len(p.averages) > 0 {
		path := filepath.Join(p.dir, RewardsPlot)
		err := savePlot(path, "Evaluation", "Evaluation run",
			"Average reward", p.averages, nil)
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

// savePlot saves a line plot of values, with an optional line of
// moving averages, to path
func savePlot(path, title, xLabel, yLabel string, values,
	averages []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	line, err := plotter.NewLine(points(values))
	if err != nil {
		return fmt.Errorf("could not create line plotter: %w", err)
	}
	p.Add(line)

	if averages != nil {
		avg, err := plotter.NewLine(points(averages))
		if err != nil {
			return fmt.Errorf("could not create line plotter: %w", err)
		}
		avg.Color = color.RGBA{R: 200, A: 255}
		avg.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(avg)
		p.Legend.Add(yLabel, line)
		p.Legend.Add(fmt.Sprintf("%v-episode average", DurationWindow), avg)
	}

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("could not save plot to file: %w", err)
	}
	return nil
}

func points(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i := range values {
		pts[i].X = float64(i)
		pts[i].Y = values[i]
	}
	return pts
}
