// Package catch provides an implementation of the Catch arcade game.
//
// In Catch, balls fall from the top of the screen and the agent moves
// a paddle along the bottom of the screen to catch them. Each caught
// ball gives a reward of +1 and each missed ball a reward of -1. An
// episode ends once a fixed number of balls have been dropped.
//
// Ball physics are simulated with Box2D and each frame is rendered to
// an RGB image with gg.
package catch

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ByteArena/box2d"
	"github.com/fogleman/gg"
	env "github.com/samuelfneumann/pixeldqn/environment"
	ts "github.com/samuelfneumann/pixeldqn/timestep"
	"github.com/samuelfneumann/pixeldqn/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	FPS float64 = 30

	// pixels per Box2D unit
	Scale float64 = 8.4

	ViewportW float64 = 84
	ViewportH float64 = 84
	Channels  int     = 3

	XGravity float64 = 0.0
	YGravity float64 = -10.0

	BallRadius     float64 = 0.3
	BallMaxXSpeed  float64 = 2.0
	PaddleHalfW    float64 = 0.9
	PaddleHalfH    float64 = 0.2
	PaddleY        float64 = 0.6
	PaddleSpeed    float64 = 8.0
	DefaultBalls   int     = 1
	VelocityIters  int     = 6
	PositionIters  int     = 2
	CatchReward    float64 = 1.0
	MissReward     float64 = -1.0
	NumActions     int     = 3
	ActionNoop     int     = 0
	ActionLeft     int     = 1
	ActionRight    int     = 2
	initialBallTop float64 = 1.0
)

// Catch implements the Catch environment
type Catch struct {
	world box2d.B2World

	walls  []*box2d.B2Body
	ball   *box2d.B2Body
	paddle *box2d.B2Body

	xBounds     r1.Interval
	paddleX     r1.Interval
	rng         distuv.Uniform
	balls       int
	ballsLeft   int
	prevStep    ts.TimeStep
	skyShade    color.Color
	ballShade   color.Color
	paddleShade color.Color
}

// New returns a new Catch environment in which each episode drops the
// given number of balls
func New(balls int, seed uint64) (*Catch, error) {
	if balls < 1 {
		return nil, fmt.Errorf("new: balls per episode must be positive, "+
			"got %v", balls)
	}

	c := &Catch{
		world:       box2d.MakeB2World(box2d.B2Vec2{X: XGravity, Y: YGravity}),
		balls:       balls,
		skyShade:    color.RGBA{R: 0, G: 0, B: 0, A: 255},
		ballShade:   color.RGBA{R: 255, G: 255, B: 255, A: 255},
		paddleShade: color.RGBA{R: 255, G: 166, B: 0, A: 255},
	}

	W := ViewportW / Scale
	c.xBounds = r1.Interval{Min: BallRadius, Max: W - BallRadius}
	c.paddleX = r1.Interval{Min: PaddleHalfW, Max: W - PaddleHalfW}

	src := rand.NewSource(seed)
	c.rng = distuv.Uniform{Min: 0, Max: 1.0, Src: src}

	return c, nil
}

func (c *Catch) destroy() {
	if c.ball == nil {
		return
	}
	c.world.DestroyBody(c.ball)
	c.ball = nil

	c.world.DestroyBody(c.paddle)
	c.paddle = nil

	for _, wall := range c.walls {
		c.world.DestroyBody(wall)
	}
	c.walls = nil
}

// Reset resets the environment to a new episode
func (c *Catch) Reset() (ts.TimeStep, error) {
	c.destroy()
	c.ballsLeft = c.balls

	W := ViewportW / Scale
	H := ViewportH / Scale

	// Side walls, the ball bounces off of these
	c.walls = make([]*box2d.B2Body, 2)
	for i, x := range []float64{0.0, W} {
		wallDef := box2d.NewB2BodyDef()
		wallDef.Type = 0 // Static body
		c.walls[i] = c.world.CreateBody(wallDef)

		wallShape := box2d.NewB2EdgeShape()
		wallShape.Set(box2d.MakeB2Vec2(x, 0.0), box2d.MakeB2Vec2(x, 2*H))

		wallFix := box2d.MakeB2FixtureDef()
		wallFix.Shape = wallShape
		c.walls[i].CreateFixtureFromDef(&wallFix)
	}

	// Paddle
	paddleDef := box2d.MakeB2BodyDef()
	paddleDef.Type = 1 // Kinematic body
	paddleDef.Position = box2d.MakeB2Vec2(W/2, PaddleY)
	c.paddle = c.world.CreateBody(&paddleDef)

	paddleShape := box2d.NewB2PolygonShape()
	paddleShape.SetAsBox(PaddleHalfW, PaddleHalfH)

	paddleFix := box2d.MakeB2FixtureDef()
	paddleFix.Shape = paddleShape
	paddleFix.IsSensor = true
	c.paddle.CreateFixtureFromDef(&paddleFix)

	// Ball
	ballDef := box2d.MakeB2BodyDef()
	ballDef.Type = 2 // Dynamic body
	ballDef.Bullet = true
	c.ball = c.world.CreateBody(&ballDef)

	ballShape := box2d.NewB2CircleShape()
	ballShape.M_radius = BallRadius

	ballFix := box2d.MakeB2FixtureDef()
	ballFix.Shape = ballShape
	ballFix.Density = 1.0
	ballFix.Friction = 0.0
	ballFix.Restitution = 1.0
	c.ball.CreateFixtureFromDef(&ballFix)
	c.dropBall()

	obs, err := c.render()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	step := ts.New(ts.First, 0, obs, 0)
	c.prevStep = step
	return step, nil
}

// dropBall places the ball at a random position along the top of the
// screen with a random horizontal velocity
func (c *Catch) dropBall() {
	x := c.xBounds.Min + c.rng.Rand()*(c.xBounds.Max-c.xBounds.Min)
	y := ViewportH/Scale - initialBallTop
	vx := (2*c.rng.Rand() - 1) * BallMaxXSpeed

	c.ball.SetTransform(box2d.MakeB2Vec2(x, y), 0.0)
	c.ball.SetLinearVelocity(box2d.MakeB2Vec2(vx, 0.0))
	c.ball.SetAngularVelocity(0.0)
	c.ball.SetAwake(true)
}

// Step takes one environmental step given an action in
// {noop, left, right}
func (c *Catch) Step(a int) (ts.TimeStep, bool, error) {
	if c.ball == nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment must " +
			"be reset before stepping")
	}

	var vx float64
	switch a {
	case ActionNoop:
	case ActionLeft:
		vx = -PaddleSpeed
	case ActionRight:
		vx = PaddleSpeed
	default:
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action "+
			"selection, expected action ϵ [0, 1, 2], received action = %v",
			a)
	}
	c.paddle.SetLinearVelocity(box2d.MakeB2Vec2(vx, 0.0))

	c.world.Step(1.0/FPS, VelocityIters, PositionIters)

	// Keep the paddle on screen
	pos := c.paddle.GetPosition()
	if x := floatutils.ClipInterval(pos.X, c.paddleX); x != pos.X {
		c.paddle.SetTransform(box2d.MakeB2Vec2(x, PaddleY), 0.0)
		c.paddle.SetLinearVelocity(box2d.MakeB2Vec2(0.0, 0.0))
	}

	reward := 0.0
	last := false
	ball := c.ball.GetPosition()
	if ball.Y-BallRadius <= PaddleY+PaddleHalfH {
		paddleX := c.paddle.GetPosition().X
		if math.Abs(ball.X-paddleX) <= PaddleHalfW+BallRadius {
			reward = CatchReward
		} else {
			reward = MissReward
		}

		c.ballsLeft--
		if c.ballsLeft <= 0 {
			last = true
		} else {
			c.dropBall()
		}
	}

	obs, err := c.render()
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %w", err)
	}

	t := ts.New(ts.Mid, reward, obs, c.prevStep.Number+1)
	if last {
		t.StepType = ts.Last
	}
	c.prevStep = t

	return t, last, nil
}

// worldToPixelCoord converts Box2D world coordinates to pixel
// coordinates, which have the origin at the top-left of the screen
func worldToPixelCoord(x, y float64) (float64, float64) {
	return Scale * x, ViewportH - Scale*y
}

// render draws the current frame and returns it flattened in
// (height, width, channel) order
func (c *Catch) render() ([]float64, error) {
	dc := gg.NewContext(int(ViewportW), int(ViewportH))
	dc.SetColor(c.skyShade)
	dc.Clear()

	// Ball
	ball := c.ball.GetPosition()
	bx, by := worldToPixelCoord(ball.X, ball.Y)
	dc.DrawCircle(bx, by, BallRadius*Scale)
	dc.SetColor(c.ballShade)
	dc.Fill()

	// Paddle
	paddle := c.paddle.GetPosition()
	px, py := worldToPixelCoord(paddle.X-PaddleHalfW, paddle.Y+PaddleHalfH)
	dc.DrawRectangle(px, py, 2*PaddleHalfW*Scale, 2*PaddleHalfH*Scale)
	dc.SetColor(c.paddleShade)
	dc.Fill()

	return pixels(dc.Image())
}

// pixels flattens the RGB channels of an image in (height, width,
// channel) order
func pixels(img image.Image) ([]float64, error) {
	bounds := img.Bounds()
	if bounds.Dx() != int(ViewportW) || bounds.Dy() != int(ViewportH) {
		return nil, fmt.Errorf("pixels: rendered image is %vx%v, expected "+
			"%vx%v", bounds.Dy(), bounds.Dx(), ViewportH, ViewportW)
	}

	obs := make([]float64, 0, bounds.Dx()*bounds.Dy()*Channels)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			obs = append(obs, float64(r>>8), float64(g>>8), float64(b>>8))
		}
	}
	return obs, nil
}

// BallsLeft returns the number of balls remaining in the episode
func (c *Catch) BallsLeft() int {
	return c.ballsLeft
}

// ObservationSpec returns the observation spec of the environment
func (c *Catch) ObservationSpec() env.Spec {
	return env.NewPixelSpec(int(ViewportH), int(ViewportW), Channels)
}

// ActionSpec returns the action specification of the environment
func (c *Catch) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(NumActions)
}
