// Package playback owns the current-tick cursor of a loaded trial. All
// movement, whether a seek, a single step or the auto-play ticker, goes
// through one synchronized call path into the scene view, so advances
// never overlap.
package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tomcat-viz/trialviz/internal/scene"
	"github.com/tomcat-viz/trialviz/internal/trial"
)

const DefaultInterval = time.Second

// Controller moves the playback cursor over a trial's ticks.
type Controller struct {
	trial    *trial.Trial
	view     *scene.View
	logger   *slog.Logger
	interval time.Duration

	// onTick, when set, runs after every successful cursor move while
	// the mutex is held.
	onTick func(tick int)

	mu       sync.Mutex
	playing  bool
	stopChan chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the auto-play step interval.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithOnTick registers a callback invoked after every cursor move.
func WithOnTick(fn func(tick int)) Option {
	return func(c *Controller) { c.onTick = fn }
}

func NewController(t *trial.Trial, view *scene.View, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		trial:    t,
		view:     view,
		logger:   logger,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tick returns the cursor position.
func (c *Controller) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Tick()
}

// Seek moves the cursor to an absolute tick.
func (c *Controller) Seek(tick int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(tick)
}

// Step moves the cursor by a relative number of ticks, clamped to the
// trial bounds.
func (c *Controller) Step(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tick := c.view.Tick() + delta
	if tick < 0 {
		tick = 0
	}
	if tick > c.trial.TimeSteps-1 {
		tick = c.trial.TimeSteps - 1
	}
	return c.seekLocked(tick)
}

func (c *Controller) seekLocked(tick int) error {
	if err := c.view.AdvanceTo(tick); err != nil {
		return fmt.Errorf("advancing to tick %d: %w", tick, err)
	}
	if c.onTick != nil {
		c.onTick(tick)
	}
	return nil
}

// Play starts advancing the cursor one tick per interval until the last
// tick, Stop or an error. It returns immediately; a second call while
// playing is a no-op.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	c.playing = true
	c.stopChan = make(chan struct{})
	go c.playLoop(c.stopChan)
}

// Stop halts auto-play. The cursor stays where it is.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if !c.playing {
		return
	}
	close(c.stopChan)
	c.playing = false
}

// Playing reports whether auto-play is running.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *Controller) playLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			c.mu.Lock()
			tick := c.view.Tick() + 1
			if tick >= c.trial.TimeSteps {
				c.stopLocked()
				c.mu.Unlock()
				return
			}
			if err := c.seekLocked(tick); err != nil {
				c.logger.Error("Auto-play halted", "error", err)
				c.stopLocked()
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()
		}
	}
}
