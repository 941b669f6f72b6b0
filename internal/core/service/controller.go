package service

import (
	"apexlens/internal/core/domain"
	"apexlens/internal/core/port"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Request is an enhancement that has been admitted by Begin and is waiting to be Run.
type Request struct {
	Image       domain.DataURL
	Instruction string
	Generation  uint64
}

// Controller owns the image state of one browser session.
//
// Every upload and reset bumps the generation and cancels the request in flight, so a result
// that arrives late is dropped instead of overwriting newer state.
type Controller struct {
	enhancer   port.ImageEnhancer
	analyzer   port.ImageAnalyzer
	timeout    time.Duration
	chainEdits bool

	mutex      sync.Mutex
	state      domain.ImageState
	comparing  bool
	generation uint64
	cancel     context.CancelFunc
}

// NewController creates a controller in the Empty state. analyzer may be nil; a zero timeout
// lets the remote call run until it resolves.
func NewController(enhancer port.ImageEnhancer, analyzer port.ImageAnalyzer, timeout time.Duration) *Controller {
	return &Controller{
		enhancer:   enhancer,
		analyzer:   analyzer,
		timeout:    timeout,
		chainEdits: viper.GetBool("enhance.chain_edits"),
	}
}

func (c *Controller) Snapshot() domain.Snapshot {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return domain.Snapshot{State: c.state, Comparing: c.comparing, Generation: c.generation}
}

// Upload replaces the whole state with a fresh record holding only the new original.
func (c *Controller) Upload(image domain.DataURL) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.advance()
	c.state = domain.ImageState{Original: image}

	log.Debug().Uint64("generation", c.generation).Int("bytes", len(image)).Msg("image uploaded")
}

// Reset returns the session to the Empty state.
func (c *Controller) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.advance()
	c.state = domain.ImageState{}

	log.Debug().Uint64("generation", c.generation).Msg("session reset")
}

// SetComparing selects which image is displayed. The stored images are left untouched.
func (c *Controller) SetComparing(on bool) {
	c.mutex.Lock()
	c.comparing = on
	c.mutex.Unlock()
}

// Begin admits an enhancement and moves the session to Processing.
func (c *Controller) Begin(instruction string) (Request, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.state.HasOriginal() {
		return Request{}, domain.ErrNoOriginal
	}

	if strings.TrimSpace(instruction) == "" {
		return Request{}, domain.ErrEmptyInstruction
	}

	if c.state.IsProcessing {
		return Request{}, domain.ErrBusy
	}

	image := c.state.Original
	if c.chainEdits && c.state.HasEdit() {
		image = c.state.Edited
	}

	next := c.state
	next.IsProcessing = true
	next.Error = ""
	c.state = next

	return Request{Image: image, Instruction: instruction, Generation: c.generation}, nil
}

// Run performs the remote call for a request admitted by Begin and applies its outcome.
// It returns domain.ErrStale when the session moved on while the call was pending.
func (c *Controller) Run(ctx context.Context, req Request) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, c.timeout)
		defer cancelTimeout()
	}

	l := log.With().
		Uint64("generation", req.Generation).
		Int("instructionLength", len(req.Instruction)).
		Logger()

	c.mutex.Lock()
	if req.Generation != c.generation {
		c.mutex.Unlock()
		l.Debug().Msg("request superseded before it started")
		return domain.ErrStale
	}
	c.cancel = cancel
	c.mutex.Unlock()

	l.Info().Msg("sending enhancement request")

	start := time.Now()
	result, err := c.enhancer.Enhance(ctx, req.Image, req.Instruction)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if req.Generation != c.generation {
		l.Info().Msg("discarding result of superseded request")
		return domain.ErrStale
	}
	c.cancel = nil

	if err != nil {
		next := c.state
		next.IsProcessing = false
		next.Error = err.Error()
		c.state = next

		l.Warn().Err(err).Dur("duration", time.Since(start)).Msg("enhancement failed")
		return err
	}

	c.state = domain.ImageState{
		Original: c.state.Original,
		Edited:   result,
		Analysis: c.state.Analysis,
	}
	c.comparing = false

	l.Info().Dur("duration", time.Since(start)).Msg("enhancement finished")

	return nil
}

// Enhance runs Begin and Run back to back.
func (c *Controller) Enhance(ctx context.Context, instruction string) error {
	req, err := c.Begin(instruction)
	if err != nil {
		return err
	}

	return c.Run(ctx, req)
}

func (c *Controller) CanAnalyze() bool {
	return c.analyzer != nil
}

// Analyze asks the configured analyzer to describe the original image.
func (c *Controller) Analyze(ctx context.Context) error {
	if c.analyzer == nil {
		return domain.ErrNoAnalyzer
	}

	c.mutex.Lock()
	image := c.state.Original
	generation := c.generation
	c.mutex.Unlock()

	if image == "" {
		return domain.ErrNoOriginal
	}

	analysis, err := c.analyzer.Analyze(ctx, image)
	if err != nil {
		return fmt.Errorf("error analyzing image: %w", err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if generation != c.generation {
		return domain.ErrStale
	}

	next := c.state
	next.Analysis = analysis
	c.state = next

	return nil
}

// advance must be called with the mutex held.
func (c *Controller) advance() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.generation++
	c.comparing = false
}
