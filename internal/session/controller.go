package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmorgan81/decorai/internal/image"
	"github.com/dmorgan81/decorai/internal/log"
	"github.com/google/uuid"
)

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// Controller owns one decoration session. All state changes go through its
// methods; at most one generation call is outstanding at a time.
type Controller struct {
	generator image.Generator
	picker    StylePicker
	now       func() time.Time
	newID     func() string

	mu         sync.Mutex
	status     Status
	source     *image.Encoded
	style      string
	result     *Result
	errMsg     string
	generation uint64
	inflight   uint64
}

var _ Session = (*Controller)(nil)

func NewController(generator image.Generator, picker StylePicker, opts ...Option) *Controller {
	c := &Controller{
		generator: generator,
		picker:    picker,
		now:       time.Now,
		newID:     uuid.NewString,
		status:    Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSourceImage replaces the photo and drops any result or error. The status
// is left as it is. A call still in flight for the previous photo is
// discarded when it settles, and the session then returns to Idle.
func (c *Controller) SetSourceImage(img image.Encoded) error {
	if err := img.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrMissingInput, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == Processing {
		c.generation++
	}
	c.source = &img
	c.result = nil
	c.errMsg = ""
	return nil
}

func (c *Controller) Submit(ctx context.Context, style string) (<-chan Settlement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(ctx, style)
}

// SubmitRandom draws a style from the catalog and submits it. The drawn style
// is returned even when the submission is rejected.
func (c *Controller) SubmitRandom(ctx context.Context) (string, <-chan Settlement, error) {
	style := c.picker.Pick()
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, err := c.submitLocked(ctx, style)
	return style, ch, err
}

func (c *Controller) Decorate(ctx context.Context, style string) (*Result, error) {
	ch, err := c.Submit(ctx, style)
	if err != nil {
		return nil, err
	}
	return wait(ctx, ch)
}

func (c *Controller) DecorateRandom(ctx context.Context) (*Result, error) {
	_, ch, err := c.SubmitRandom(ctx)
	if err != nil {
		return nil, err
	}
	return wait(ctx, ch)
}

// Reset returns to Idle unconditionally. A call still in flight is not
// cancelled, but its settlement will be discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.status = Idle
	c.source = nil
	c.style = ""
	c.result = nil
	c.errMsg = ""
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Status:     c.status,
		Source:     c.source,
		Style:      c.style,
		Result:     c.result,
		Error:      c.errMsg,
		Generation: c.generation,
	}
}

func (c *Controller) submitLocked(ctx context.Context, style string) (<-chan Settlement, error) {
	if c.status == Processing {
		return nil, ErrBusy
	}
	if c.source == nil {
		return nil, fmt.Errorf("%w: no photo supplied", ErrMissingInput)
	}
	if strings.TrimSpace(style) == "" {
		return nil, fmt.Errorf("%w: no style description", ErrMissingInput)
	}

	c.generation++
	gen := c.generation
	source := *c.source
	c.inflight = gen
	c.status = Processing
	c.style = style
	c.result = nil
	c.errMsg = ""

	log.FromContextOrDiscard(ctx).Info("decoration submitted", "generation", gen, "style", style)

	ch := make(chan Settlement, 1)
	go func() {
		out, err := c.generator.Generate(ctx, image.Params{Source: source, Prompt: style})
		ch <- c.settle(ctx, gen, source, style, out, err)
	}()
	return ch, nil
}

func (c *Controller) settle(ctx context.Context, gen uint64, source image.Encoded, style string, out image.Encoded, err error) Settlement {
	log := log.FromContextOrDiscard(ctx).With("generation", gen)
	if err == nil && out.IsZero() {
		err = ErrEmptyResult
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight == gen {
		c.inflight = 0
	}
	if gen != c.generation || c.status != Processing {
		log.Warn("discarding stale decoration settlement", "current_generation", c.generation, "error", err)
		if c.status == Processing && c.inflight == 0 {
			c.status = Idle
		}
		return Settlement{Err: ErrSuperseded}
	}

	if err != nil {
		c.status = Failed
		c.result = nil
		c.errMsg = errorMessage(err)
		log.Error("decoration failed", "error", err)
		if errors.Is(err, ErrEmptyResult) {
			return Settlement{Err: err}
		}
		return Settlement{Err: fmt.Errorf("%w: %w", ErrCollaborator, err)}
	}

	result := &Result{
		ID:             c.newID(),
		SourceImage:    source,
		GeneratedImage: out,
		Style:          style,
		CreatedAt:      c.now(),
	}
	c.status = Succeeded
	c.result = result
	c.errMsg = ""
	log.Info("decoration succeeded", "result", result.ID)
	return Settlement{Result: result}
}

func wait(ctx context.Context, ch <-chan Settlement) (*Result, error) {
	select {
	case s := <-ch:
		return s.Result, s.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func errorMessage(err error) string {
	if errors.Is(err, ErrEmptyResult) {
		return EmptyResultErrorMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackErrorMessage
}
