package panel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/genomics-xai/internal/textgen"
)

// Controller drives one panel. Each Submit supersedes the previous request:
// the older call is cancelled and its result, should it still arrive, is
// dropped. Controllers are safe for concurrent use.
type Controller struct {
	name    string
	gen     textgen.Generator
	parent  context.Context
	shape   Shaper
	failure string
	logger  *slog.Logger

	observers []func(State)
	settle    func(State)
	tracer    func(Trace)

	mu     sync.Mutex
	state  State
	seq    uint64
	cancel context.CancelFunc
	done   chan struct{}

	// notifyMu orders observer delivery; version lets late deliveries of an
	// older state be skipped.
	notifyMu     sync.Mutex
	version      uint64
	lastNotified uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithContext sets the parent context of every request. Cancelling it
// cancels in-flight calls.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.parent = ctx }
}

// WithShaper replaces the default PlainText shaper.
func WithShaper(s Shaper) Option {
	return func(c *Controller) { c.shape = s }
}

// WithLogger sets the logger used for failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithObserver registers fn to receive every state change. Observers run on
// the goroutine that caused the change and must not call Submit or Reset.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) { c.observers = append(c.observers, fn) }
}

// WithSettle registers fn to run once per request that reaches Ready or
// Failed, before observers see the change. Discarded requests never settle.
func WithSettle(fn func(State)) Option {
	return func(c *Controller) { c.settle = fn }
}

// WithTracer receives request lifecycle events.
func WithTracer(fn func(Trace)) Option {
	return func(c *Controller) { c.tracer = fn }
}

// New creates an idle panel controller.
func New(name string, gen textgen.Generator, opts ...Option) *Controller {
	c := &Controller{
		name:    name,
		gen:     gen,
		parent:  context.Background(),
		shape:   PlainText,
		failure: UnavailableMessage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{Panel: name, Status: StatusIdle, UpdatedAt: time.Now()}
	return c
}

// Name returns the panel name.
func (c *Controller) Name() string {
	return c.name
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit starts a request and returns its sequence number. The panel is
// Loading when Submit returns; the outcome arrives asynchronously.
func (c *Controller) Submit(req Request) uint64 {
	requestID := uuid.NewString()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	c.state = State{
		Panel:     c.name,
		Status:    StatusLoading,
		Seq:       seq,
		Subject:   req.Subject,
		UpdatedAt: time.Now(),
	}
	snapshot, version := c.commitLocked()
	c.mu.Unlock()

	c.trace(Trace{
		Panel:       c.name,
		Seq:         seq,
		RequestID:   requestID,
		Phase:       PhaseSubmitted,
		Subject:     req.Subject,
		PromptChars: len(req.Prompt),
	})
	c.notify(snapshot, version)

	go c.run(ctx, cancel, seq, requestID, req, done)
	return seq
}

// Reset cancels any in-flight request and returns the panel to Idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++
	c.state = State{Panel: c.name, Status: StatusIdle, Seq: c.seq, UpdatedAt: time.Now()}
	snapshot, version := c.commitLocked()
	c.mu.Unlock()

	c.trace(Trace{Panel: c.name, Seq: snapshot.Seq, Phase: PhaseReset})
	c.notify(snapshot, version)
}

// Wait blocks until the latest request settles or ctx is done.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		done := c.done
		state := c.state
		c.mu.Unlock()

		if done == nil || state.Status != StatusLoading {
			return state, nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, seq uint64, requestID string, req Request, done chan struct{}) {
	defer close(done)
	defer cancel()

	start := time.Now()
	out, err := c.call(ctx, req)

	next := State{
		Panel:     c.name,
		Seq:       seq,
		Subject:   req.Subject,
		UpdatedAt: time.Now(),
	}
	tr := Trace{
		Panel:       c.name,
		Seq:         seq,
		RequestID:   requestID,
		Subject:     req.Subject,
		PromptChars: len(req.Prompt),
		Latency:     time.Since(start),
	}

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		tr.Phase = PhaseDiscarded
		tr.Err = err
		c.trace(tr)
		return
	}
	if err != nil {
		next.Status = StatusFailed
		next.Error = c.failure
	} else {
		next.Status = StatusReady
		next.Result = out.Text
		next.Sections = out.Sections
	}
	c.state = next
	c.cancel = nil
	snapshot, version := c.commitLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("panel request failed",
			"panel", c.name,
			"seq", seq,
			"request_id", requestID,
			"error", err,
		)
		tr.Phase = PhaseFailed
		tr.Err = err
	} else {
		tr.Phase = PhaseReady
		tr.ResultChars = len(out.Text)
	}

	if c.settle != nil {
		c.settle(snapshot)
	}
	c.trace(tr)
	c.notify(snapshot, version)
}

// call invokes the generator and shapes its answer. Panics from the
// generator are converted into errors.
func (c *Controller) call(ctx context.Context, req Request) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panel %s: generator panic: %v", c.name, r)
		}
	}()

	if c.gen == nil {
		return Outcome{}, fmt.Errorf("panel %s: no text generator configured", c.name)
	}
	resp, err := c.gen.Generate(ctx, textgen.Request{
		Prompt:            req.Prompt,
		SystemInstruction: req.SystemInstruction,
	})
	if err != nil {
		return Outcome{}, err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return Outcome{}, textgen.ErrEmptyResponse
	}

	out = c.shape(resp.Text)
	if out.Text == "" {
		return Outcome{}, textgen.ErrEmptyResponse
	}
	return out, nil
}

func (c *Controller) commitLocked() (State, uint64) {
	c.version++
	return c.state, c.version
}

func (c *Controller) notify(s State, version uint64) {
	if len(c.observers) == 0 {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if version <= c.lastNotified {
		return
	}
	c.lastNotified = version
	for _, fn := range c.observers {
		fn(s)
	}
}

func (c *Controller) trace(t Trace) {
	if c.tracer != nil {
		c.tracer(t)
	}
}
