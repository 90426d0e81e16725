// Package resilience guards calls to the places provider: bounded retries for
// transient failures and a circuit breaker that fails fast while the provider
// is unreachable.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is a circuit breaker state.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota
	// StateOpen rejects calls until the reset timeout passes.
	StateOpen
	// StateHalfOpen lets one trial call through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling through while the circuit is open.
var ErrCircuitOpen = eris.New("resilience: circuit open")

// BreakerConfig controls a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive transient failures that
	// opens the circuit. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a trial call.
	// Default: 30s.
	ResetTimeout time.Duration

	// OnStateChange is called with the lock held; keep it cheap.
	OnStateChange func(from, to State)
}

// Breaker counts consecutive transient failures. Provider-reported errors
// mean the provider answered, so they count as successes.
type Breaker struct {
	cfg BreakerConfig

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Call runs fn through b. A nil breaker calls fn directly.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	if b == nil {
		return fn(ctx)
	}
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State returns the current state. An open circuit past its reset timeout
// reports half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}
	if b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		b.transition(StateHalfOpen)
		return nil
	}
	return ErrCircuitOpen
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !IsTransient(err) {
		b.consecutiveFailures = 0
		if b.state == StateHalfOpen {
			b.transition(StateClosed)
		}
		return
	}

	b.consecutiveFailures++
	switch {
	case b.state == StateHalfOpen:
		b.openedAt = b.now()
		b.transition(StateOpen)
	case b.state == StateClosed && b.consecutiveFailures >= b.cfg.FailureThreshold:
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
