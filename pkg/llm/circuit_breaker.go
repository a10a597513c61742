package llm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// CircuitState is the breaker state.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is wrapped by every rejection from Allow.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures before tripping.
	Threshold int `yaml:"threshold" env:"LLM_BREAKER_THRESHOLD" env-default:"5"`
	// ResetAfter is the open period before a trial call is allowed.
	ResetAfter time.Duration   `yaml:"reset_after" env:"LLM_BREAKER_RESET_AFTER" env-default:"30s"`
	Clock      clockwork.Clock `yaml:"-"`
}

// DefaultCircuitBreakerConfig trips after 5 failures and retries after 30s.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker stops calling a provider that keeps failing. After
// ResetAfter it lets exactly one trial call through (half-open); the trial's
// outcome closes or re-opens the circuit.
type CircuitBreaker struct {
	mu               sync.Mutex
	consecutiveFails int
	threshold        int
	resetAfter       time.Duration
	lastFailure      time.Time
	state            CircuitState
	clock            clockwork.Clock
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.Threshold <= 0 {
		config.Threshold = DefaultCircuitBreakerConfig().Threshold
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &CircuitBreaker{
		threshold:  config.Threshold,
		resetAfter: config.ResetAfter,
		state:      CircuitClosed,
		clock:      config.Clock,
	}
}

// Allow reports whether a call may proceed. Rejections wrap ErrCircuitOpen.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		since := cb.clock.Since(cb.lastFailure)
		if since > cb.resetAfter {
			cb.state = CircuitHalfOpen
			return nil
		}
		return fmt.Errorf("%w: provider failed %d times, last failure %v ago",
			ErrCircuitOpen, cb.consecutiveFails, since.Round(time.Second))
	default:
		return fmt.Errorf("%w: trial call in flight", ErrCircuitOpen)
	}
}

// RecordSuccess closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}

// RecordFailure counts a failure, tripping the circuit at the threshold or
// re-opening it when the half-open trial call failed.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = cb.clock.Now()

	if cb.state == CircuitHalfOpen || cb.consecutiveFails >= cb.threshold {
		cb.state = CircuitOpen
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutiveFails
}
