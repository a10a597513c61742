// Package retry runs fallible calls with jittered exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior. MaxRetries counts retries after the first
// attempt, so MaxRetries=2 allows three calls in total.
type Config struct {
	MaxRetries       int           `yaml:"max_retries" env:"RETRY_MAX_RETRIES" env-default:"2"`
	InitialDelay     time.Duration `yaml:"initial_delay" env:"RETRY_INITIAL_DELAY" env-default:"250ms"`
	MaxDelay         time.Duration `yaml:"max_delay" env:"RETRY_MAX_DELAY" env-default:"4s"`
	Multiplier       float64       `yaml:"multiplier" env:"RETRY_MULTIPLIER" env-default:"2"`
	JitterFactor     float64       `yaml:"jitter_factor" env:"RETRY_JITTER_FACTOR" env-default:"0.1"` // 0.0-1.0
	MaxSameErrorType int           `yaml:"max_same_error_type" env:"RETRY_MAX_SAME_ERROR_TYPE" env-default:"3"`
}

// DefaultConfig suits oracle calls: two retries starting at 250ms, capped at 4s.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       2,
		InitialDelay:     250 * time.Millisecond,
		MaxDelay:         4 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 3,
	}
}

// RetryableError is implemented by errors that know whether they are transient.
type RetryableError interface {
	error
	IsRetryable() bool
}

// retryablePatterns are matched against errors that do not implement RetryableError.
var retryablePatterns = []string{
	// connection
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"too many connections",
	"deadlock",
	"network is unreachable",
	"database is locked",
	// http
	"429",
	"500",
	"502",
	"503",
	"504",
	"rate limit",
	"service unavailable",
	"too many requests",
	"overloaded",
}

// IsRetryable reports whether err looks transient. Errors anywhere in the
// chain that implement RetryableError decide for themselves.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// errorClass buckets an error so repeated identical failures can be detected.
func errorClass(err error) string {
	errStr := strings.ToLower(err.Error())

	for _, code := range []string{"503", "502", "504", "500", "429"} {
		if strings.Contains(errStr, code) {
			return code
		}
	}
	switch {
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "connection reset"):
		return "connection"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "timed out"):
		return "timeout"
	case strings.Contains(errStr, "rate limit"), strings.Contains(errStr, "too many requests"):
		return "rate_limit"
	default:
		return "other"
	}
}

func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do calls fn until it succeeds, retrying every error.
func Do[T any](ctx context.Context, cfg *Config, fn func(ctx context.Context) (T, error)) (T, error) {
	return run(ctx, cfg, false, fn)
}

// DoIfRetryable calls fn, retrying only transient errors. Permanent errors are
// returned immediately. After MaxSameErrorType consecutive failures of the same
// class the error is treated as permanent.
func DoIfRetryable[T any](ctx context.Context, cfg *Config, fn func(ctx context.Context) (T, error)) (T, error) {
	return run(ctx, cfg, true, fn)
}

func run[T any](ctx context.Context, cfg *Config, onlyTransient bool, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var (
		result    T
		lastErr   error
		lastClass string
		sameCount int
	)
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn(ctx)
		if err == nil {
			return r, nil
		}
		result, lastErr = r, err

		if onlyTransient {
			if !IsRetryable(err) {
				return result, err
			}
			class := errorClass(err)
			if class == lastClass {
				sameCount++
				if cfg.MaxSameErrorType > 0 && sameCount >= cfg.MaxSameErrorType {
					return result, fmt.Errorf("repeated error (%d times, type=%s): %w", sameCount, class, err)
				}
			} else {
				lastClass, sameCount = class, 1
			}
		}

		if attempt == cfg.MaxRetries {
			break
		}

		timer := time.NewTimer(applyJitter(delay, cfg.JitterFactor))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return result, lastErr
}
