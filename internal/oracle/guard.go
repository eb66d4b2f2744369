package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sakif/memory-journal/internal/apperror"
)

// Operation names, used for breaker names, log fields and metric labels.
const (
	OpEmbed      = "embed"
	OpComplete   = "complete"
	OpTranscribe = "transcribe"
)

// Outcome labels reported to an Observer.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeRejected = "rejected"
)

// Observer receives one report per guarded call and every breaker state
// change. metrics.Registry implements it.
type Observer interface {
	ObserveOracleCall(op, outcome string, elapsed time.Duration)
	SetBreakerState(op string, state gobreaker.State)
}

type GuardConfig struct {
	// Timeout bounds embed and complete calls.
	Timeout time.Duration
	// TranscribeTimeout bounds transcription, which uploads whole recordings.
	TranscribeTimeout time.Duration
	// The breaker opens once at least MinRequests calls were made in the
	// current Interval and FailureRatio of them failed. It stays open for OpenTimeout.
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	OpenTimeout  time.Duration
}

func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Timeout:           10 * time.Second,
		TranscribeTimeout: 60 * time.Second,
		MinRequests:       5,
		FailureRatio:      0.6,
		Interval:          30 * time.Second,
		OpenTimeout:       30 * time.Second,
	}
}

// Guard decorates providers with a deadline and a circuit breaker per
// operation. Every error it returns matches apperror.ErrUpstream.
type Guard struct {
	embedder    Embedder
	completer   Completer
	transcriber Transcriber

	cfg      GuardConfig
	breakers map[string]*gobreaker.CircuitBreaker
	observer Observer
	logger   *slog.Logger
}

// NewGuard wraps the providers. observer may be nil.
func NewGuard(e Embedder, c Completer, t Transcriber, cfg GuardConfig, observer Observer, logger *slog.Logger) *Guard {
	g := &Guard{
		embedder:    e,
		completer:   c,
		transcriber: t,
		cfg:         cfg,
		breakers:    make(map[string]*gobreaker.CircuitBreaker),
		observer:    observer,
		logger:      logger,
	}
	for _, op := range []string{OpEmbed, OpComplete, OpTranscribe} {
		g.breakers[op] = g.newBreaker(op)
		if observer != nil {
			observer.SetBreakerState(op, gobreaker.StateClosed)
		}
	}
	return g
}

func (g *Guard) newBreaker(op string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "oracle-" + op,
		MaxRequests: 1,
		Interval:    g.cfg.Interval,
		Timeout:     g.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < g.cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= g.cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("oracle circuit breaker changed state",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			if g.observer != nil {
				g.observer.SetBreakerState(op, to)
			}
		},
		// A caller giving up is not the provider's fault, and an unconfigured
		// provider will never recover by waiting.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrNotConfigured)
		},
	})
}

func (g *Guard) Embed(ctx context.Context, text string) ([]float32, error) {
	return guarded(g, ctx, OpEmbed, g.cfg.Timeout, func(ctx context.Context) ([]float32, error) {
		return g.embedder.Embed(ctx, text)
	})
}

func (g *Guard) Complete(ctx context.Context, p Prompt) (string, error) {
	return guarded(g, ctx, OpComplete, g.cfg.Timeout, func(ctx context.Context) (string, error) {
		return g.completer.Complete(ctx, p)
	})
}

func (g *Guard) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	return guarded(g, ctx, OpTranscribe, g.cfg.TranscribeTimeout, func(ctx context.Context) (string, error) {
		return g.transcriber.Transcribe(ctx, audio, filename)
	})
}

// guarded runs fn under the operation's breaker with a deadline and maps the
// result to an outcome label and an apperror.Upstream error.
func guarded[T any](g *Guard, ctx context.Context, op string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := g.breakers[op].Execute(func() (any, error) {
		return fn(ctx)
	})

	outcome := OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = OutcomeRejected
	case errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeTimeout
	default:
		outcome = OutcomeError
	}
	if g.observer != nil {
		g.observer.ObserveOracleCall(op, outcome, time.Since(start))
	}

	if err != nil {
		g.logger.Debug("oracle call failed", "op", op, "outcome", outcome, "error", err)
		return zero, apperror.Upstream(op, err)
	}
	return out.(T), nil
}
