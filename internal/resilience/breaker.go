// Package resilience guards calls to optional downstream systems.
package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpen is returned by Do while the breaker rejects calls.
var ErrOpen = errors.New("resilience: circuit open")

// State of a Breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

var (
	breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "breaker_state",
		Help: "Current breaker state: 0=closed, 1=open, 2=half-open.",
	}, []string{"target"})
	breakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "breaker_transitions_total",
		Help: "Breaker state transitions.",
	}, []string{"target", "from", "to"})
	metricsOnce sync.Once
)

// MustRegisterMetrics registers the breaker collectors on reg once.
func MustRegisterMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(breakerState, breakerTransitions)
	})
}

// Breaker opens once the failure ratio over at least MinRequests calls
// reaches FailureRatio, rejects calls for OpenFor, then lets a single trial call
// through to decide whether to close again.
type Breaker struct {
	Target       string
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
	Logger       zerolog.Logger
	Now          func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// NewBreaker returns a closed breaker with sane fallbacks for unset limits.
func NewBreaker(target string, minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	b := &Breaker{
		Target:       strings.TrimSpace(target),
		MinRequests:  minRequests,
		FailureRatio: failureRatio,
		OpenFor:      openFor,
		Logger:       zerolog.Nop(),
	}
	breakerState.WithLabelValues(b.label()).Set(0)
	return b
}

// State reports the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn unless the breaker is open and records its outcome. Context
// cancellation by the caller is not counted as a failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if !b.allow(ctx) {
		return ErrOpen
	}
	err := fn(ctx)
	b.report(ctx, err == nil || errors.Is(err, context.Canceled))
	return err
}

func (b *Breaker) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Breaker) allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.OpenFor {
			return false
		}
		b.transition(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
	}
	return true
}

func (b *Breaker) report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transition(ctx, Closed)
		} else {
			b.transition(ctx, Open)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.MinRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.FailureRatio {
		b.transition(ctx, Open)
		return
	}
	if total > 2*b.MinRequests {
		// decay so old outcomes stop dominating
		b.successes = (b.successes + 1) / 2
		b.failures = (b.failures + 1) / 2
	}
}

func (b *Breaker) transition(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.failures, b.successes = 0, 0
	if next == Open {
		b.openedAt = b.now()
	}

	label := b.label()
	breakerState.WithLabelValues(label).Set(float64(next))
	breakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()

	evt := b.Logger.Warn()
	if next == Closed {
		evt = b.Logger.Info()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Str("target", label).Str("from", prev.String()).Str("to", next.String()).Msg("breaker_transition")
}

func (b *Breaker) label() string {
	if b.Target == "" {
		return "default"
	}
	return b.Target
}
