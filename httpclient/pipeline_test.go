package httpclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/anyhttp/resilience"
)

// scriptedExecutor returns the queued outcomes in order, then 200s.
type scriptedExecutor struct {
	calls    atomic.Int32
	outcomes []error
}

func (e *scriptedExecutor) Execute(req *Request) (*Response, error) {
	n := int(e.calls.Add(1)) - 1
	if n < len(e.outcomes) && e.outcomes[n] != nil {
		return nil, e.outcomes[n]
	}
	return NewResponse(200, Header{}, req.URL, []byte("ok")), nil
}

func TestPipeline_CircuitBreakerOpens(t *testing.T) {
	tests := []struct {
		name  string
		fails error
	}{
		{"transport", NewTransportError(errors.New("connection refused"))},
		{"protocol", NewProtocolError(errors.New("malformed status line"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &scriptedExecutor{outcomes: []error{tt.fails, tt.fails}}
			cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "peer", MaxFailures: 2, Timeout: time.Hour})
			c := NewClient(exec, WithCircuitBreaker(cb))

			for i := 0; i < 2; i++ {
				if _, err := c.Get("http://api.example.test/").Send(); err == nil {
					t.Fatalf("attempt %d: expected failure", i)
				}
			}
			_, err := c.Get("http://api.example.test/").Send()
			if !errors.Is(err, resilience.ErrCircuitOpen) || !IsTransport(err) {
				t.Fatalf("expected transport error wrapping ErrCircuitOpen, got %v", err)
			}
			if n := exec.calls.Load(); n != 2 {
				t.Errorf("backend calls = %d, want 2", n)
			}
		})
	}
}

func TestPipeline_CircuitBreakerIgnoresStatusAndCancel(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []error{
		NewCanceledError(context.Canceled),
		NewCanceledError(context.Canceled),
	}}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour})
	c := NewClient(ExecutorFunc(func(req *Request) (*Response, error) {
		if _, err := exec.Execute(req); err != nil {
			return nil, err
		}
		return NewResponse(503, Header{}, req.URL, nil), nil
	}), WithCircuitBreaker(cb))

	for i := 0; i < 4; i++ {
		_, _ = c.Get("http://api.example.test/").Send()
	}
	if cb.State() != resilience.StateClosed || cb.Failures() != 0 {
		t.Errorf("state = %s, failures = %d", cb.State(), cb.Failures())
	}
}

func TestPipeline_CircuitBreakerAsync(t *testing.T) {
	boom := NewTransportError(errors.New("reset"))
	exec := &scriptedExecutor{outcomes: []error{boom}}
	cfg := Config{CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour}}
	c := NewAsyncClient(&goroutineExecutor{inner: exec}, cfg.Options()...)

	if _, err := c.Get("http://api.example.test/").Await(context.Background()); !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	_, err := c.Get("http://api.example.test/").Await(context.Background())
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if n := exec.calls.Load(); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}
}
