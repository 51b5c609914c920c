// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"

	"github.com/helios-ops/helios/pkg/errors"
	"github.com/helios-ops/helios/pkg/resilience"
	"github.com/helios-ops/helios/pkg/telemetry"
)

// ResilientProvider wraps a Provider with retries and a circuit breaker.
// All LLM traffic in Helios goes through this wrapper so transient
// upstream failures do not surface as task failures.
type ResilientProvider struct {
	inner   Provider
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	metrics *telemetry.TaskMetrics
}

// ResilientOption configures a ResilientProvider.
type ResilientOption func(*ResilientProvider)

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(rc resilience.RetryConfig) ResilientOption {
	return func(p *ResilientProvider) {
		p.retry = rc
	}
}

// WithCircuitBreaker overrides the default circuit breaker.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) ResilientOption {
	return func(p *ResilientProvider) {
		p.breaker = cb
	}
}

// WithMetrics attaches task metrics for call/token accounting.
func WithMetrics(m *telemetry.TaskMetrics) ResilientOption {
	return func(p *ResilientProvider) {
		p.metrics = m
	}
}

// NewResilient wraps inner with default retry and circuit breaker policies.
func NewResilient(inner Provider, opts ...ResilientOption) *ResilientProvider {
	p := &ResilientProvider{
		inner: inner,
		retry: resilience.DefaultRetryConfig(),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "llm",
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Chat implements Provider. Each attempt goes through the circuit breaker
// so that a string of failures trips the breaker across retries too.
func (p *ResilientProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp *ChatResponse

	err := p.retry.Do(ctx, func() error {
		return p.breaker.Call(ctx, func() error {
			var callErr error
			resp, callErr = p.inner.Chat(ctx, req)
			return callErr
		})
	})

	tokens := 0
	if resp != nil {
		tokens = resp.Usage.TotalTokens
	}
	p.metrics.RecordLLMCall(ctx, ProviderName(p.inner), err, tokens)

	if err != nil {
		if he, ok := err.(*errors.HeliosError); ok {
			return nil, he
		}
		return nil, errors.New(errors.CodeLLMError, "llm chat failed", err).
			WithContext("provider", ProviderName(p.inner)).
			WithRecoverable(true)
	}
	return resp, nil
}

// Name implements Named, reporting the wrapped provider's backend.
func (p *ResilientProvider) Name() string {
	return ProviderName(p.inner)
}

// BreakerState exposes the circuit breaker state for status endpoints.
func (p *ResilientProvider) BreakerState() resilience.CircuitBreakerState {
	return p.breaker.State()
}

var _ Provider = (*ResilientProvider)(nil)
