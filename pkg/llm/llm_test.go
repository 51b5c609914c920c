package llm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/helios-ops/helios/pkg/errors"
	"github.com/helios-ops/helios/pkg/resilience"
)

func TestMockProvider(t *testing.T) {
	mock := &MockProvider{Response: "hello"}

	resp, err := mock.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("expected %q, got %q", "hello", resp.Content)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Errorf("expected 20 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestScriptedMockProvider(t *testing.T) {
	scripted := NewScriptedMockProvider("first", "second")

	for i, want := range []string{"first", "second"} {
		resp, err := scripted.Chat(context.Background(), ChatRequest{})
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if resp.Content != want {
			t.Errorf("call %d: expected %q, got %q", i, want, resp.Content)
		}
	}

	if _, err := scripted.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Error("expected error when responses are exhausted")
	}
	if scripted.CallCount != 3 {
		t.Errorf("expected 3 calls, got %d", scripted.CallCount)
	}
}

func TestProviderName(t *testing.T) {
	if name := ProviderName(&MockProvider{}); name != "mock" {
		t.Errorf("expected mock, got %q", name)
	}

	anonymous := struct{ Provider }{}
	if name := ProviderName(anonymous); name != "unknown" {
		t.Errorf("expected unknown, got %q", name)
	}
}

func TestResilientProviderRetries(t *testing.T) {
	attempts := 0
	flaky := &MockProvider{
		ChatFunc: func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			attempts++
			if attempts < 3 {
				return nil, fmt.Errorf("transient")
			}
			return &ChatResponse{Content: "recovered"}, nil
		},
	}

	p := NewResilient(flaky,
		WithRetryConfig(resilience.DefaultRetryConfig().
			WithMaxAttempts(3).
			WithInitialDelay(time.Millisecond)))

	resp, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestResilientProviderWrapsErrors(t *testing.T) {
	p := NewResilient(&FailingMockProvider{Err: fmt.Errorf("boom")},
		WithRetryConfig(resilience.DefaultRetryConfig().
			WithMaxAttempts(1).
			WithInitialDelay(time.Millisecond)))

	_, err := p.Chat(context.Background(), ChatRequest{})
	he := errors.AsHeliosError(err)
	if he == nil {
		t.Fatalf("expected HeliosError, got %v", err)
	}
	if he.Code != errors.CodeLLMError {
		t.Errorf("expected LLM_ERROR, got %s", he.Code)
	}
	if he.Context["provider"] != "mock" {
		t.Errorf("expected provider context, got %v", he.Context)
	}
}

func TestResilientProviderTripsBreaker(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Hour,
		Name:             "llm",
	})

	p := NewResilient(&FailingMockProvider{},
		WithRetryConfig(resilience.DefaultRetryConfig().
			WithMaxAttempts(3).
			WithInitialDelay(time.Millisecond)),
		WithCircuitBreaker(breaker))

	if _, err := p.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected error")
	}
	if breaker.State() != resilience.StateOpen {
		t.Errorf("expected open breaker, got %s", breaker.State())
	}
}
