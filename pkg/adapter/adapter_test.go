package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/toolroute/pkg/config"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "rate limited", err: &ModelCallError{Status: http.StatusTooManyRequests}, want: true},
		{name: "server error", err: &ModelCallError{Status: http.StatusBadGateway}, want: true},
		{name: "bad request", err: &ModelCallError{Status: http.StatusBadRequest}, want: false},
		{name: "temporary flag", err: &ModelCallError{Temporary: true}, want: true},
		{name: "wrapped", err: fmt.Errorf("round 2: %w", &ModelCallError{Status: 503}), want: true},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestModelCallErrorMessage(t *testing.T) {
	assert.Equal(t, "model call failed (status=500): oops", (&ModelCallError{Status: 500, Body: "oops"}).Error())
	assert.Equal(t, "model call failed (status=404)", (&ModelCallError{Status: 404}).Error())
	assert.Equal(t, "model call failed: dial", (&ModelCallError{Err: errors.New("dial")}).Error())

	inner := errors.New("inner")
	assert.ErrorIs(t, &ModelCallError{Err: inner}, inner)
}

func TestMockAdapterScriptedReplies(t *testing.T) {
	boom := &ModelCallError{Status: 500}
	m := NewMockAdapterWithReplies(
		MockReply{Content: "first"},
		MockReply{Err: boom},
	)

	resp, err := m.Complete(context.Background(), Request{Model: "x", User: "one"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	_, err = m.Complete(context.Background(), Request{User: "two"})
	assert.ErrorIs(t, err, boom)

	resp, err = m.Complete(context.Background(), Request{User: "three"})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, `"next_thought_needed":false`)
	assert.Equal(t, "mock-1", resp.Model)

	reqs := m.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "two", reqs[1].User)
	assert.Equal(t, 3, m.Calls())
}

func TestMockAdapterHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockAdapter().Complete(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimitedWaitsForToken(t *testing.T) {
	m := NewMockAdapterWithResponses("a", "b")
	limited := NewRateLimited(m, 1, 1)
	assert.Equal(t, "mock", limited.Name())

	_, err := limited.Complete(context.Background(), Request{})
	require.NoError(t, err)

	// the bucket is empty now; a short deadline cannot be met
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = limited.Complete(ctx, Request{})
	var callErr *ModelCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, 1, m.Calls())
}

func TestNewSelectsProvider(t *testing.T) {
	a, err := New(config.ModelConfig{Provider: config.ProviderMock})
	require.NoError(t, err)
	assert.Equal(t, "mock", a.Name())

	a, err = New(config.ModelConfig{Provider: config.ProviderOpenAI, BaseURL: "http://localhost:1/v1", RequestsPerSecond: 5})
	require.NoError(t, err)
	_, ok := a.(*RateLimited)
	assert.True(t, ok, "expected rate limited adapter, got %T", a)

	var cfgErr *config.ConfigurationError
	_, err = New(config.ModelConfig{Provider: config.ProviderAnthropic})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "model.api_key", cfgErr.Field)

	_, err = New(config.ModelConfig{Provider: config.ProviderGoogle})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "model.api_key", cfgErr.Field)

	_, err = New(config.ModelConfig{Provider: "smoke-signals"})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "model.provider", cfgErr.Field)
}
