package adapter

import (
	"context"
	"sync"
)

// MockAdapter returns scripted responses for local runs and tests. Replies
// are consumed in order; once exhausted the default response repeats.
type MockAdapter struct {
	mu              sync.Mutex
	replies         []MockReply
	defaultResponse string
	requests        []Request
	Usage           *Usage
}

// MockReply is one scripted outcome: either Content or Err.
type MockReply struct {
	Content string
	Err     error
}

// NewMockAdapter creates a mock adapter whose every reply finishes a
// reasoning session in one round.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		defaultResponse: `{"thought":"mock response","next_thought_needed":false,"thought_number":1,"total_thoughts":1}`,
	}
}

// NewMockAdapterWithResponses creates a mock adapter that replies with each
// response in turn.
func NewMockAdapterWithResponses(responses ...string) *MockAdapter {
	m := NewMockAdapter()
	for _, r := range responses {
		m.replies = append(m.replies, MockReply{Content: r})
	}
	return m
}

// NewMockAdapterWithReplies creates a mock adapter from scripted replies,
// allowing errors to be injected.
func NewMockAdapterWithReplies(replies ...MockReply) *MockAdapter {
	m := NewMockAdapter()
	m.replies = append(m.replies, replies...)
	return m
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Complete records the request and returns the next scripted reply.
func (a *MockAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ModelCallError{Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests = append(a.requests, req)
	reply := MockReply{Content: a.defaultResponse}
	if len(a.replies) > 0 {
		reply = a.replies[0]
		a.replies = a.replies[1:]
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	model := req.Model
	if model == "" {
		model = "mock-1"
	}
	return &Response{Content: reply.Content, Model: model, Usage: a.Usage}, nil
}

// Requests returns a copy of every request received so far.
func (a *MockAdapter) Requests() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Request, len(a.requests))
	copy(out, a.requests)
	return out
}

// Calls returns how many requests were received.
func (a *MockAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}
