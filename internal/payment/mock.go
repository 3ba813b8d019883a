package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockProcessor is an in-memory processor for local runs and tests.
// Intents are created pending. By default they report succeeded on the first
// poll, standing in for the rider confirming on the client.
type MockProcessor struct {
	mu            sync.Mutex
	intents       map[string]*Intent
	confirmOnPoll bool
}

// NewMockProcessor creates a MockProcessor whose intents settle on the first poll.
func NewMockProcessor() *MockProcessor {
	return &MockProcessor{intents: make(map[string]*Intent), confirmOnPoll: true}
}

// NewManualMockProcessor creates a MockProcessor whose intents stay pending
// until Confirm is called.
func NewManualMockProcessor() *MockProcessor {
	return &MockProcessor{intents: make(map[string]*Intent)}
}

// Name returns the processor name.
func (p *MockProcessor) Name() string { return "mock" }

// CreateIntent records a pending intent.
func (p *MockProcessor) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := "pi_mock_" + uuid.New().String()
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       IntentStatusPending,
		Amount:       req.Amount,
		Currency:     req.Currency,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[id] = intent

	copy := *intent
	return &copy, nil
}

// GetIntent returns the intent, settling pending ones.
func (p *MockProcessor) GetIntent(ctx context.Context, id string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	if p.confirmOnPoll && intent.Status == IntentStatusPending {
		intent.Status = IntentStatusSucceeded
	}

	copy := *intent
	return &copy, nil
}

// Confirm marks a pending intent as paid, as the rider's client would.
func (p *MockProcessor) Confirm(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[id]
	if !ok {
		return ErrIntentNotFound
	}
	if intent.Status != IntentStatusPending {
		return fmt.Errorf("intent %s is %s", id, intent.Status)
	}
	intent.Status = IntentStatusSucceeded
	return nil
}

// CancelIntent cancels a pending intent. Paid intents cannot be cancelled.
func (p *MockProcessor) CancelIntent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[id]
	if !ok {
		return ErrIntentNotFound
	}
	switch intent.Status {
	case IntentStatusPending:
		intent.Status = IntentStatusCancelled
	case IntentStatusSucceeded:
		return ErrIntentNotCancellable
	}
	return nil
}
