package idempotency

import (
	"context"
	"fmt"
	"time"
)

type exampleStore struct {
	values []bool
	index  int
}

func (s *exampleStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (s *exampleStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	result := false
	if s.index < len(s.values) {
		result = s.values[s.index]
	}
	s.index++
	return result, nil
}

func (s *exampleStore) IdempotencyKey(scope, id string) string {
	return "attest:idempotency:" + scope + ":" + id
}

func (s *exampleStore) Del(context.Context, ...string) error {
	return nil
}

type exampleHandler struct {
	scope   string
	manager *Manager
}

func (h *exampleHandler) handle(ctx context.Context, contentHash string) string {
	alreadyProcessed, _ := h.manager.CheckAndMarkProcessed(ctx, h.scope, contentHash)
	if alreadyProcessed {
		return "duplicate delivery"
	}
	return "recording event"
}

func ExampleManager_CheckAndMarkProcessed() {
	ctx := context.Background()
	store := &exampleStore{values: []bool{true, false}}
	manager, _ := NewManager(store, 24*time.Hour)
	handler := &exampleHandler{scope: "documentation", manager: manager}
	contentHash := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

	fmt.Println(handler.handle(ctx, contentHash))
	fmt.Println(handler.handle(ctx, contentHash))
	// Output:
	// recording event
	// duplicate delivery
}
