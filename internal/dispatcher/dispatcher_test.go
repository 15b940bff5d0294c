package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/circuitbreaker"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

type mockAttemptStore struct {
	mu       sync.Mutex
	attempts []domain.DeliveryAttempt
}

func (s *mockAttemptStore) InsertDeliveryAttempt(ctx context.Context, attempt domain.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *mockAttemptStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

// mockSender returns queued results in order, repeating the last one.
type mockSender struct {
	mu       sync.Mutex
	results  []WebhookResult
	requests []WebhookRequest
}

func (m *mockSender) Send(ctx context.Context, req WebhookRequest) WebhookResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	idx := len(m.requests) - 1
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	return m.results[idx]
}

func (m *mockSender) sent() []WebhookRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WebhookRequest(nil), m.requests...)
}

func testChange() domain.StatusChange {
	return domain.StatusChange{
		EventID:    "evt-1",
		From:       domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationNotStarted},
		To:         domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationOpen},
		Trigger:    domain.TriggerRegistrationOpen,
		OccurredAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func testDispatcher(store Store, sender WebhookSender) *Dispatcher {
	d := New(Config{
		WebhookURL: "https://notify.example.edu/hooks/status",
		Secret:     "s3cret",
		Timeout:    time.Second,
	}, store, sender)
	// No waiting between attempts in tests.
	d.backoff = []time.Duration{0, 0, 0, 0}
	return d
}

func TestDispatch_SuccessFirstAttempt(t *testing.T) {
	store := &mockAttemptStore{}
	sender := &mockSender{results: []WebhookResult{{StatusCode: 200}}}

	d := testDispatcher(store, sender)
	if err := d.Dispatch(context.Background(), testChange()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(sent))
	}
	if store.count() != 1 {
		t.Errorf("expected 1 recorded attempt, got %d", store.count())
	}

	p := sent[0].Payload
	if p.EventID != "evt-1" || p.NewSubStatus != "registration_open" || p.TriggerType != "registration_open" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if p.OccurredAt != "2025-03-10T12:00:00Z" {
		t.Errorf("occurred_at = %q, want RFC3339 UTC", p.OccurredAt)
	}
}

func TestDispatch_RetriesTransientFailure(t *testing.T) {
	store := &mockAttemptStore{}
	sender := &mockSender{results: []WebhookResult{
		{StatusCode: 503},
		{Error: errors.New("connection refused")},
		{StatusCode: 200},
	}}

	d := testDispatcher(store, sender)
	if err := d.Dispatch(context.Background(), testChange()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if got := len(sender.sent()); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if store.count() != 3 {
		t.Errorf("expected 3 recorded attempts, got %d", store.count())
	}
}

func TestDispatch_NonRetryableStopsEarly(t *testing.T) {
	store := &mockAttemptStore{}
	sender := &mockSender{results: []WebhookResult{{StatusCode: 400}}}

	d := testDispatcher(store, sender)
	if err := d.Dispatch(context.Background(), testChange()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if got := len(sender.sent()); got != 1 {
		t.Errorf("expected 1 attempt for a 400, got %d", got)
	}
}

func TestDispatch_ExhaustsRetries(t *testing.T) {
	store := &mockAttemptStore{}
	sender := &mockSender{results: []WebhookResult{{StatusCode: 500}}}

	d := testDispatcher(store, sender)
	if err := d.Dispatch(context.Background(), testChange()); err != nil {
		t.Fatalf("dispatch after exhausted retries must not error: %v", err)
	}

	if got := len(sender.sent()); got != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, got)
	}
}

func TestDispatch_NoWebhookConfigured(t *testing.T) {
	store := &mockAttemptStore{}
	sender := &mockSender{results: []WebhookResult{{StatusCode: 200}}}

	d := New(Config{}, store, sender)
	if err := d.Dispatch(context.Background(), testChange()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sender.sent()) != 0 {
		t.Error("sender called with no webhook configured")
	}
}

func TestDispatch_CircuitOpenSkipsDelivery(t *testing.T) {
	store := &mockAttemptStore{}
	sender := &mockSender{results: []WebhookResult{{StatusCode: 500}}}

	cb := circuitbreaker.New(2, time.Hour)
	d := testDispatcher(store, sender).WithBreaker(cb)

	// Two failing dispatches trip the breaker (each burns all attempts).
	_ = d.Dispatch(context.Background(), testChange())
	attemptsBefore := len(sender.sent())
	if attemptsBefore == 0 {
		t.Fatal("expected delivery attempts before the breaker opened")
	}

	// Breaker is now open: no further sends.
	_ = d.Dispatch(context.Background(), testChange())
	if got := len(sender.sent()); got != attemptsBefore {
		t.Errorf("breaker open but sender called: %d -> %d attempts", attemptsBefore, got)
	}
}

func TestRun_DrainsBufferedChangesOnShutdown(t *testing.T) {
	store := &mockAttemptStore{}
	sender := &mockSender{results: []WebhookResult{{StatusCode: 200}}}

	d := testDispatcher(store, sender)
	d.config.DrainTimeout = time.Second

	ch := make(chan domain.StatusChange, 4)
	for i := 0; i < 3; i++ {
		ch <- testChange()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled: Run should drain and return

	done := make(chan struct{})
	go func() {
		d.Run(ctx, ch)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after drain")
	}

	if got := len(sender.sent()); got != 3 {
		t.Errorf("drained %d changes, want 3", got)
	}
}

func TestWebhookResult_Classification(t *testing.T) {
	tests := []struct {
		name      string
		result    WebhookResult
		success   bool
		retryable bool
	}{
		{"200", WebhookResult{StatusCode: 200}, true, false},
		{"204", WebhookResult{StatusCode: 204}, true, false},
		{"400", WebhookResult{StatusCode: 400}, false, false},
		{"429", WebhookResult{StatusCode: 429}, false, true},
		{"500", WebhookResult{StatusCode: 500}, false, true},
		{"network error", WebhookResult{Error: errors.New("dial tcp")}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess = %v, want %v", got, tt.success)
			}
			if got := tt.result.IsRetryable(); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name string
		code int
		err  error
		want string
	}{
		{"success", 200, nil, "2xx"},
		{"client error", 404, nil, "4xx"},
		{"server error", 502, nil, "5xx"},
		{"timeout", 0, errors.New("context deadline exceeded"), "timeout"},
		{"refused", 0, errors.New("dial tcp: connection refused"), "connection_error"},
		{"other", 0, errors.New("tls handshake"), "other_error"},
		{"no code", 0, nil, "other_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(tt.code, tt.err); got != tt.want {
				t.Errorf("ClassifyStatus(%d, %v) = %q, want %q", tt.code, tt.err, got, tt.want)
			}
		})
	}
}
