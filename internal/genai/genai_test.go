package genai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   *openai.ChatCompletion
	err    error
	calls  int
	params []openai.ChatCompletionNewParams
}

func (m *mockChatService) New(_ context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.calls++
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func completion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}
}

func noBackoff() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Backoff = func(int) time.Duration { return 0 }
	return p
}

func TestComplete_Success(t *testing.T) {
	mock := &mockChatService{resp: completion(`{"nextStep":"main_menu"}`)}
	client := newClient([]chatService{mock}, Opts{Model: "test-model", Temperature: 0.2})

	out, err := client.Complete(context.Background(), "user prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != `{"nextStep":"main_menu"}` {
		t.Errorf("unexpected content %q", out)
	}
	if len(mock.params) != 1 || mock.params[0].Model != "test-model" || len(mock.params[0].Messages) != 1 {
		t.Errorf("unexpected request params: %+v", mock.params)
	}
}

func TestGeneratePrompt_IncludesSystemMessage(t *testing.T) {
	mock := &mockChatService{resp: completion("ok")}
	client := newClient([]chatService{mock}, Opts{})
	if _, err := client.GeneratePrompt(context.Background(), "persona", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.params[0].Messages) != 2 {
		t.Errorf("expected system and user messages, got %d", len(mock.params[0].Messages))
	}
	if mock.params[0].Model != DefaultModel {
		t.Errorf("expected default model, got %q", mock.params[0].Model)
	}
}

func TestComplete_ServiceError(t *testing.T) {
	mock := &mockChatService{err: errors.New("service failure")}
	client := newClient([]chatService{mock}, Opts{Retry: ptr(noBackoff())})
	_, err := client.Complete(context.Background(), "usr")
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("non-rate-limit errors must not be retried, got %d calls", mock.calls)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	mock := &mockChatService{resp: &openai.ChatCompletion{}}
	client := newClient([]chatService{mock}, Opts{})
	_, err := client.Complete(context.Background(), "usr")
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestComplete_RotatesKeyOnRateLimit(t *testing.T) {
	limited := &mockChatService{err: errors.New("429 Too Many Requests: rate limit reached")}
	healthy := &mockChatService{resp: completion("from second key")}
	client := newClient([]chatService{limited, healthy}, Opts{Retry: ptr(noBackoff())})

	out, err := client.Complete(context.Background(), "usr")
	if err != nil {
		t.Fatalf("expected rotation to succeed, got %v", err)
	}
	if out != "from second key" {
		t.Errorf("unexpected content %q", out)
	}
	if limited.calls != 1 || healthy.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", limited.calls, healthy.calls)
	}
	if client.ring.Current() != 1 {
		t.Errorf("ring should stay on the healthy key, got %d", client.ring.Current())
	}
}

func TestComplete_SingleKeyRateLimitNotRetried(t *testing.T) {
	limited := &mockChatService{err: errors.New("insufficient_quota")}
	client := newClient([]chatService{limited}, Opts{Retry: ptr(noBackoff())})
	if _, err := client.Complete(context.Background(), "usr"); err == nil {
		t.Fatal("expected error")
	}
	if limited.calls != 1 {
		t.Errorf("single key should not retry, got %d calls", limited.calls)
	}
}

// rateLimitedServer answers every request with 429 and counts the hits.
func rateLimitedServer(t *testing.T) *atomic.Int32 {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_BASE_URL", srv.URL+"/v1")
	return &hits
}

func TestNewClient_SingleKeyRateLimitHitsAPIOnce(t *testing.T) {
	hits := rateLimitedServer(t)
	client, err := NewClient(WithAPIKeys("sk-only"), WithRetryPolicy(noBackoff()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Complete(context.Background(), "usr")
	if !IsRateLimited(err) {
		t.Fatalf("err = %v, want rate limit", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("HTTP calls = %d, want 1", got)
	}
}

func TestNewClient_TwoKeysRateLimitHitsAPITwice(t *testing.T) {
	hits := rateLimitedServer(t)
	client, err := NewClient(WithAPIKeys("sk-one", "sk-two"), WithRetryPolicy(noBackoff()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Complete(context.Background(), "usr"); err == nil {
		t.Fatal("expected error")
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("HTTP calls = %d, want one per key", got)
	}
}

func TestComplete_GivesUpAfterMaxAttempts(t *testing.T) {
	a := &mockChatService{err: errors.New("429")}
	b := &mockChatService{err: errors.New("429")}
	client := newClient([]chatService{a, b}, Opts{Retry: ptr(noBackoff())})
	if _, err := client.Complete(context.Background(), "usr"); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if a.calls+b.calls != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", a.calls+b.calls)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	if _, err := NewClient(WithAPIKeys("", "  ")); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestNewClient_DeduplicatesKeys(t *testing.T) {
	c, err := NewClient(WithAPIKeys("sk-a", "sk-b", "sk-a"), WithModel("gpt-4o"), WithRateLimit(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ring.Len() != 2 || len(c.chats) != 2 {
		t.Errorf("expected 2 keys, got ring=%d chats=%d", c.ring.Len(), len(c.chats))
	}
	if c.limiter == nil || c.model != "gpt-4o" {
		t.Errorf("options not applied: limiter=%v model=%q", c.limiter, c.model)
	}
}

func TestKeyRingRotateWraps(t *testing.T) {
	r := NewKeyRing([]string{"a", "b", "c"})
	for _, want := range []int{1, 2, 0} {
		if got := r.Rotate(); got != want {
			t.Errorf("Rotate() = %d, want %d", got, want)
		}
	}
}

func TestRetryPolicyDoHonoursContext(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: func(int) time.Duration { return time.Hour }}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(context.Context, int) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryPolicyPermanentStops(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5}
	sentinel := errors.New("bad request")
	calls := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return Permanent(sentinel)
	})
	if err != sentinel || calls != 1 {
		t.Errorf("Do() = %v after %d calls", err, calls)
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := map[string]bool{
		"429 Too Many Requests":      true,
		"You exceeded your quota":    true,
		"Rate limit reached for gpt": true,
		"500 internal server error":  false,
	}
	for msg, want := range cases {
		if got := IsRateLimited(errors.New(msg)); got != want {
			t.Errorf("IsRateLimited(%q) = %v, want %v", msg, got, want)
		}
	}
	if IsRateLimited(nil) {
		t.Error("nil error is not rate limited")
	}
}

func ptr[T any](v T) *T { return &v }
