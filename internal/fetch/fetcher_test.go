package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testUA = "filingwatch-test ops@example.com"

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func noJitter(time.Duration) time.Duration { return 0 }

func newTestFetcher(sleeper *recordingSleeper, opts ...Option) *Fetcher {
	base := []Option{
		WithSleeper(sleeper.Sleep),
		WithJitterSource(noJitter),
	}
	return New(testUA, append(base, opts...)...)
}

func TestIsTransientStatus(t *testing.T) {
	transient := []int{429, 408, 500, 502, 503, 504}
	for _, code := range transient {
		if !IsTransientStatus(code) {
			t.Errorf("IsTransientStatus(%d) = false, want true", code)
		}
	}
	permanent := []int{200, 301, 400, 401, 403, 404, 410, 501}
	for _, code := range permanent {
		if IsTransientStatus(code) {
			t.Errorf("IsTransientStatus(%d) = true, want false", code)
		}
	}
}

func TestValidateUserAgent(t *testing.T) {
	tests := []struct {
		ua      string
		wantErr bool
	}{
		{"", true},
		{"   ", true},
		{"short", true},
		{"123456789", true},
		{"1234567890", false},
		{testUA, false},
	}
	for _, tt := range tests {
		err := ValidateUserAgent(tt.ua)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateUserAgent(%q) error = %v, wantErr %v", tt.ua, err, tt.wantErr)
		}
		if err != nil && !IsPrecondition(err) {
			t.Errorf("ValidateUserAgent(%q) returned %T, want *PreconditionError", tt.ua, err)
		}
	}
}

func TestGetMissingUserAgentMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	f := New("")
	_, err := f.Get(context.Background(), srv.URL, nil)
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no network calls, got %d", calls.Load())
	}
}

func TestGetSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := New(testUA).Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if gotUA != testUA {
		t.Errorf("User-Agent = %q, want %q", gotUA, testUA)
	}
}

func TestGetRetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, "busy")
			return
		}
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	resp, err := newTestFetcher(sleeper).Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}

	want := []time.Duration{350 * time.Millisecond, 700 * time.Millisecond, 1400 * time.Millisecond}
	got := sleeper.Delays()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestGetPermanentStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	resp, err := newTestFetcher(sleeper).Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if len(sleeper.Delays()) != 0 {
		t.Errorf("expected no sleeps, got %v", sleeper.Delays())
	}
}

func TestGetExhaustedTransientReturnsResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	resp, err := newTestFetcher(sleeper).Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("exhausted HTTP failure must not be an error, got %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if calls.Load() != DefaultMaxRetries+1 {
		t.Errorf("calls = %d, want %d", calls.Load(), DefaultMaxRetries+1)
	}
}

func TestGetNetworkErrorExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	sleeper := &recordingSleeper{}
	_, err := newTestFetcher(sleeper, WithMaxRetries(2)).Get(context.Background(), url, nil)
	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError, got %v", err)
	}
	if te.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", te.Attempts)
	}
	if len(sleeper.Delays()) != 2 {
		t.Errorf("sleeps = %d, want 2", len(sleeper.Delays()))
	}
}

func TestGetHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	resp, err := newTestFetcher(sleeper).Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	got := sleeper.Delays()
	if len(got) != 1 || got[0] != 3*time.Second {
		t.Errorf("delays = %v, want [3s]", got)
	}
}

func TestBackoffDelay(t *testing.T) {
	f := New(testUA, WithJitterSource(func(max time.Duration) time.Duration { return max - time.Millisecond }))

	tests := []struct {
		attempt    int
		retryAfter time.Duration
		want       time.Duration
	}{
		{0, 0, 350*time.Millisecond + 149*time.Millisecond},
		{1, 0, 700*time.Millisecond + 149*time.Millisecond},
		{3, 0, 2800*time.Millisecond + 149*time.Millisecond},
		{0, 2 * time.Second, 2 * time.Second},
		{3, time.Second, 2800*time.Millisecond + 149*time.Millisecond},
	}
	for _, tt := range tests {
		if got := f.backoffDelay(tt.attempt, tt.retryAfter); got != tt.want {
			t.Errorf("backoffDelay(%d, %s) = %s, want %s", tt.attempt, tt.retryAfter, got, tt.want)
		}
	}
}

func TestUniformJitterRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		j := uniformJitter(DefaultJitter)
		if j < 0 || j >= DefaultJitter {
			t.Fatalf("jitter %s out of [0, %s)", j, DefaultJitter)
		}
	}
	if uniformJitter(0) != 0 {
		t.Error("zero ceiling should produce zero jitter")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Duration
		wantOK bool
	}{
		{"", 0, false},
		{"5", 5 * time.Second, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseRetryAfter(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseRetryAfter(%q) = %s, %v; want %s, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestGetCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f := New(testUA, WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}))

	_, err := f.Get(ctx, srv.URL, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
