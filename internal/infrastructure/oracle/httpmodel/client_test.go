package httpmodel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
	"github.com/kirillkom/neural-transliterator/internal/infrastructure/resilience"
)

func TestTranslateSendsBatchAndBeamSize(t *testing.T) {
	var captured translateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"translations":["к о т","к а т"],"scores":[-0.5,-0.1]}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", 2)
	texts, scores, err := client.Translate(context.Background(), []string{"c a t"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if captured.BeamSize != 2 || len(captured.Src) != 1 || captured.Src[0] != "c a t" {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if len(texts) != 2 || texts[1] != "к а т" || scores[1] != -0.1 {
		t.Fatalf("unexpected response: %v %v", texts, scores)
	}
}

func TestTranslateEmptyBatchSkipsRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	texts, scores, err := New(server.URL, 1).Translate(context.Background(), nil)
	if err != nil || texts != nil || scores != nil {
		t.Fatalf("unexpected result: %v %v %v", texts, scores, err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no request for empty batch")
	}
}

func TestTranslateIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown token", http.StatusBadRequest)
	}))
	defer server.Close()

	_, _, err := New(server.URL, 1).Translate(context.Background(), []string{"c a t"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "unknown token") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("4xx must not be reported as temporary: %v", err)
	}
}

func TestTranslateRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"translations":["кат"],"scores":[-0.1]}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	})
	client := NewWithOptions(server.URL, 1, Options{ResilienceExecutor: exec})

	texts, _, err := client.Translate(context.Background(), []string{"c a t"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if len(texts) != 1 || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected success on third call, got %v after %d calls", texts, calls)
	}
}

func TestTranslateMarksExhaustedRetriesTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1,
	})
	_, _, err := NewWithOptions(server.URL, 1, Options{ResilienceExecutor: exec}).Translate(context.Background(), []string{"c a t"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestTranslateRejectsMismatchedArrays(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"translations":["a","b"],"scores":[-0.1]}`))
	}))
	defer server.Close()

	_, _, err := New(server.URL, 2).Translate(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrLatticeShape) {
		t.Fatalf("expected lattice shape error, got %v", err)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := New(server.URL, 1).Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestTranslateMalformedReplyTripsBreakerWithoutRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`<html>model crashed</html>`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1,
		BreakerEnabled:      true,
		BreakerMinRequests:  1,
		BreakerFailureRatio: 1,
		BreakerOpenTimeout:  time.Minute,
	})
	client := NewWithOptions(server.URL, 1, Options{ResilienceExecutor: exec})

	_, _, err := client.Translate(context.Background(), []string{"c a t"})
	if !domain.IsKind(err, domain.ErrLatticeShape) {
		t.Fatalf("expected lattice shape error, got %v", err)
	}
	var malformed *MalformedReplyError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected malformed reply error, got %T", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("malformed reply must not be retried, got %d calls", got)
	}

	_, _, err = client.Translate(context.Background(), []string{"c a t"})
	if !resilience.IsCircuitOpen(err) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected open breaker as temporary error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("open breaker must not reach the model, got %d calls", got)
	}
}

func TestTranslateClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "beam_size too large", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    1,
		BreakerEnabled:      true,
		BreakerMinRequests:  1,
		BreakerFailureRatio: 1,
		BreakerOpenTimeout:  time.Minute,
	})
	client := NewWithOptions(server.URL, 1, Options{ResilienceExecutor: exec})

	for i := 0; i < 3; i++ {
		_, _, err := client.Translate(context.Background(), []string{"c a t"})
		var statusErr *HTTPStatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("call %d: expected 422 status error, got %v", i, err)
		}
		if domain.IsKind(err, domain.ErrTemporary) {
			t.Fatalf("call %d: 4xx must not be temporary", i)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected every call to reach the model, got %d", got)
	}
}

func TestDecodeReplyRejectsEmptyBody(t *testing.T) {
	var out translateResponse
	err := decodeReply("translate", strings.NewReader("  \n"), &out)
	var malformed *MalformedReplyError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected malformed reply, got %v", err)
	}
}

func TestClassifyOracleError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "service unavailable", err: &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, retryable: true, record: true},
		{name: "too many requests", err: &HTTPStatusError{StatusCode: http.StatusTooManyRequests}, retryable: true, record: true},
		{name: "not implemented", err: &HTTPStatusError{StatusCode: http.StatusNotImplemented}, retryable: false, record: false},
		{name: "bad request", err: &HTTPStatusError{StatusCode: http.StatusBadRequest}, retryable: false, record: false},
		{name: "malformed", err: &MalformedReplyError{Operation: "translate", Err: errors.New("eof")}, retryable: false, record: true},
		{name: "cancelled", err: context.Canceled, retryable: false, record: false},
	}
	for _, tc := range cases {
		got := classifyOracleError(tc.err)
		if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
			t.Fatalf("%s: classification = %+v", tc.name, got)
		}
	}
}
