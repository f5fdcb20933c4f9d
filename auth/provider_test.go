package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func tokenJSON(token string) string {
	return fmt.Sprintf(`{"access_token":%q,"token_type":"Bearer","expires_in":3600}`, token)
}

func newTestProvider(url string) *Provider {
	p := NewClientCredentials("id", "secret")
	p.conf.TokenURL = url
	p.retryBase = time.Millisecond
	return p
}

func TestStartAcquiresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, tokenJSON("tok-1"))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	token, ok := p.CurrentToken()
	if !ok {
		t.Fatal("CurrentToken() not ok after Start")
	}
	if token != "tok-1" {
		t.Errorf("CurrentToken() = %q; want tok-1", token)
	}
}

func TestStartRecoversAfterFailedInitialFetch(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Fail the whole first acquisition round, then recover.
		if calls.Add(1) <= defaultMaxTries {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, tokenJSON("tok-late"))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err == nil {
		t.Fatal("Start() error = nil; want error while the endpoint is down")
	}
	if _, ok := p.CurrentToken(); ok {
		t.Fatal("CurrentToken() ok = true right after a failed Start")
	}

	deadline := time.After(2 * time.Second)
	for {
		if token, ok := p.CurrentToken(); ok {
			if token != "tok-late" {
				t.Fatalf("CurrentToken() = %q; want tok-late", token)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("no token acquired after the endpoint recovered")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCurrentTokenAbsentBeforeStart(t *testing.T) {
	p := NewClientCredentials("id", "secret")
	if _, ok := p.CurrentToken(); ok {
		t.Error("CurrentToken() ok = true before Start; want false")
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, tokenJSON("tok-retry"))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	token, err := p.fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if token.AccessToken != "tok-retry" {
		t.Errorf("AccessToken = %q; want tok-retry", token.AccessToken)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("token endpoint called %d times; want 3", got)
	}
}

func TestFetchGivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	if _, err := p.fetch(context.Background()); err == nil {
		t.Fatal("fetch() error = nil; want error")
	}
	if got := calls.Load(); got != int32(p.maxTries) {
		t.Errorf("token endpoint called %d times; want %d", got, p.maxTries)
	}
}

func TestFetchDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_client"}`)
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	_, err := p.fetch(context.Background())
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("fetch() error = %v; want ErrBadCredentials", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("token endpoint called %d times; want 1", got)
	}
}
