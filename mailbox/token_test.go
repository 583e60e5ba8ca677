package mailbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenSource_CachesWithinLifetime(t *testing.T) {
	var refreshes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		n := atomic.AddInt32(&refreshes, 1)
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":3600}`, n)
	}))
	defer srv.Close()

	now := time.Now()
	ts := NewTokenSource("cid", "csecret", "rtoken")
	ts.TokenURL = srv.URL
	ts.HTTPClient = srv.Client()
	ts.Now = func() time.Time { return now }

	tok, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("first token: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("got %q", tok)
	}

	// Second call inside the cache lifetime: same token, no extra refresh.
	tok2, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("second token: %v", err)
	}
	if tok2 != "tok-1" || atomic.LoadInt32(&refreshes) != 1 {
		t.Fatalf("expected cached token, got %q after %d refreshes", tok2, refreshes)
	}

	// A 3600s token is cached for 55 minutes; step past that.
	now = now.Add(56 * time.Minute)
	tok3, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("third token: %v", err)
	}
	if tok3 != "tok-2" || atomic.LoadInt32(&refreshes) != 2 {
		t.Fatalf("expected exactly one more refresh, got %q after %d refreshes", tok3, refreshes)
	}
}

func TestTokenSource_RefreshFailureLeavesCacheUnchanged(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok-ok","expires_in":3600}`)
	}))
	defer srv.Close()

	ts := NewTokenSource("cid", "csecret", "rtoken")
	ts.TokenURL = srv.URL
	ts.HTTPClient = srv.Client()

	_, err := ts.Token(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
	if authErr.StatusCode != http.StatusBadRequest || !strings.Contains(authErr.Body, "invalid_grant") {
		t.Fatalf("auth error missing provider body: %+v", authErr)
	}

	// The failure must not poison the cache: the next call refreshes again.
	fail = false
	tok, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("recovery token: %v", err)
	}
	if tok != "tok-ok" {
		t.Fatalf("got %q", tok)
	}
}

func TestTokenSource_ConcurrentRefreshCollapses(t *testing.T) {
	var refreshes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, `{"access_token":"tok-shared","expires_in":3600}`)
	}))
	defer srv.Close()

	ts := NewTokenSource("cid", "csecret", "rtoken")
	ts.TokenURL = srv.URL
	ts.HTTPClient = srv.Client()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := ts.Token(context.Background())
			if err != nil {
				t.Errorf("token: %v", err)
				return
			}
			if tok != "tok-shared" {
				t.Errorf("got %q", tok)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&refreshes); got != 1 {
		t.Fatalf("expected a single collapsed refresh, got %d", got)
	}
}
