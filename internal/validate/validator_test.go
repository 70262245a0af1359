package validate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/attributa/internal/model"
)

func init() {
	sleepFunc = func(time.Duration) {}
}

func newTestValidator() *Validator {
	return NewValidator(Options{Timeout: 5 * time.Second, Workers: 4, UserAgent: "attributa-test"})
}

func TestValidator_Accessible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != "attributa-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2023 15:04:05 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := newTestValidator().ValidateOne(context.Background(), srv.URL)
	if !r.IsAccessible || r.IsDead || r.StatusCode != http.StatusOK {
		t.Errorf("unexpected result %+v", r)
	}
	if r.LastModified == nil {
		t.Error("expected Last-Modified to be parsed")
	}
}

func TestValidator_Dead(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusGone} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		}))

		r := newTestValidator().ValidateOne(context.Background(), srv.URL)
		if r.IsAccessible || !r.IsDead || r.StatusCode != code {
			t.Errorf("%d: unexpected result %+v", code, r)
		}
		srv.Close()
	}
}

func TestValidator_HeadNotAllowedFallsBackToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := newTestValidator().ValidateOne(context.Background(), srv.URL)
	if !r.IsAccessible {
		t.Errorf("expected GET fallback to succeed, got %+v", r)
	}
}

func TestValidator_Redirect(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()
	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusMovedPermanently)
	}))
	defer redirect.Close()

	r := newTestValidator().ValidateOne(context.Background(), redirect.URL)
	if !r.IsAccessible || r.RedirectURL != final.URL {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestValidator_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := newTestValidator().ValidateOne(context.Background(), srv.URL)
	if !r.IsAccessible {
		t.Errorf("expected success after retries, got %+v", r)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestValidator_NoRetryOn404(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	newTestValidator().ValidateOne(context.Background(), srv.URL)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestValidator_UnreachableIsDead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	r := newTestValidator().ValidateOne(context.Background(), addr)
	if r.IsAccessible || !r.IsDead || r.Error == "" {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestValidator_ValidateKeepsOrder(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer gone.Close()

	urls := []string{ok.URL + "/a", gone.URL + "/b", ok.URL + "/c"}
	results := newTestValidator().Validate(context.Background(), urls)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("results[%d].URL = %s, want %s", i, r.URL, urls[i])
		}
	}
	if !results[0].IsAccessible || !results[1].IsDead || !results[2].IsAccessible {
		t.Errorf("unexpected results %+v", results)
	}
}

func TestValidator_ValidateEmpty(t *testing.T) {
	if got := newTestValidator().Validate(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestValidator_ClassifiesAuthority(t *testing.T) {
	v := NewValidator(Options{Authority: &model.AuthorityConfig{DomainMap: map[string]string{"127.0.0.1": "secondary"}}})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if r := v.ValidateOne(context.Background(), srv.URL); r.Authority != model.TierSecondary {
		t.Errorf("Authority = %s, want secondary", r.Authority)
	}
}
