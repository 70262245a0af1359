package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/attributa/internal/cache"
	"github.com/ppiankov/attributa/internal/worker"
)

func newCrossrefServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if got := r.URL.Query().Get("mailto"); got != "ops@example.org" {
			t.Errorf("mailto = %q", got)
		}
		switch r.URL.Path {
		case "/works/10.1038/nature14539":
			_, _ = w.Write([]byte(`{"status":"ok","message":{"DOI":"10.1038/nature14539","title":["Deep learning"],"publisher":"Springer","issued":{"date-parts":[[2015,5,27]]}}}`))
		case "/works/10.9999/missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCrossref(srv *httptest.Server, c cache.Cache) *Crossref {
	return NewCrossref(CrossrefOptions{
		BaseURL:  srv.URL,
		Mailto:   "ops@example.org",
		Client:   srv.Client(),
		Limiter:  worker.NewLimiter(0, 1),
		Cache:    c,
		CacheTTL: time.Minute,
	})
}

func TestCrossref_Resolve(t *testing.T) {
	var calls int32
	cr := newTestCrossref(newCrossrefServer(t, &calls), nil)

	rec, err := cr.Resolve(context.Background(), "10.1038/nature14539")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Found || rec.Title != "Deep learning" || rec.Year != 2015 || rec.Publisher != "Springer" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestCrossref_NotFound(t *testing.T) {
	var calls int32
	cr := newTestCrossref(newCrossrefServer(t, &calls), nil)

	rec, err := cr.Resolve(context.Background(), "10.9999/missing")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Found {
		t.Error("expected Found false for 404")
	}
}

func TestCrossref_ServerError(t *testing.T) {
	var calls int32
	cr := newTestCrossref(newCrossrefServer(t, &calls), nil)

	_, err := cr.Resolve(context.Background(), "10.1000/broken")
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestCrossref_CachesResults(t *testing.T) {
	var calls int32
	cr := newTestCrossref(newCrossrefServer(t, &calls), cache.NewMemoryCache(time.Minute, time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := cr.Resolve(context.Background(), "10.1038/nature14539"); err != nil {
			t.Fatal(err)
		}
		if _, err := cr.Resolve(context.Background(), "10.9999/missing"); err != nil {
			t.Fatal(err)
		}
	}
	// Misses are cached too
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 upstream calls, got %d", got)
	}
}

func TestEscapeDOI(t *testing.T) {
	if got := escapeDOI("10.1002/(SICI)1097 x"); got != "10.1002/%28SICI%291097%20x" {
		t.Errorf("escapeDOI = %q", got)
	}
}
