package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewProxyFunc_Explicit(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure.local:3129", "internal.example")

	req, _ := http.NewRequest(http.MethodGet, "https://api.crossref.org/works", nil)
	u, err := proxy(req)
	if err != nil {
		t.Fatal(err)
	}
	if u == nil || u.Host != "secure.local:3129" {
		t.Errorf("expected https proxy, got %v", u)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://internal.example/x", nil)
	u, err = proxy(req)
	if err != nil {
		t.Fatal(err)
	}
	if u != nil {
		t.Errorf("expected no_proxy host to bypass proxy, got %v", u)
	}
}

func TestProductToken(t *testing.T) {
	tests := map[string]string{
		"Attributa/0.1 (+https://example.com)": "Attributa",
		"curl":                                 "curl",
		"":                                     "",
	}
	for in, want := range tests {
		if got := ProductToken(in); got != want {
			t.Errorf("ProductToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRobotsChecker_Allowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: Attributa\nDisallow: /private\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Attributa/0.1", NewHTTPClient(5*time.Second, "", "", ""))
	ctx := context.Background()

	allowed, err := checker.Allowed(ctx, server.URL+"/public/page")
	if err != nil || !allowed {
		t.Errorf("expected /public to be allowed, got %v (%v)", allowed, err)
	}

	allowed, err = checker.Allowed(ctx, server.URL+"/private/page")
	if err != nil || allowed {
		t.Errorf("expected /private to be disallowed, got %v (%v)", allowed, err)
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	checker := NewRobotsChecker("Attributa/0.1", NewHTTPClient(5*time.Second, "", "", ""))
	allowed, err := checker.Allowed(context.Background(), server.URL+"/anything")
	if err != nil || !allowed {
		t.Errorf("expected allow when robots.txt is missing, got %v (%v)", allowed, err)
	}
}
