package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func TestHumanReadableSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1500, "1.5 kB"},
		{2_000_000, "2.0 MB"},
	}

	for _, tt := range tests {
		if got := humanReadableSize(tt.in); got != tt.want {
			t.Fatalf("humanReadableSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStaticRoutes(t *testing.T) {
	cfg := &Config{}
	errs := make(chan error, 8)

	mux := httprouter.New()
	registerHome(cfg, "/", gamePath, mux)
	mux.GET("/healthz", serveHealthCheck(cfg, errs))
	mux.GET("/version", serveVersion(cfg, errs))
	mux.GET("/assets/*filepath", serveAssets(cfg, errs))
	mux.GET("/favicon.svg", serveFavicons(cfg, errs))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	tests := []struct {
		path        string
		status      int
		contentType string
		body        string
	}{
		{path: "/", status: http.StatusTemporaryRedirect},
		{path: "/healthz", status: http.StatusOK, body: "Ok\n"},
		{path: "/version", status: http.StatusOK, body: "reach100 v" + releaseVersion + "\n"},
		{path: "/assets/reach100/app.js", status: http.StatusOK, contentType: "text/javascript; charset=utf-8"},
		{path: "/assets/reach100/missing.js", status: http.StatusNotFound},
		{path: "/favicon.svg", status: http.StatusOK, contentType: "image/svg+xml"},
	}

	for _, tt := range tests {
		resp, err := client.Get(srv.URL + tt.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tt.path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != tt.status {
			t.Fatalf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.status)
		}
		if tt.contentType != "" && resp.Header.Get("Content-Type") != tt.contentType {
			t.Fatalf("GET %s content type = %q", tt.path, resp.Header.Get("Content-Type"))
		}
		if tt.body != "" && string(body) != tt.body {
			t.Fatalf("GET %s body = %q", tt.path, body)
		}
		if !strings.Contains(resp.Header.Get("Content-Security-Policy"), "default-src 'self'") && tt.status == http.StatusOK {
			t.Fatalf("GET %s missing security headers", tt.path)
		}
	}
}
