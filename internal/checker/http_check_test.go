package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testOptions() Options {
	return Options{
		LivenessTimeout: 2 * time.Second,
		TLSTimeout:      2 * time.Second,
		WhoisTimeout:    2 * time.Second,
		DNSTimeout:      2 * time.Second,
	}
}

func TestLiveness_StatusCodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewProber(testOptions())

	tests := []struct {
		path          string
		wantReachable bool
		wantOutcome   string
		wantCode      int
	}{
		{"/ok", true, "2xx", 200},
		{"/moved", true, "2xx", 200},
		{"/missing", false, "4xx", 404},
		{"/broken", false, "5xx", 503},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			res := p.Liveness(context.Background(), srv.URL+tc.path)
			if res.Reachable != tc.wantReachable {
				t.Errorf("Reachable = %v, want %v (err %q)", res.Reachable, tc.wantReachable, res.Err)
			}
			if res.Outcome != tc.wantOutcome {
				t.Errorf("Outcome = %q, want %q", res.Outcome, tc.wantOutcome)
			}
			if res.StatusCode != tc.wantCode {
				t.Errorf("StatusCode = %d, want %d", res.StatusCode, tc.wantCode)
			}
			if res.Reachable && res.Err != "" {
				t.Errorf("reachable result carries error %q", res.Err)
			}
		})
	}
}

func TestLiveness_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	opts := testOptions()
	opts.LivenessTimeout = 50 * time.Millisecond
	p := NewProber(opts)

	res := p.Liveness(context.Background(), srv.URL)
	if res.Reachable {
		t.Fatal("slow endpoint reported reachable")
	}
	if res.Outcome != "timeout" {
		t.Errorf("Outcome = %q, want timeout", res.Outcome)
	}
}

func TestLiveness_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewProber(testOptions()).Liveness(context.Background(), url)
	if res.Reachable {
		t.Fatal("closed server reported reachable")
	}
	if res.Outcome != "error" || res.Err == "" {
		t.Errorf("got outcome %q err %q, want error with message", res.Outcome, res.Err)
	}
}

func TestLiveness_InvalidURL(t *testing.T) {
	res := NewProber(testOptions()).Liveness(context.Background(), "://nope")
	if res.Reachable || res.Outcome != "error" {
		t.Errorf("got %+v, want unreachable error", res)
	}
}
