package checker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MimoJanra/UptimeGuard/internal/models"
)

type fakeResolver struct {
	addrs []string
	err   error
}

func (f fakeResolver) LookupHost(context.Context, string) ([]string, error) {
	return f.addrs, f.err
}

func ipInfoServer(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/93.184.216.34" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/json/%s"
}

func TestNetworkOrigin(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantHosting string
	}{
		{"isp label", 200, `{"status":"success","isp":"Edgecast Inc.","org":"EdgeCast"}`, "Edgecast Inc."},
		{"org fallback", 200, `{"status":"success","org":"Hetzner Online GmbH"}`, "Hetzner Online GmbH"},
		{"lookup failed status", 200, `{"status":"fail","message":"reserved range"}`, models.UnknownHosting},
		{"server error", 500, `oops`, models.UnknownHosting},
		{"garbage body", 200, `not json`, models.UnknownHosting},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions()
			opts.IPInfoURL = ipInfoServer(t, tc.status, tc.body)
			p := NewProber(opts)
			p.resolver = fakeResolver{addrs: []string{"2606:2800:220:1::1", "93.184.216.34"}}

			res, err := p.NetworkOrigin(context.Background(), "example.com")
			if err != nil {
				t.Fatalf("NetworkOrigin() error = %v", err)
			}
			if res.IPAddress != "93.184.216.34" {
				t.Errorf("IPAddress = %q, want the IPv4 address", res.IPAddress)
			}
			if res.Hosting != tc.wantHosting {
				t.Errorf("Hosting = %q, want %q", res.Hosting, tc.wantHosting)
			}
		})
	}
}

func TestNetworkOrigin_IPv6Only(t *testing.T) {
	p := NewProber(testOptions())
	p.resolver = fakeResolver{addrs: []string{"2606:2800:220:1::1"}}

	res, err := p.NetworkOrigin(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("NetworkOrigin() error = %v", err)
	}
	if res.IPAddress != "2606:2800:220:1::1" || res.Hosting != models.UnknownHosting {
		t.Errorf("got %+v", res)
	}
}

func TestNetworkOrigin_ResolveFailure(t *testing.T) {
	for _, r := range []fakeResolver{
		{err: errors.New("no such host")},
		{addrs: nil},
	} {
		p := NewProber(testOptions())
		p.resolver = r

		_, err := p.NetworkOrigin(context.Background(), "missing.invalid")
		var pe *ProbeError
		if !errors.As(err, &pe) || pe.Probe != ProbeOrigin {
			t.Errorf("error = %v, want origin ProbeError", err)
		}
	}
}
