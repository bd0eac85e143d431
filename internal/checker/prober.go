package checker

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/likexian/whois"
)

const (
	ProbeLiveness     = "liveness"
	ProbeCertificate  = "certificate"
	ProbeRegistration = "domain_registration"
	ProbeOrigin       = "network_origin"
)

// ProbeError is the typed failure every probe returns instead of letting a
// network error escape.
type ProbeError struct {
	Probe string
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s probe: %v", e.Probe, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

func probeFailure(probe string, err error) *ProbeError {
	return &ProbeError{Probe: probe, Err: err}
}

type LivenessResult struct {
	Reachable  bool
	StatusCode int
	LatencyMS  int
	Outcome    string
	Err        string
}

type CertResult struct {
	Valid         bool
	DaysRemaining int
	ValidTo       string
}

type OriginResult struct {
	IPAddress string
	Hosting   string
}

// Probes is the probe set a reconciler drives. Implementations must convert
// every network failure into a LivenessResult or a *ProbeError.
type Probes interface {
	Liveness(ctx context.Context, rawURL string) LivenessResult
	Certificate(ctx context.Context, host string) (CertResult, error)
	DomainRegistration(ctx context.Context, host string) (string, error)
	NetworkOrigin(ctx context.Context, host string) (OriginResult, error)
}

type Options struct {
	LivenessTimeout time.Duration
	TLSTimeout      time.Duration
	WhoisTimeout    time.Duration
	DNSTimeout      time.Duration
	IPInfoURL       string

	// RootCAs overrides the system pool when verifying certificate chains.
	RootCAs *x509.CertPool
}

type hostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type whoisQuerier interface {
	Whois(domain string, servers ...string) (string, error)
}

// Prober is the network-backed implementation of Probes.
type Prober struct {
	opts     Options
	client   *http.Client
	resolver hostResolver
	whois    whoisQuerier
	now      func() time.Time
}

func NewProber(opts Options) *Prober {
	return &Prober{
		opts: opts,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		resolver: net.DefaultResolver,
		whois:    whois.NewClient().SetTimeout(opts.WhoisTimeout),
		now:      time.Now,
	}
}
