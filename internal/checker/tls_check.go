package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"
)

// Certificate dials host (":443" is appended when no port is given) and
// reports on the leaf certificate. The handshake skips verification so an
// expired or mis-issued certificate can still be inspected; chain and name
// verification happen afterwards and only affect Valid.
func (p *Prober) Certificate(ctx context.Context, host string) (CertResult, error) {
	address, serverName := tlsAddress(host)

	ctx, cancel := context.WithTimeout(ctx, p.opts.TLSTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config:    tlsConfigForHost(serverName),
	}
	netConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		if isTimeoutError(err) {
			return CertResult{}, probeFailure(ProbeCertificate, fmt.Errorf("tls dial %s: timeout: %w", address, err))
		}
		return CertResult{}, probeFailure(ProbeCertificate, fmt.Errorf("tls dial %s: %w", address, err))
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		return CertResult{}, probeFailure(ProbeCertificate, errors.New("no peer certificate presented"))
	}

	now := p.now()
	leaf := peerCerts[0]
	return CertResult{
		Valid:         now.Before(leaf.NotAfter) && p.verifyChain(peerCerts, serverName, now) == nil,
		DaysRemaining: daysUntil(leaf.NotAfter, now),
		ValidTo:       leaf.NotAfter.UTC().Format(time.RFC3339),
	}, nil
}

func tlsAddress(host string) (address, serverName string) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return host, h
	}
	// A bracketed IPv6 literal without a port, as url.URL.Host holds it.
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return net.JoinHostPort(host, "443"), host
}

func tlsConfigForHost(serverName string) *tls.Config {
	cfg := &tls.Config{InsecureSkipVerify: true} //nolint:gosec // verified manually after the handshake
	if serverName != "" && net.ParseIP(serverName) == nil {
		cfg.ServerName = serverName
	}
	return cfg
}

func (p *Prober) verifyChain(certs []*x509.Certificate, serverName string, now time.Time) error {
	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}
	_, err := certs[0].Verify(x509.VerifyOptions{
		DNSName:       serverName,
		Roots:         p.opts.RootCAs,
		Intermediates: intermediates,
		CurrentTime:   now,
	})
	return err
}

// daysUntil floors to whole days, so a certificate expiring later today is 0.
func daysUntil(notAfter, now time.Time) int {
	return int(math.Floor(notAfter.Sub(now).Hours() / 24))
}
