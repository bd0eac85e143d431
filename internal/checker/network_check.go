package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/MimoJanra/UptimeGuard/internal/models"
)

type ipInfoResponse struct {
	Status string `json:"status"`
	ISP    string `json:"isp"`
	Org    string `json:"org"`
}

// NetworkOrigin resolves host to its first address, preferring IPv4, and
// labels it with the hosting organisation. Only resolution failure is an
// error; a failed label lookup yields models.UnknownHosting.
func (p *Prober) NetworkOrigin(ctx context.Context, host string) (OriginResult, error) {
	ip, err := p.resolveFirst(ctx, host)
	if err != nil {
		return OriginResult{}, probeFailure(ProbeOrigin, err)
	}

	hosting, err := p.lookupHosting(ctx, ip)
	if err != nil {
		slog.Debug("checker: hosting lookup failed", "host", host, "ip", ip, "err", err)
		hosting = models.UnknownHosting
	}
	return OriginResult{IPAddress: ip, Hosting: hosting}, nil
}

func (p *Prober) resolveFirst(ctx context.Context, host string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.DNSTimeout)
	defer cancel()

	addrs, err := p.resolver.LookupHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("resolve %s: no addresses", host)
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a, nil
		}
	}
	return addrs[0], nil
}

func (p *Prober) lookupHosting(ctx context.Context, ip string) (string, error) {
	if p.opts.IPInfoURL == "" {
		return "", errors.New("no ip info endpoint configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.DNSTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(p.opts.IPInfoURL, ip), nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer closeResponseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip info returned status %d", resp.StatusCode)
	}

	var info ipInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode ip info: %w", err)
	}
	if info.Status != "" && !strings.EqualFold(info.Status, "success") {
		return "", fmt.Errorf("ip info status %q", info.Status)
	}

	switch {
	case info.ISP != "":
		return info.ISP, nil
	case info.Org != "":
		return info.Org, nil
	default:
		return "", errors.New("ip info carried no isp or org")
	}
}
