package checker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// expiryFields lists WHOIS keys in the order registries are trusted.
var expiryFields = []string{
	"registry expiry date",
	"registrar registration expiration date",
	"expiration date",
	"expiry date",
	"expire date",
	"expires on",
	"paid-till",
	"free-date",
	"expires",
	"renewal date",
}

// DomainRegistration looks up the registrable domain of host over WHOIS and
// returns its expiry date as the registry printed it.
func (p *Prober) DomainRegistration(ctx context.Context, host string) (string, error) {
	domain, err := publicsuffix.EffectiveTLDPlusOne(strings.TrimSuffix(host, "."))
	if err != nil {
		return "", probeFailure(ProbeRegistration, fmt.Errorf("registrable domain of %q: %w", host, err))
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.WhoisTimeout)
	defer cancel()

	type reply struct {
		raw string
		err error
	}
	done := make(chan reply, 1)

	go func() {
		raw, err := p.whois.Whois(domain)
		done <- reply{raw: raw, err: err}
	}()

	var r reply
	select {
	case r = <-done:
	case <-ctx.Done():
		return "", probeFailure(ProbeRegistration, fmt.Errorf("whois %s: %w", domain, ctx.Err()))
	}
	if r.err != nil {
		return "", probeFailure(ProbeRegistration, fmt.Errorf("whois %s: %w", domain, r.err))
	}

	expiry, ok := ParseExpiry(r.raw)
	if !ok {
		return "", probeFailure(ProbeRegistration, errors.New("no expiry field in whois response for "+domain))
	}
	return expiry, nil
}

// ParseExpiry returns the value of the highest-priority expiry field present
// in a raw WHOIS response.
func ParseExpiry(raw string) (string, bool) {
	found := make(map[string]string, len(expiryFields))

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, seen := found[key]; !seen {
			found[key] = value
		}
	}

	for _, field := range expiryFields {
		if v, ok := found[field]; ok {
			return v, true
		}
	}
	return "", false
}
