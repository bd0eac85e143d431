package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MimoJanra/UptimeGuard/internal/checker"
	"github.com/MimoJanra/UptimeGuard/internal/hysteresis"
	"github.com/MimoJanra/UptimeGuard/internal/models"
)

// Outcome is the result of reconciling one target for one cycle.
type Outcome struct {
	Target  models.Target
	Changes models.TargetChanges
	Dirty   bool
	Alerts  []models.Alert

	// ProbeErrors holds the non-fatal failures of the post-liveness probes.
	ProbeErrors []error
}

// Reconciler merges probe results into a target and decides its alerts.
// It never writes; persistence belongs to the orchestrator.
type Reconciler struct {
	probes checker.Probes
	now    func() time.Time
}

func NewReconciler(probes checker.Probes) *Reconciler {
	return &Reconciler{probes: probes, now: time.Now}
}

// Reconcile probes snapshot and returns its next state. touchInterval is how
// stale the persisted last_checked may be before it alone makes the target
// dirty; zero writes it every cycle.
func (r *Reconciler) Reconcile(ctx context.Context, snapshot models.Target, touchInterval time.Duration) Outcome {
	now := r.now().UTC()
	next := snapshot.Clone()
	out := Outcome{}

	live := r.probes.Liveness(ctx, snapshot.URL)
	if live.Reachable {
		next.Status = models.StatusUp
		next.ResponseTimeMS = live.LatencyMS
		if snapshot.Status == models.StatusDown {
			out.Alerts = append(out.Alerts, newAlert(models.AlertStatusUp, snapshot, now))
		}
	} else {
		next.Status = models.StatusDown
		if snapshot.Status == models.StatusUp {
			out.Alerts = append(out.Alerts, newAlert(models.AlertStatusDown, snapshot, now))
		}
		slog.Debug("monitor: target unreachable", "url", snapshot.URL, "outcome", live.Outcome, "err", live.Err)
	}
	next.LastChecked = now

	if next.Status == models.StatusUp {
		alerts, errs := r.probeUp(ctx, snapshot, &next, now)
		out.Alerts = append(out.Alerts, alerts...)
		out.ProbeErrors = errs
	}

	out.Target = next
	out.Changes = diff(snapshot, next, touchInterval, now)
	out.Dirty = !out.Changes.Empty()
	return out
}

// probeUp runs the certificate, registration and origin probes concurrently
// and merges whatever succeeded into next.
func (r *Reconciler) probeUp(ctx context.Context, snapshot models.Target, next *models.Target, now time.Time) ([]models.Alert, []error) {
	u, err := url.Parse(snapshot.URL)
	if err != nil {
		return nil, []error{fmt.Errorf("parse url %q: %w", snapshot.URL, err)}
	}
	if u.Hostname() == "" {
		return nil, []error{fmt.Errorf("url %q has no host", snapshot.URL)}
	}
	hostname := u.Hostname()

	var (
		cert      checker.CertResult
		certErr   error
		expiry    string
		expiryErr error
		origin    checker.OriginResult
		originErr error
	)
	needExpiry := snapshot.DomainExpiry == ""
	needOrigin := snapshot.IPAddress == "" || snapshot.IPAddress == models.UnknownHosting

	var g errgroup.Group
	g.Go(func() error {
		cert, certErr = r.probes.Certificate(ctx, u.Host)
		return nil
	})
	if needExpiry {
		g.Go(func() error {
			expiry, expiryErr = r.probes.DomainRegistration(ctx, hostname)
			return nil
		})
	}
	if needOrigin {
		g.Go(func() error {
			origin, originErr = r.probes.NetworkOrigin(ctx, hostname)
			return nil
		})
	}
	_ = g.Wait()

	var (
		alerts []models.Alert
		errs   []error
	)

	if certErr != nil {
		errs = append(errs, certErr)
	} else {
		var sent30, sent10 bool
		if snapshot.Certificate != nil {
			sent30, sent10 = snapshot.Certificate.AlertSent30, snapshot.Certificate.AlertSent10
		}
		d := hysteresis.Evaluate(cert.DaysRemaining, sent30, sent10)
		next.Certificate = &models.Certificate{
			Valid:         cert.Valid,
			DaysRemaining: cert.DaysRemaining,
			ValidTo:       cert.ValidTo,
			AlertSent30:   d.AlertSent30,
			AlertSent10:   d.AlertSent10,
		}
		if kind, ok := sslAlertKind(d.Alert); ok {
			a := newAlert(kind, snapshot, now)
			a.DaysRemaining = cert.DaysRemaining
			alerts = append(alerts, a)
		}
	}

	if needExpiry {
		if expiryErr != nil {
			errs = append(errs, expiryErr)
		} else {
			next.DomainExpiry = expiry
		}
	}

	if needOrigin {
		if originErr != nil {
			errs = append(errs, originErr)
		} else {
			next.IPAddress = origin.IPAddress
			next.Hosting = origin.Hosting
		}
	}

	for _, e := range errs {
		slog.Debug("monitor: probe failed", "url", snapshot.URL, "err", e)
	}
	return alerts, errs
}

func sslAlertKind(a hysteresis.Alert) (models.AlertKind, bool) {
	switch a {
	case hysteresis.Tier30:
		return models.AlertSSLTier30, true
	case hysteresis.Tier10:
		return models.AlertSSLTier10, true
	default:
		return "", false
	}
}

func newAlert(kind models.AlertKind, t models.Target, now time.Time) models.Alert {
	return models.Alert{Kind: kind, TargetID: t.ID, URL: t.URL, At: now}
}

// diff compares field by field. last_checked rides along with any other
// change, and is written on its own only once the stored value is older than
// touchInterval.
func diff(prev, next models.Target, touchInterval time.Duration, now time.Time) models.TargetChanges {
	var c models.TargetChanges

	if next.Status != prev.Status {
		s := next.Status
		c.Status = &s
	}
	if next.ResponseTimeMS != prev.ResponseTimeMS {
		v := next.ResponseTimeMS
		c.ResponseTimeMS = &v
	}
	if !certEqual(prev.Certificate, next.Certificate) {
		cert := *next.Certificate
		c.Certificate = &cert
	}
	if next.DomainExpiry != prev.DomainExpiry {
		v := next.DomainExpiry
		c.DomainExpiry = &v
	}
	if next.IPAddress != prev.IPAddress {
		v := next.IPAddress
		c.IPAddress = &v
	}
	if next.Hosting != prev.Hosting {
		v := next.Hosting
		c.Hosting = &v
	}

	stale := prev.LastChecked.IsZero() || now.Sub(prev.LastChecked) >= touchInterval
	if !c.Empty() || stale {
		v := next.LastChecked
		c.LastChecked = &v
	}
	return c
}

// certEqual treats a certificate that disappeared as unchanged; the
// reconciler only ever replaces one.
func certEqual(a, b *models.Certificate) bool {
	switch {
	case b == nil:
		return true
	case a == nil:
		return false
	default:
		return *a == *b
	}
}
