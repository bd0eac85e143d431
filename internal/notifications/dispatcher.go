// Package notifications renders alerts and fans them out to the configured
// delivery channels.
package notifications

import (
	"context"
	"log/slog"

	"github.com/MimoJanra/UptimeGuard/internal/config"
	"github.com/MimoJanra/UptimeGuard/internal/models"
)

type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Dispatcher delivers alerts to every channel it holds. Channel failures are
// logged, never returned.
type Dispatcher struct {
	dashboardURL string
	channels     []Channel
}

func NewDispatcher(dashboardURL string, channels ...Channel) *Dispatcher {
	return &Dispatcher{dashboardURL: dashboardURL, channels: channels}
}

// FromConfig builds a dispatcher with one channel per configured transport.
// Unconfigured transports are skipped; an unreachable NATS server is logged
// and skipped so the other channels still deliver.
func FromConfig(cfg config.NotificationsConfig) *Dispatcher {
	var channels []Channel

	if cfg.Mail.Enabled() {
		channels = append(channels, mailFromConfig(cfg.Mail))
	}
	if url := cfg.Slack.WebhookURL(); url != "" {
		channels = append(channels, NewSlackChannel(url))
	}
	if token := cfg.Telegram.Token(); token != "" && cfg.Telegram.ChatID != "" {
		channels = append(channels, NewTelegramChannel(token, cfg.Telegram.ChatID))
	}
	if cfg.NATS.URL != "" {
		nc, err := NewNATSChannel(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			slog.Warn("notifications: nats channel disabled", "err", err)
		} else {
			channels = append(channels, nc)
		}
	}

	return NewDispatcher(cfg.DashboardURL, channels...)
}

// Channels returns the names of the active channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, c := range d.channels {
		names = append(names, c.Name())
	}
	return names
}

// Dispatch reports whether at least one channel accepted the alert.
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.Alert) bool {
	if len(d.channels) == 0 {
		slog.Debug("notifications: no channels configured, alert dropped", "kind", alert.Kind, "url", alert.URL)
		return false
	}

	msg, err := Render(alert, d.dashboardURL)
	if err != nil {
		slog.Error("notifications: render failed", "kind", alert.Kind, "url", alert.URL, "err", err)
		return false
	}

	delivered := false
	for _, c := range d.channels {
		if err := c.Send(ctx, msg); err != nil {
			slog.Error("notifications: delivery failed",
				"channel", c.Name(), "kind", alert.Kind, "url", alert.URL, "err", err)
			continue
		}
		slog.Info("notifications: alert sent", "channel", c.Name(), "kind", alert.Kind, "url", alert.URL)
		delivered = true
	}
	return delivered
}

// Close releases channels holding connections.
func (d *Dispatcher) Close() {
	for _, c := range d.channels {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}
