package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSChannel publishes each alert as JSON for downstream consumers.
type NATSChannel struct {
	conn    *nats.Conn
	pub     publisher
	subject string
}

func NewNATSChannel(url, subject string) (*NATSChannel, error) {
	conn, err := nats.Connect(url, nats.Name("uptimeguard"))
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	return &NATSChannel{conn: conn, pub: conn, subject: subject}, nil
}

func (c *NATSChannel) Name() string { return "nats" }

func (c *NATSChannel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(msg.Alert)
	if err != nil {
		return fmt.Errorf("nats: marshal alert: %w", err)
	}
	if err := c.pub.Publish(c.subject, data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", c.subject, err)
	}
	return nil
}

func (c *NATSChannel) Close() {
	if c.conn != nil {
		_ = c.conn.Drain()
		c.conn.Close()
	}
}
