package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/MimoJanra/UptimeGuard/internal/models"
)

const telegramAPIBase = "https://api.telegram.org"

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}

type TelegramChannel struct {
	client  *http.Client
	apiBase string
	token   string
	chatID  string
}

func NewTelegramChannel(token, chatID string) *TelegramChannel {
	return &TelegramChannel{
		client:  newHTTPClient(),
		apiBase: telegramAPIBase,
		token:   token,
		chatID:  chatID,
	}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, msg Message) error {
	if c.token == "" || c.chatID == "" {
		return fmt.Errorf("telegram token and chat_id are required")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)
	payload := map[string]interface{}{
		"chat_id":    c.chatID,
		"text":       formatTelegramMessage(msg),
		"parse_mode": "HTML",
	}
	return postJSON(ctx, c.client, "telegram", url, payload)
}

type SlackChannel struct {
	client     *http.Client
	webhookURL string
}

func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{
		client:     newHTTPClient(),
		webhookURL: webhookURL,
	}
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Send(ctx context.Context, msg Message) error {
	if c.webhookURL == "" {
		return fmt.Errorf("slack webhook_url is required")
	}
	payload := map[string]interface{}{
		"text": formatSlackMessage(msg),
	}
	return postJSON(ctx, c.client, "slack", c.webhookURL, payload)
}

func postJSON(ctx context.Context, client *http.Client, channel, url string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create %s request: %w", channel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s message: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API returned status %d", channel, resp.StatusCode)
	}
	return nil
}

func alertEmoji(kind models.AlertKind) string {
	switch kind {
	case models.AlertStatusDown:
		return "❌"
	case models.AlertStatusUp:
		return "✅"
	default:
		return "⚠️"
	}
}

func formatTelegramMessage(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s %s</b>\n\n", alertEmoji(msg.Alert.Kind), html.EscapeString(msg.Subject))
	fmt.Fprintf(&b, "<b>URL:</b> %s\n", html.EscapeString(msg.Alert.URL))
	fmt.Fprintf(&b, "<b>Alert:</b> %s\n", msg.Alert.Kind)
	if msg.Alert.DaysRemaining != 0 {
		fmt.Fprintf(&b, "<b>Days remaining:</b> %d\n", msg.Alert.DaysRemaining)
	}
	fmt.Fprintf(&b, "<b>Time:</b> %s", msg.Alert.At.UTC().Format(time.RFC3339))
	return b.String()
}

func formatSlackMessage(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n", alertEmoji(msg.Alert.Kind), msg.Subject)
	fmt.Fprintf(&b, "*URL:* %s\n", msg.Alert.URL)
	fmt.Fprintf(&b, "*Alert:* %s\n", msg.Alert.Kind)
	if msg.Alert.DaysRemaining != 0 {
		fmt.Fprintf(&b, "*Days remaining:* %d\n", msg.Alert.DaysRemaining)
	}
	fmt.Fprintf(&b, "*Time:* %s", msg.Alert.At.UTC().Format(time.RFC3339))
	return b.String()
}
