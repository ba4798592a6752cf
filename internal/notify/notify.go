// Package notify delivers trade event alerts to a webhook. Delivery is
// fire-and-forget: failures are reported to the caller for logging but never
// stop the trading path.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier posts JSON alerts to a configured webhook URL. A notifier built
// with an empty URL is disabled and drops every alert silently.
type Notifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// New builds a notifier; an empty webhookURL disables it.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		enabled:    webhookURL != "",
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Enabled reports whether alerts will actually be sent.
func (n *Notifier) Enabled() bool { return n.enabled }

// Send posts one alert. Disabled notifiers return nil immediately.
func (n *Notifier) Send(title, message string) error {
	if !n.enabled {
		return nil
	}

	payload := map[string]any{
		"title":     title,
		"text":      message,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status: %d", resp.StatusCode)
	}
	return nil
}
