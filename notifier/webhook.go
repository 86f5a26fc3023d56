// Package notifier pushes webhook alerts for critical security findings.
package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"gatewatch/logger"
)

type WebhookMessage struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
}

// SendAlert posts an alert to the configured webhook, asynchronously so
// the request path never waits on the alerting channel. A missing
// GATEWATCH_WEBHOOK_URL disables alerting entirely.
func SendAlert(msg string, severity string) {
	webhookURL := os.Getenv("GATEWATCH_WEBHOOK_URL")
	if webhookURL == "" {
		return
	}

	payload := WebhookMessage{
		Text:      fmt.Sprintf("[gatewatch alert] %s", msg),
		Timestamp: time.Now(),
		Severity:  severity,
	}

	data, _ := json.Marshal(payload)

	go func() {
		resp, err := http.Post(webhookURL, "application/json", bytes.NewBuffer(data))
		if err != nil {
			logger.Error("Failed to send webhook alert", "err", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			logger.Warn("Webhook returned non-OK status", "status", resp.Status)
		}
	}()
}
