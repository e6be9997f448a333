package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// AlertManager fans high-severity detections out to configured webhook
// URLs. Delivery is fire-and-forget with one retry; the store row is the
// durable record, alerts are a convenience channel.
type AlertManager struct {
	urls     []string
	minLevel models.ThreatLevel
	client   *http.Client
}

func NewAlertManager(urls []string, minLevel models.ThreatLevel) *AlertManager {
	if minLevel == "" {
		minLevel = models.LevelHigh
	}
	return &AlertManager{
		urls:     urls,
		minLevel: minLevel,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify delivers the detection to every configured URL if it meets the
// severity floor. Blocking is bounded by the HTTP client timeout, so
// callers may invoke this inline from the detection pipeline.
func (m *AlertManager) Notify(d models.Detection) {
	if len(m.urls) == 0 {
		return
	}
	if models.MaxLevel(d.ThreatLevel, m.minLevel) != d.ThreatLevel {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"type":      "threat_alert",
		"detection": d,
	})
	if err != nil {
		return
	}

	for _, u := range m.urls {
		go m.deliver(u, payload)
	}
}

func (m *AlertManager) deliver(url string, payload []byte) {
	for attempt := 0; attempt < 2; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			cancel()
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.client.Do(req)
		cancel()
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 300 {
				return
			}
		}
		time.Sleep(2 * time.Second)
	}
	log.Printf("[Alerts] Webhook delivery to %s failed after retries", url)
}
