package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// handleFeedIngest accepts a stored detection from a scan process and
// pushes it to the websocket feed. Detections below MEDIUM are accepted
// but not broadcast; dashboards only want the actionable band.
// POST /api/v1/feed
func (h *apiHandler) handleFeedIngest(c *gin.Context) {
	var d models.Detection
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed detection"})
		return
	}
	if d.ListingURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing_url required"})
		return
	}

	broadcast := models.MaxLevel(d.ThreatLevel, models.LevelMedium) == d.ThreatLevel
	if broadcast {
		h.hub.PublishDetection(d)
	}
	c.JSON(http.StatusAccepted, gin.H{"broadcast": broadcast})
}

// FeedPublisher POSTs stored detections to a webhookd feed endpoint so
// the live dashboard sees scan output as it lands. Entirely optional;
// a dead daemon costs one bounded request per detection, nothing else.
type FeedPublisher struct {
	url    string
	token  string
	client *http.Client
}

func NewFeedPublisher(url, token string) *FeedPublisher {
	return &FeedPublisher{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Publish delivers one detection, best-effort. Failures are logged once
// and never propagate into the scan pipeline.
func (p *FeedPublisher) Publish(d models.Detection) {
	payload, err := json.Marshal(d)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("[Feed] Publish to %s failed: %v", p.url, err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("[Feed] Publish to %s rejected: HTTP %d", p.url, resp.StatusCode)
	}
}
