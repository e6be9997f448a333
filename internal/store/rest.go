package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// RESTBackend speaks the store's HTTPS API: one POST per detection with
// bearer-token auth. The store answers {inserted:true} on success and a
// well-formed unique-violation error on duplicates; no sessions, no
// long-lived state beyond the pooled transport.
type RESTBackend struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRESTBackend(baseURL, apiKey string) *RESTBackend {
	return &RESTBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type insertResponse struct {
	Inserted bool   `json:"inserted"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
}

func (b *RESTBackend) InsertDetection(ctx context.Context, d models.Detection) (InsertResult, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return Fatal, fmt.Errorf("marshal detection: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/detections", bytes.NewReader(payload))
	if err != nil {
		return Fatal, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return Transient, fmt.Errorf("store request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Inserted, nil
	case resp.StatusCode == http.StatusConflict:
		return Duplicate, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Fatal, fmt.Errorf("store auth rejected (HTTP %d)", resp.StatusCode)
	case resp.StatusCode >= 500:
		return Transient, fmt.Errorf("store HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}

	// Some store deployments report unique violations as 400 with a coded
	// body instead of 409.
	var ir insertResponse
	if json.Unmarshal(body, &ir) == nil {
		if ir.Code == "23505" || strings.Contains(strings.ToLower(ir.Error), "duplicate") ||
			strings.Contains(strings.ToLower(ir.Error), "unique") {
			return Duplicate, nil
		}
	}
	return Fatal, fmt.Errorf("store HTTP %d: %s", resp.StatusCode, truncate(body, 200))
}

func (b *RESTBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("store health check: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (b *RESTBackend) Close() {
	b.client.CloseIdleConnections()
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
