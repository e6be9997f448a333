package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

func detectionJSON(level models.ThreatLevel) string {
	d := models.Detection{
		EvidenceID:  "ev-1",
		Platform:    models.PlatformEbay,
		ListingURL:  "https://www.ebay.com/itm/12345",
		ThreatScore: 70,
		ThreatLevel: level,
	}
	payload, _ := json.Marshal(d)
	return string(payload)
}

func TestFeedIngestBroadcastsToSubscribers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	go hub.Run()
	srv := httptest.NewServer(SetupRouter(Config{}, hub))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/feed"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	// Registration happens just after the upgrade handshake.
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/v1/feed", "application/json",
		strings.NewReader(detectionJSON(models.LevelHigh)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Ingest status = %d, want 202", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Feed subscriber got nothing: %v", err)
	}

	var event struct {
		Type      string           `json:"type"`
		Detection models.Detection `json:"detection"`
	}
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatal(err)
	}
	if event.Type != "detection" {
		t.Errorf("Event type = %q, want detection", event.Type)
	}
	if event.Detection.ListingURL != "https://www.ebay.com/itm/12345" {
		t.Errorf("Detection URL = %q", event.Detection.ListingURL)
	}
}

func TestFeedIngestFiltersBelowMedium(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	go hub.Run()
	router := SetupRouter(Config{}, hub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feed",
		strings.NewReader(detectionJSON(models.LevelLow)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Status = %d, want 202 (accepted, not broadcast)", w.Code)
	}
	var resp struct {
		Broadcast bool `json:"broadcast"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Broadcast {
		t.Errorf("LOW detection must not reach the feed")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/feed", strings.NewReader("{not json"))
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Malformed body status = %d, want 400", w.Code)
	}
}

func TestFeedPublisherDeliversDetection(t *testing.T) {
	var gotAuth string
	var got models.Detection
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	pub := NewFeedPublisher(srv.URL, "secret-token")
	pub.Publish(models.Detection{
		EvidenceID:  "ev-2",
		ListingURL:  "https://www.ebay.com/itm/67890",
		ThreatLevel: models.LevelCritical,
	})

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want the bearer token", gotAuth)
	}
	if got.ListingURL != "https://www.ebay.com/itm/67890" {
		t.Errorf("Delivered URL = %q", got.ListingURL)
	}
}
