package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

func testDetection(url string) models.Detection {
	return models.Detection{
		EvidenceID:   "11111111-2222-3333-4444-555555555555",
		ObservedAt:   time.Now().UTC(),
		Platform:     models.PlatformEbay,
		ListingURL:   url,
		ListingTitle: "test listing",
		ThreatScore:  70,
		ThreatLevel:  models.LevelHigh,
	}
}

func TestRESTBackendClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   InsertResult
	}{
		{"Created", http.StatusCreated, `{"inserted":true}`, Inserted},
		{"Conflict Is Duplicate", http.StatusConflict, `{"error":"duplicate key"}`, Duplicate},
		{"Coded 400 Unique Violation", http.StatusBadRequest, `{"error":"violates unique constraint","code":"23505"}`, Duplicate},
		{"Unauthorized Is Fatal", http.StatusUnauthorized, `{"error":"bad token"}`, Fatal},
		{"Server Error Is Transient", http.StatusInternalServerError, `{"error":"boom"}`, Transient},
		{"Unknown 400 Is Fatal", http.StatusBadRequest, `{"error":"malformed row"}`, Fatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/detections" {
					t.Errorf("Unexpected path %s", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer secret" {
					t.Errorf("Missing bearer token")
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			b := NewRESTBackend(srv.URL, "secret")
			res, _ := b.InsertDetection(context.Background(), testDetection("https://x/1"))
			if res != tt.want {
				t.Errorf("InsertDetection = %s, want %s", res, tt.want)
			}
		})
	}
}

func TestAdapterRetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"inserted":true}`))
	}))
	defer srv.Close()

	a := NewAdapter(NewRESTBackend(srv.URL, "secret"), 0)
	res, err := a.Insert(context.Background(), testDetection("https://x/2"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if res != Inserted {
		t.Errorf("Insert = %s, want inserted after retries", res)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 attempts (2 failures + success), got %d", calls)
	}
}

func TestAdapterDoesNotRetryDuplicates(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	a := NewAdapter(NewRESTBackend(srv.URL, "secret"), 0)
	res, _ := a.Insert(context.Background(), testDetection("https://x/3"))
	if res != Duplicate {
		t.Fatalf("Insert = %s, want duplicate", res)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Duplicate must not be retried, got %d attempts", calls)
	}
}

func TestAdapterBackfillRules(t *testing.T) {
	now := time.Now().UTC()

	t.Run("Disabled Resets Stale Observations", func(t *testing.T) {
		a := NewAdapter(nil, 0)
		d := testDetection("https://x/4")
		d.ObservedAt = now.Add(-72 * time.Hour)

		got := a.applyBackfill(d)
		if now.Sub(got.ObservedAt) > time.Minute {
			t.Errorf("With backfill disabled, stale ObservedAt must reset to now; got %v", got.ObservedAt)
		}
		if got.Backfill {
			t.Errorf("Backfill flag must stay false when the window is disabled")
		}
	})

	t.Run("Window Clamps And Tags", func(t *testing.T) {
		a := NewAdapter(nil, 7)
		d := testDetection("https://x/5")
		d.ObservedAt = now.Add(-30 * 24 * time.Hour)

		got := a.applyBackfill(d)
		oldest := now.Add(-7 * 24 * time.Hour)
		if got.ObservedAt.Before(oldest.Add(-time.Minute)) {
			t.Errorf("ObservedAt %v older than the 7-day window edge %v", got.ObservedAt, oldest)
		}
		if !got.Backfill {
			t.Errorf("Observation older than 24h inside a window must be tagged backfill")
		}
	})

	t.Run("Recent Observation Untouched", func(t *testing.T) {
		a := NewAdapter(nil, 7)
		d := testDetection("https://x/6")
		d.ObservedAt = now.Add(-2 * time.Hour)

		got := a.applyBackfill(d)
		if !got.ObservedAt.Equal(d.ObservedAt) {
			t.Errorf("Recent observation must pass through unchanged")
		}
		if got.Backfill {
			t.Errorf("Recent observation must not be tagged backfill")
		}
	})
}

func TestDetectionJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(testDetection("https://x/7"))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	json.Unmarshal(data, &m)

	for _, key := range []string{"evidence_id", "listing_url", "threat_score", "threat_level", "observed_at"} {
		if _, ok := m[key]; !ok {
			t.Errorf("Detection JSON missing wire field %q", key)
		}
	}
}
