package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Config carries everything the webhook daemon's router needs.
type Config struct {
	// VerificationToken and EndpointURL configure the eBay account
	// deletion challenge. Both must match the values registered in the
	// eBay developer portal.
	VerificationToken string
	EndpointURL       string

	// SummaryDir is where scan runs drop their summary artifacts.
	SummaryDir string
}

type apiHandler struct {
	cfg Config
	hub *Hub
}

// SetupRouter builds the webhookd HTTP surface: the eBay compliance
// endpoint, the live detection feed, and read-only run status.
func SetupRouter(cfg Config, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// CORS — configurable via ALLOWED_ORIGINS, comma separated. Empty
	// means allow-all, which is fine for a feed of already-public data.
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &apiHandler{cfg: cfg, hub: wsHub}
	deletion := newEbayDeletionHandler(cfg.VerificationToken, cfg.EndpointURL)
	limiter := NewRateLimiter(60, 10)

	// The compliance endpoint must stay reachable without auth: eBay's
	// validator sends unauthenticated requests.
	r.GET("/webhooks/ebay/account-deletion", deletion.handleChallenge)
	r.POST("/webhooks/ebay/account-deletion", deletion.handleNotification)

	r.GET("/health", handler.handleHealth)
	r.GET("/ws/feed", wsHub.Subscribe)

	api := r.Group("/api/v1", limiter.Middleware(), AuthMiddleware())
	{
		api.GET("/runs", handler.handleRuns)
		api.POST("/feed", handler.handleFeedIngest)
	}

	return r
}

func (h *apiHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "operational",
		"service": "marketwatch webhook daemon",
		"capabilities": gin.H{
			"ebay_account_deletion": h.cfg.VerificationToken != "",
			"live_feed":             true,
			"run_summaries":         h.cfg.SummaryDir != "",
		},
	})
}

// handleRuns lists recent scan run summaries, newest first.
// GET /api/v1/runs?limit=20
func (h *apiHandler) handleRuns(c *gin.Context) {
	if h.cfg.SummaryDir == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no summary directory configured"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 200 {
		limit = 20
	}

	matches, err := filepath.Glob(filepath.Join(h.cfg.SummaryDir, "*_run_*.json"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list summaries"})
		return
	}
	// Timestamps embed in the filenames, so lexical descending is
	// chronological descending per domain.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	if len(matches) > limit {
		matches = matches[:limit]
	}

	var runs []json.RawMessage
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil || !json.Valid(data) {
			continue
		}
		runs = append(runs, json.RawMessage(data))
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}
