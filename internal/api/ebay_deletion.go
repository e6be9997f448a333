package api

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// eBay marketplace account deletion notifications. Any application
// holding eBay API credentials must expose this endpoint or lose API
// access: eBay validates it with a GET challenge and then POSTs a
// notification whenever a user requests account deletion.
//
// Validation: eBay sends ?challenge_code=X and expects
// hex(sha256(challengeCode + verificationToken + endpointURL)).

type ebayDeletionHandler struct {
	verificationToken string
	endpointURL       string
}

func newEbayDeletionHandler(verificationToken, endpointURL string) *ebayDeletionHandler {
	return &ebayDeletionHandler{
		verificationToken: verificationToken,
		endpointURL:       endpointURL,
	}
}

// handleChallenge answers eBay's endpoint validation GET.
func (h *ebayDeletionHandler) handleChallenge(c *gin.Context) {
	code := c.Query("challenge_code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing challenge_code"})
		return
	}

	sum := sha256.Sum256([]byte(code + h.verificationToken + h.endpointURL))
	c.JSON(http.StatusOK, gin.H{
		"challengeResponse": hex.EncodeToString(sum[:]),
	})
}

// handleNotification acknowledges a deletion notification. The engine
// stores no per-user eBay data, so acknowledging is the whole obligation;
// the username is logged for the compliance trail.
func (h *ebayDeletionHandler) handleNotification(c *gin.Context) {
	var payload struct {
		Notification struct {
			NotificationID string `json:"notificationId"`
			Data           struct {
				Username string `json:"username"`
				UserID   string `json:"userId"`
			} `json:"data"`
		} `json:"notification"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		// Acknowledge anyway: eBay retries on non-2xx and the payload
		// shape has changed before.
		log.Printf("[Compliance] Unparseable deletion notification: %v", err)
		c.Status(http.StatusOK)
		return
	}

	log.Printf("[Compliance] eBay account deletion notification %s acknowledged (user %s)",
		payload.Notification.NotificationID, payload.Notification.Data.UserID)
	c.Status(http.StatusOK)
}
