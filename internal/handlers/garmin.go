package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/davidesra/fittrack/internal/custody"
	"github.com/davidesra/fittrack/internal/garmin"
	"github.com/davidesra/fittrack/internal/metrics"
	"github.com/davidesra/fittrack/internal/middleware"
	"github.com/davidesra/fittrack/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const settingsPath = "/settings"

// GarminHandler exposes the Garmin connect flow and the activity sync
// trigger.
type GarminHandler struct {
	garminService *services.GarminService
	custody       custody.Custody
	metrics       metrics.Recorder
}

func NewGarminHandler(
	gs *services.GarminService,
	cust custody.Custody,
	m metrics.Recorder,
) *GarminHandler {
	return &GarminHandler{
		garminService: gs,
		custody:       cust,
		metrics:       m,
	}
}

// redirectSettingsError sends the browser back to the settings page with a
// human-readable error message.
func redirectSettingsError(c *gin.Context, message string) {
	c.Redirect(http.StatusFound, settingsPath+"?error="+url.QueryEscape(message))
}

// Connect starts the OAuth 1.0a handshake: obtains a request token, places
// the pair in custody, and redirects the browser to Garmin's authorization
// page. Requires an authenticated session (enforced by RequireAuth, which
// returns 401 JSON for this API path).
func (h *GarminHandler) Connect(c *gin.Context) {
	attempt, err := h.garminService.StartConnect(c.Request.Context())
	if err != nil {
		h.metrics.RecordGarminConnect(false)
		log.Printf("[Garmin] Request token failed: %v", err)
		redirectSettingsError(c, err.Error())
		return
	}

	if err := h.custody.Store(c, attempt.Token, attempt.Secret); err != nil {
		h.metrics.RecordGarminConnect(false)
		log.Printf("[Garmin] Failed to store custody: %v", err)
		redirectSettingsError(c, "Failed to start Garmin authorization. Please try again.")
		return
	}

	h.metrics.RecordGarminConnect(true)
	c.Redirect(http.StatusFound, attempt.AuthorizeURL)
}

// Callback completes the handshake after the user approves access on
// Garmin's site. Custody is cleared on every exit path: a connect attempt is
// single-use whether it succeeds or not.
func (h *GarminHandler) Callback(c *gin.Context) {
	// Not behind RequireAuth: this is a browser navigation from Garmin and
	// must answer with redirects, so the session is checked here.
	session := sessions.Default(c)
	userID, _ := session.Get(middleware.SessionUserID).(string)
	if userID == "" {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	// Clear must precede the redirect: once the redirect is rendered the
	// response headers are flushed and cookie changes stop taking effect.
	oauthToken := c.Query("oauth_token")
	oauthVerifier := c.Query("oauth_verifier")
	if oauthToken == "" || oauthVerifier == "" {
		h.metrics.RecordGarminCallback("missing_params")
		h.custody.Clear(c)
		redirectSettingsError(c, "Missing OAuth parameters")
		return
	}

	storedToken, storedSecret, err := h.custody.Retrieve(c)
	if err != nil || storedToken != oauthToken {
		// Custody miss, expired attempt, or a token that does not match the
		// one this browser started with. All rejected identically.
		h.metrics.RecordGarminCallback("mismatch")
		h.custody.Clear(c)
		redirectSettingsError(c, "Session expired. Please try connecting again.")
		return
	}

	err = h.garminService.CompleteConnect(
		c.Request.Context(), userID, storedToken, storedSecret, oauthVerifier,
	)
	if err != nil {
		h.metrics.RecordGarminCallback("upstream_error")
		log.Printf("[Garmin] Token exchange failed for user=%s: %v", userID, err)
		h.custody.Clear(c)
		redirectSettingsError(c, err.Error())
		return
	}

	h.metrics.RecordGarminCallback("connected")
	h.custody.Clear(c)
	c.Redirect(http.StatusFound, settingsPath+"?connected=true")
}

// Sync imports recent activities for the authenticated user.
func (h *GarminHandler) Sync(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	start := time.Now()
	result, err := h.garminService.Sync(c.Request.Context(), userID, time.Time{}, time.Time{})
	duration := time.Since(start)

	if err != nil {
		h.metrics.RecordGarminSync(false, 0, 0, duration)

		if errors.Is(err, garmin.ErrNotConnected) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "garmin_not_connected",
				"message":   "Connect your Garmin account first via Settings.",
				"connected": false,
			})
			return
		}

		log.Printf("[Garmin] Sync failed for user=%s: %v", userID, err)
		var upstream *garmin.UpstreamError
		if errors.As(err, &upstream) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "garmin_sync_failed",
				"details": upstream.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "garmin_sync_failed",
			"details": err.Error(),
		})
		return
	}

	h.metrics.RecordGarminSync(true, result.Synced, result.Total, duration)

	message := "Already up to date"
	if result.Synced > 0 {
		message = fmt.Sprintf("Synced %d new activities from Garmin", result.Synced)
	}
	c.JSON(http.StatusOK, gin.H{
		"synced":  result.Synced,
		"total":   result.Total,
		"message": message,
	})
}

// Status reports whether the user's Garmin account is connected. Token
// material is never included.
func (h *GarminHandler) Status(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	connected, connectedAt, err := h.garminService.Status(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	resp := gin.H{"connected": connected}
	if connectedAt != nil {
		resp["connected_at"] = connectedAt
	}
	c.JSON(http.StatusOK, resp)
}

// Disconnect removes the stored Garmin credentials.
func (h *GarminHandler) Disconnect(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	if err := h.garminService.Disconnect(c.Request.Context(), userID); err != nil {
		log.Printf("[Garmin] Disconnect failed for user=%s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}
