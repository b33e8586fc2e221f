package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"
	"net/url"

	"github.com/davidesra/fittrack/internal/auth"
	"github.com/davidesra/fittrack/internal/metrics"
	"github.com/davidesra/fittrack/internal/middleware"
	"github.com/davidesra/fittrack/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionOAuthState    = "oauth_state"
	sessionOAuthRedirect = "oauth_redirect"
)

// GoogleHandler handles sign-in with Google.
type GoogleHandler struct {
	provider    *auth.GoogleProvider
	userService *services.UserService
	baseURL     string
	metrics     metrics.Recorder
}

func NewGoogleHandler(
	provider *auth.GoogleProvider,
	us *services.UserService,
	baseURL string,
	m metrics.Recorder,
) *GoogleHandler {
	return &GoogleHandler{
		provider:    provider,
		userService: us,
		baseURL:     baseURL,
		metrics:     m,
	}
}

func generateRandomState(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func redirectLoginError(c *gin.Context, message string) {
	c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape(message))
}

// Login redirects the browser to Google's consent page with a fresh CSRF
// state stored in the session.
func (h *GoogleHandler) Login(c *gin.Context) {
	state, err := generateRandomState(32)
	if err != nil {
		log.Printf("[OAuth] Failed to generate state: %v", err)
		redirectLoginError(c, "Failed to initiate Google login. Please try again.")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionOAuthState, state)
	if redirect := c.Query("redirect"); redirect != "" && isRedirectSafe(redirect, h.baseURL) {
		session.Set(sessionOAuthRedirect, redirect)
	}
	if err := session.Save(); err != nil {
		log.Printf("[OAuth] Failed to save session: %v", err)
		redirectLoginError(c, "Failed to initiate Google login. Please try again.")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.provider.GetAuthURL(state))
}

// Callback completes the Google sign-in: validates state, exchanges the
// code, fetches the profile, and upserts the local user.
func (h *GoogleHandler) Callback(c *gin.Context) {
	session := sessions.Default(c)

	savedState := session.Get(sessionOAuthState)
	if savedState == nil || c.Query("state") != savedState.(string) {
		h.metrics.RecordOAuthCallback("google", false)
		redirectLoginError(c, "Login session expired or invalid. Please try again.")
		return
	}
	session.Delete(sessionOAuthState)

	token, err := h.provider.ExchangeCode(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.metrics.RecordOAuthCallback("google", false)
		log.Printf("[OAuth] Failed to exchange code: %v", err)
		redirectLoginError(c, "Failed to complete Google login. Please try again.")
		return
	}

	userInfo, err := h.provider.GetUserInfo(c.Request.Context(), token)
	if err != nil {
		h.metrics.RecordOAuthCallback("google", false)
		log.Printf("[OAuth] Failed to get user info: %v", err)
		redirectLoginError(c, "Failed to retrieve your Google profile. Please try again.")
		return
	}

	user, err := h.userService.AuthenticateWithGoogle(c.Request.Context(), userInfo)
	if err != nil {
		h.metrics.RecordOAuthCallback("google", false)
		log.Printf("[OAuth] Authentication failed: %v", err)
		redirectLoginError(c, "Unable to sign you in at this time. Please try again later.")
		return
	}

	session.Set(middleware.SessionUserID, user.ID)
	session.Set(SessionUsername, user.Username)

	redirectURL := "/"
	if saved := session.Get(sessionOAuthRedirect); saved != nil {
		redirectURL = saved.(string)
		session.Delete(sessionOAuthRedirect)
	}

	if err := session.Save(); err != nil {
		h.metrics.RecordOAuthCallback("google", false)
		log.Printf("[OAuth] Failed to save session: %v", err)
		redirectLoginError(c, "Failed to create session. Please try again.")
		return
	}

	h.metrics.RecordOAuthCallback("google", true)
	c.Redirect(http.StatusFound, redirectURL)
}
