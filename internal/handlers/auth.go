package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/davidesra/fittrack/internal/metrics"
	"github.com/davidesra/fittrack/internal/middleware"
	"github.com/davidesra/fittrack/internal/models"
	"github.com/davidesra/fittrack/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const SessionUsername = "username"

// isRedirectSafe validates that a post-login redirect target is safe to use.
// Only relative paths starting with "/" (but not "//") and absolute URLs on
// the same host as baseURL are accepted.
func isRedirectSafe(redirectURL, baseURL string) bool {
	if redirectURL == "" {
		return true
	}

	// Newlines would allow header injection.
	if strings.ContainsAny(redirectURL, "\r\n") {
		return false
	}

	if strings.HasPrefix(redirectURL, "/") {
		// Reject protocol-relative URLs like "//evil.com" and backslash
		// variations like "/\evil.com".
		if strings.HasPrefix(redirectURL, "//") {
			return false
		}
		if strings.Contains(redirectURL, "\\") {
			return false
		}
		return true
	}

	parsedRedirect, err := url.Parse(redirectURL)
	if err != nil {
		return false
	}
	if parsedRedirect.Scheme != "" && parsedRedirect.Scheme != "http" &&
		parsedRedirect.Scheme != "https" {
		return false
	}
	if parsedRedirect.Host != "" {
		parsedBase, err := url.Parse(baseURL)
		if err != nil {
			return false
		}
		if parsedRedirect.Host != parsedBase.Host {
			return false
		}
	}

	return true
}

type AuthHandler struct {
	userService *services.UserService
	baseURL     string
	metrics     metrics.Recorder
}

func NewAuthHandler(us *services.UserService, baseURL string, m metrics.Recorder) *AuthHandler {
	return &AuthHandler{
		userService: us,
		baseURL:     baseURL,
		metrics:     m,
	}
}

// Login handles the login form submission.
func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	redirectTo := c.PostForm("redirect")

	if !isRedirectSafe(redirectTo, h.baseURL) {
		redirectTo = ""
	}

	user, err := h.userService.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		h.metrics.RecordLogin(models.AuthSourceLocal, false)
		c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape("Invalid username or password"))
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserID, user.ID)
	session.Set(SessionUsername, user.Username)
	if err := session.Save(); err != nil {
		h.metrics.RecordLogin(models.AuthSourceLocal, false)
		c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape("Failed to create session"))
		return
	}

	h.metrics.RecordLogin(models.AuthSourceLocal, true)
	if redirectTo != "" {
		c.Redirect(http.StatusFound, redirectTo)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// Logout clears the session and redirects to login.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save session",
		})
		return
	}
	h.metrics.RecordLogout()
	c.Redirect(http.StatusFound, "/login")
}

// Me returns the authenticated user's profile. Credential material is
// excluded by the model's JSON tags.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
