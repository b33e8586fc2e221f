package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	SessionUserID = "user_id"
)

// RequireAuth requires a logged-in session. API routes get a 401 JSON
// response; page routes get redirected to the sign-in page.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(SessionUserID)

		if userID == nil {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			} else {
				c.Redirect(http.StatusFound, "/login?redirect="+c.Request.URL.String())
			}
			c.Abort()
			return
		}

		c.Set(SessionUserID, userID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user's id from the request
// context. Only valid behind RequireAuth.
func CurrentUserID(c *gin.Context) string {
	if id, exists := c.Get(SessionUserID); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
