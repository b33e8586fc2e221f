package custody

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	cookieToken  = "garmin_oauth_token"
	cookieSecret = "garmin_oauth_secret"
)

var _ Custody = (*CookieCustody)(nil)

// CookieCustody keeps the pair in two short-lived HttpOnly cookies. Nothing
// is held server-side, so expiry is enforced by the cookie MaxAge and the
// callback naturally lands with or without the values.
type CookieCustody struct {
	ttl    time.Duration
	secure bool // require HTTPS (production)
}

func NewCookieCustody(ttl time.Duration, secure bool) *CookieCustody {
	return &CookieCustody{ttl: ttl, secure: secure}
}

func (cc *CookieCustody) setCookie(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cc.secure,
		SameSite: http.SameSiteLaxMode, // Lax required for the provider redirect-back
	})
}

// Store sets both cookies, overwriting any prior attempt.
func (cc *CookieCustody) Store(c *gin.Context, token, secret string) error {
	maxAge := int(cc.ttl.Seconds())
	cc.setCookie(c, cookieToken, token, maxAge)
	cc.setCookie(c, cookieSecret, secret, maxAge)
	return nil
}

// Retrieve reads the pair from the request cookies.
func (cc *CookieCustody) Retrieve(c *gin.Context) (string, string, error) {
	token, err := c.Cookie(cookieToken)
	if err != nil || token == "" {
		return "", "", ErrNoAttempt
	}
	secret, err := c.Cookie(cookieSecret)
	if err != nil || secret == "" {
		return "", "", ErrNoAttempt
	}
	return token, secret, nil
}

// Clear expires both cookies on the response.
func (cc *CookieCustody) Clear(c *gin.Context) {
	cc.setCookie(c, cookieToken, "", -1)
	cc.setCookie(c, cookieSecret, "", -1)
}
