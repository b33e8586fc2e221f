package custody

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/davidesra/fittrack/internal/cache"

	"github.com/gin-gonic/gin"
)

const attemptCookie = "garmin_oauth_attempt"

// attempt is the cached pair for one in-flight connect.
type attempt struct {
	Token  string `json:"token"`
	Secret string `json:"secret"`
}

var _ Custody = (*CacheCustody)(nil)

// CacheCustody keeps the pair server-side in an expiring cache (memory or
// Redis), keyed by a random attempt id that travels in a single short-lived
// cookie. The browser never sees the request token secret.
type CacheCustody struct {
	cache  cache.Cache[attempt]
	ttl    time.Duration
	secure bool
}

func NewCacheCustody(c cache.Cache[attempt], ttl time.Duration, secure bool) *CacheCustody {
	return &CacheCustody{cache: c, ttl: ttl, secure: secure}
}

// NewMemoryCustody is a convenience constructor over an in-memory cache.
func NewMemoryCustody(ttl time.Duration, secure bool) *CacheCustody {
	return NewCacheCustody(cache.NewMemoryCache[attempt](), ttl, secure)
}

// NewRedisCustody builds custody over a Redis cache.
func NewRedisCustody(
	addr, password string,
	db int,
	ttl time.Duration,
	secure bool,
) (*CacheCustody, error) {
	redisCache, err := cache.NewRedisCache[attempt](addr, password, db, "custody:")
	if err != nil {
		return nil, err
	}
	return NewCacheCustody(redisCache, ttl, secure), nil
}

func newAttemptID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Store caches the pair under a fresh attempt id and points the browser at
// it. A prior attempt for the same browser is abandoned and left to expire.
func (cc *CacheCustody) Store(c *gin.Context, token, secret string) error {
	id, err := newAttemptID()
	if err != nil {
		return err
	}
	if err := cc.cache.Set(c.Request.Context(), id, attempt{Token: token, Secret: secret}, cc.ttl); err != nil {
		return err
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     attemptCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cc.ttl.Seconds()),
		HttpOnly: true,
		Secure:   cc.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Retrieve resolves the attempt cookie against the cache.
func (cc *CacheCustody) Retrieve(c *gin.Context) (string, string, error) {
	id, err := c.Cookie(attemptCookie)
	if err != nil || id == "" {
		return "", "", ErrNoAttempt
	}

	stored, err := cc.cache.Get(c.Request.Context(), id)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", "", ErrNoAttempt
	}
	if err != nil {
		return "", "", err
	}
	return stored.Token, stored.Secret, nil
}

// Clear deletes the cached attempt and expires the cookie.
func (cc *CacheCustody) Clear(c *gin.Context) {
	if id, err := c.Cookie(attemptCookie); err == nil && id != "" {
		_ = cc.cache.Delete(c.Request.Context(), id)
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     attemptCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cc.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
