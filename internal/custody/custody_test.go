package custody

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// storeContext runs Store against a fresh response recorder and returns the
// cookies it set.
func storeContext(t *testing.T, cust Custody, token, secret string) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/garmin/connect", nil)

	require.NoError(t, cust.Store(c, token, secret))
	return w.Result().Cookies()
}

// retrieveContext runs Retrieve with the given cookies attached to the
// request.
func retrieveContext(t *testing.T, cust Custody, cookies []*http.Cookie) (string, string, error) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/garmin/callback", nil)
	for _, cookie := range cookies {
		c.Request.AddCookie(cookie)
	}
	return cust.Retrieve(c)
}

func TestCookieCustodyRoundTrip(t *testing.T) {
	cust := NewCookieCustody(10*time.Minute, false)

	cookies := storeContext(t, cust, "T1", "TS1")
	require.Len(t, cookies, 2)
	for _, cookie := range cookies {
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, 600, cookie.MaxAge)
		assert.Equal(t, "/", cookie.Path)
	}

	token, secret, err := retrieveContext(t, cust, cookies)
	require.NoError(t, err)
	assert.Equal(t, "T1", token)
	assert.Equal(t, "TS1", secret)
}

func TestCookieCustodySecureFlag(t *testing.T) {
	cust := NewCookieCustody(10*time.Minute, true)
	for _, cookie := range storeContext(t, cust, "T1", "TS1") {
		assert.True(t, cookie.Secure)
	}
}

func TestCookieCustodyMissing(t *testing.T) {
	cust := NewCookieCustody(10*time.Minute, false)

	_, _, err := retrieveContext(t, cust, nil)
	assert.ErrorIs(t, err, ErrNoAttempt)

	// One cookie without the other is also an absent attempt.
	_, _, err = retrieveContext(t, cust, []*http.Cookie{
		{Name: "garmin_oauth_token", Value: "T1"},
	})
	assert.ErrorIs(t, err, ErrNoAttempt)
}

func TestCookieCustodyClear(t *testing.T) {
	cust := NewCookieCustody(10*time.Minute, false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/garmin/callback", nil)
	cust.Clear(c)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, cookie := range cookies {
		assert.Empty(t, cookie.Value)
		assert.Negative(t, cookie.MaxAge)
	}
}

func TestCacheCustodyRoundTrip(t *testing.T) {
	cust := NewMemoryCustody(10*time.Minute, false)

	cookies := storeContext(t, cust, "T1", "TS1")
	require.Len(t, cookies, 1)
	attemptCookie := cookies[0]
	assert.True(t, attemptCookie.HttpOnly)
	// The browser carries an opaque attempt id, never the secret itself.
	assert.NotContains(t, attemptCookie.Value, "TS1")

	token, secret, err := retrieveContext(t, cust, cookies)
	require.NoError(t, err)
	assert.Equal(t, "T1", token)
	assert.Equal(t, "TS1", secret)
}

func TestCacheCustodyExpiry(t *testing.T) {
	cust := NewMemoryCustody(time.Millisecond, false)

	cookies := storeContext(t, cust, "T1", "TS1")
	time.Sleep(5 * time.Millisecond)

	_, _, err := retrieveContext(t, cust, cookies)
	assert.ErrorIs(t, err, ErrNoAttempt)
}

func TestCacheCustodyClearDeletesAttempt(t *testing.T) {
	cust := NewMemoryCustody(10*time.Minute, false)
	cookies := storeContext(t, cust, "T1", "TS1")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/garmin/callback", nil)
	for _, cookie := range cookies {
		c.Request.AddCookie(cookie)
	}
	cust.Clear(c)

	// The cached pair is gone even if the browser replays the old cookie.
	_, _, err := retrieveContext(t, cust, cookies)
	assert.ErrorIs(t, err, ErrNoAttempt)
}

func TestCacheCustodyUnknownAttemptID(t *testing.T) {
	cust := NewMemoryCustody(10*time.Minute, false)

	_, _, err := retrieveContext(t, cust, []*http.Cookie{
		{Name: "garmin_oauth_attempt", Value: "deadbeef"},
	})
	assert.ErrorIs(t, err, ErrNoAttempt)
}
