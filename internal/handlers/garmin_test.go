package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davidesra/fittrack/internal/custody"
	"github.com/davidesra/fittrack/internal/garmin"
	"github.com/davidesra/fittrack/internal/metrics"
	"github.com/davidesra/fittrack/internal/middleware"
	"github.com/davidesra/fittrack/internal/models"
	"github.com/davidesra/fittrack/internal/services"
	"github.com/davidesra/fittrack/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// garminProvider is a fake Garmin endpoint set recording what the client
// sent.
type garminProvider struct {
	server *httptest.Server

	exchangeHits   atomic.Int64
	exchangeAuth   atomic.Value // last Authorization header on access_token
	activitiesBody string
}

func newGarminProvider(t *testing.T) *garminProvider {
	t.Helper()
	p := &garminProvider{activitiesBody: "[]"}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/request_token":
			_, _ = w.Write([]byte("oauth_token=T1&oauth_token_secret=TS1"))
		case "/oauth/access_token":
			p.exchangeHits.Add(1)
			p.exchangeAuth.Store(r.Header.Get("Authorization"))
			_, _ = w.Write([]byte("oauth_token=A1&oauth_token_secret=AS1"))
		case "/wellness-api/rest/activities":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(p.activitiesBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(p.server.Close)
	return p
}

type garminTestApp struct {
	server   *httptest.Server
	client   *http.Client
	store    *store.Store
	provider *garminProvider
	user     *models.User
}

// newGarminTestApp wires a full router the way main does, with a fake
// provider behind the Garmin client and a cookie jar carrying the session.
func newGarminTestApp(t *testing.T) *garminTestApp {
	t.Helper()

	provider := newGarminProvider(t)

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	user := &models.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, s.CreateUser(user))

	client := garmin.NewClient(garmin.Config{
		Credentials:     garmin.Credentials{ConsumerKey: "K1", ConsumerSecret: "S1"},
		RequestTokenURL: provider.server.URL + "/oauth/request_token",
		AuthorizeURL:    provider.server.URL + "/oauth/authorize",
		AccessTokenURL:  provider.server.URL + "/oauth/access_token",
		APIBaseURL:      provider.server.URL + "/wellness-api/rest",
		Timeout:         5 * time.Second,
	})
	garminService := services.NewGarminService(client, s, "http://app.test/api/garmin/callback", 30)
	handler := NewGarminHandler(
		garminService,
		custody.NewCookieCustody(10*time.Minute, false),
		metrics.NewNoopMetrics(),
	)

	r := gin.New()
	sessionStore := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("fittrack_session", sessionStore))

	// Test-only login shortcut establishing a session for the fixture user.
	r.POST("/test/login", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(middleware.SessionUserID, user.ID)
		require.NoError(t, session.Save())
		c.Status(http.StatusNoContent)
	})

	r.GET("/api/garmin/callback", handler.Callback)
	api := r.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.GET("/garmin/connect", handler.Connect)
		api.GET("/garmin/status", handler.Status)
		api.POST("/garmin/sync", handler.Sync)
		api.POST("/garmin/disconnect", handler.Disconnect)
	}

	appServer := httptest.NewServer(r)
	t.Cleanup(appServer.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &garminTestApp{
		server:   appServer,
		provider: provider,
		store:    s,
		user:     user,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (app *garminTestApp) login(t *testing.T) {
	t.Helper()
	resp, err := app.client.Post(app.server.URL+"/test/login", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func (app *garminTestApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := app.client.Get(app.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (app *garminTestApp) post(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := app.client.Post(app.server.URL+path, "application/json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestConnectRedirectsToAuthorize(t *testing.T) {
	app := newGarminTestApp(t)
	app.login(t)

	resp := app.get(t, "/api/garmin/connect")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location := resp.Header.Get("Location")
	assert.Contains(t, location, "/oauth/authorize?oauth_token=T1")

	// Both custody cookies travel back to the browser.
	names := map[string]bool{}
	for _, c := range resp.Cookies() {
		names[c.Name] = true
		assert.True(t, c.HttpOnly)
	}
	assert.True(t, names["garmin_oauth_token"])
	assert.True(t, names["garmin_oauth_secret"])
}

func TestConnectRequiresSession(t *testing.T) {
	app := newGarminTestApp(t)

	resp := app.get(t, "/api/garmin/connect")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCallbackCompletesHandshake(t *testing.T) {
	app := newGarminTestApp(t)
	app.login(t)

	resp := app.get(t, "/api/garmin/connect")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = app.get(t, "/api/garmin/callback?oauth_token=T1&oauth_verifier=V1")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/settings?connected=true", resp.Header.Get("Location"))

	// The exchange was signed with the custodied request token and the
	// provider's verifier.
	require.Equal(t, int64(1), app.provider.exchangeHits.Load())
	auth := app.provider.exchangeAuth.Load().(string)
	assert.Contains(t, auth, `oauth_token="T1"`)
	assert.Contains(t, auth, `oauth_verifier="V1"`)

	// Access credentials are persisted on the user row.
	user, err := app.store.GetUserByID(app.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "A1", user.GarminAccessToken)
	assert.Equal(t, "AS1", user.GarminAccessTokenSecret)

	// Custody is cleared: both cookies expired on the response.
	cleared := 0
	for _, c := range resp.Cookies() {
		if c.Name == "garmin_oauth_token" || c.Name == "garmin_oauth_secret" {
			assert.Empty(t, c.Value)
			assert.Negative(t, c.MaxAge)
			cleared++
		}
	}
	assert.Equal(t, 2, cleared)
}

func TestCallbackRejectsTokenMismatch(t *testing.T) {
	app := newGarminTestApp(t)
	app.login(t)

	resp := app.get(t, "/api/garmin/connect")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = app.get(t, "/api/garmin/callback?oauth_token=FORGED&oauth_verifier=V1")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/settings?error=")

	// No exchange attempted, nothing persisted.
	assert.Equal(t, int64(0), app.provider.exchangeHits.Load())
	user, err := app.store.GetUserByID(app.user.ID)
	require.NoError(t, err)
	assert.False(t, user.GarminConnected())
}

func TestCallbackWithoutAttempt(t *testing.T) {
	app := newGarminTestApp(t)
	app.login(t)

	// Callback arrives with no prior connect.
	resp := app.get(t, "/api/garmin/callback?oauth_token=T1&oauth_verifier=V1")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/settings?error=")
	assert.Equal(t, int64(0), app.provider.exchangeHits.Load())
}

func TestCallbackMissingParams(t *testing.T) {
	app := newGarminTestApp(t)
	app.login(t)
	app.get(t, "/api/garmin/connect")

	resp := app.get(t, "/api/garmin/callback?oauth_token=T1")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/settings", location.Path)
	assert.Contains(t, location.Query().Get("error"), "Missing OAuth parameters")
}

func TestCallbackWithoutSessionRedirectsToLogin(t *testing.T) {
	app := newGarminTestApp(t)

	resp := app.get(t, "/api/garmin/callback?oauth_token=T1&oauth_verifier=V1")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestSyncEndpoint(t *testing.T) {
	app := newGarminTestApp(t)
	app.provider.activitiesBody = `[
		{"activityId": 1, "activityName": "Run", "activityType": "RUNNING",
		 "startTimeInSeconds": 1756100000, "durationInSeconds": 1800}
	]`
	app.login(t)
	require.NoError(t, app.store.SetGarminCredentials(app.user.ID, "A1", "AS1"))

	resp := app.post(t, "/api/garmin/sync")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Synced  int    `json:"synced"`
		Total   int    `json:"total"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Synced)
	assert.Equal(t, 1, body.Total)
	assert.True(t, strings.HasPrefix(body.Message, "Synced 1"))

	// Second run finds everything in place.
	resp = app.post(t, "/api/garmin/sync")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 0, body.Synced)
	assert.Equal(t, "Already up to date", body.Message)
}

func TestSyncNotConnectedEndpoint(t *testing.T) {
	app := newGarminTestApp(t)
	app.login(t)

	resp := app.post(t, "/api/garmin/sync")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "garmin_not_connected", body["error"])
}

func TestStatusAndDisconnectEndpoints(t *testing.T) {
	app := newGarminTestApp(t)
	app.login(t)

	resp := app.get(t, "/api/garmin/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, false, status["connected"])

	require.NoError(t, app.store.SetGarminCredentials(app.user.ID, "A1", "AS1"))

	resp = app.get(t, "/api/garmin/status")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, true, status["connected"])
	assert.NotEmpty(t, status["connected_at"])

	resp = app.post(t, "/api/garmin/disconnect")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	user, err := app.store.GetUserByID(app.user.ID)
	require.NoError(t, err)
	assert.False(t, user.GarminConnected())
}
