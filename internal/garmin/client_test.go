package garmin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string) *Client {
	return NewClient(Config{
		Credentials:     Credentials{ConsumerKey: "K1", ConsumerSecret: "S1"},
		RequestTokenURL: serverURL + "/oauth/request_token",
		AuthorizeURL:    serverURL + "/oauth/authorize",
		AccessTokenURL:  serverURL + "/oauth/access_token",
		APIBaseURL:      serverURL + "/wellness-api/rest",
		Timeout:         5 * time.Second,
	})
}

func TestRequestToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/oauth/request_token", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		_, _ = w.Write([]byte("oauth_token=T1&oauth_token_secret=TS1"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	token, err := client.RequestToken(context.Background(), "https://app.example.com/api/garmin/callback")
	require.NoError(t, err)

	assert.Equal(t, "T1", token.Key)
	assert.Equal(t, "TS1", token.Secret)

	assert.Contains(t, gotAuth, "OAuth ")
	assert.Contains(t, gotAuth, `oauth_consumer_key="K1"`)
	assert.Contains(t, gotAuth, `oauth_signature_method="HMAC-SHA1"`)
	assert.Contains(t, gotAuth, `oauth_callback="https%3A%2F%2Fapp.example.com%2Fapi%2Fgarmin%2Fcallback"`)
	assert.Contains(t, gotAuth, "oauth_signature=")
	// No token yet on the first handshake step.
	assert.NotContains(t, gotAuth, "oauth_token=")
}

func TestExchangeToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/access_token", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("oauth_token=A1&oauth_token_secret=AS1"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	access, err := client.ExchangeToken(
		context.Background(), &Token{Key: "T1", Secret: "TS1"}, "V1",
	)
	require.NoError(t, err)

	assert.Equal(t, "A1", access.Key)
	assert.Equal(t, "AS1", access.Secret)
	assert.Contains(t, gotAuth, `oauth_token="T1"`)
	assert.Contains(t, gotAuth, `oauth_verifier="V1"`)
}

func TestObtainTokenUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid signature"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.RequestToken(context.Background(), "https://app.example.com/cb")
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "invalid signature")
}

func TestObtainTokenMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("oauth_token=onlykey"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.RequestToken(context.Background(), "https://app.example.com/cb")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
}

func TestObtainTokenMissingCredentials(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.RequestToken(context.Background(), "https://app.example.com/cb")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestFetchActivities(t *testing.T) {
	start := time.Unix(1700000000, 0)
	end := time.Unix(1700086400, 0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wellness-api/rest/activities", r.URL.Path)
		assert.Equal(t, "1700000000", r.URL.Query().Get("uploadStartTimeInSeconds"))
		assert.Equal(t, "1700086400", r.URL.Query().Get("uploadEndTimeInSeconds"))
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_token="A1"`)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"activityId": 7, "activityType": "RUNNING",
			"startTimeInSeconds": 1700001000, "durationInSeconds": 1500}]`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	activities, err := client.FetchActivities(
		context.Background(), &Token{Key: "A1", Secret: "AS1"}, start, end,
	)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "7", activities[0].ActivityID.String())
}

func TestFetchActivitiesNotConnected(t *testing.T) {
	client := testClient("http://unused.invalid")

	_, err := client.FetchActivities(context.Background(), nil, time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.FetchActivities(context.Background(), &Token{}, time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestFetchActivitiesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("no scope"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchActivities(
		context.Background(), &Token{Key: "A1", Secret: "AS1"}, time.Now(), time.Now(),
	)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "activities", upstream.Op)
}
