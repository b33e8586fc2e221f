package garmin

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Credentials is the application's static OAuth 1.0a consumer identity with
// Garmin. Constructed once from configuration and passed by parameter; the
// signing code never reads ambient state.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
}

// Token is a token/secret pair: a short-lived request token during the
// handshake, or the long-lived access token afterwards.
type Token struct {
	Key    string
	Secret string
}

// signerParams carries the per-request nonce and timestamp. Production code
// always uses freshParams; tests inject fixed values to assert byte-exact
// signatures.
type signerParams struct {
	Nonce     string
	Timestamp string
}

func freshParams() (signerParams, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return signerParams{}, err
	}
	return signerParams{
		Nonce:     hex.EncodeToString(buf),
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
	}, nil
}

// percentEncode applies the strict RFC 3986 profile OAuth 1.0a requires.
// Go's url.QueryEscape leaves !, ', (, ) and * unescaped and encodes space
// as '+', both of which Garmin's verifier rejects.
func percentEncode(s string) string {
	escaped := url.QueryEscape(s)
	replacer := strings.NewReplacer(
		"+", "%20",
		"!", "%21",
		"'", "%27",
		"(", "%28",
		")", "%29",
		"*", "%2A",
	)
	return replacer.Replace(escaped)
}

// percentDecode reverses percentEncode.
func percentDecode(s string) (string, error) {
	return url.QueryUnescape(s)
}

// authorizationHeader builds the OAuth 1.0a Authorization header for a single
// request. extraOAuth carries additional oauth_* protocol parameters
// (oauth_callback on step 1, oauth_verifier on step 3); bodyParams carries
// non-oauth query/body parameters that must be included in the signature base
// string but travel outside the header. token is nil for the request-token
// step.
func authorizationHeader(
	method, rawURL string,
	creds Credentials,
	extraOAuth, bodyParams map[string]string,
	token *Token,
	params signerParams,
) (string, error) {
	if creds.ConsumerKey == "" || creds.ConsumerSecret == "" {
		return "", ErrMissingCredentials
	}

	oauthParams := map[string]string{
		"oauth_consumer_key":     creds.ConsumerKey,
		"oauth_nonce":            params.Nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        params.Timestamp,
		"oauth_version":          "1.0",
	}
	for k, v := range extraOAuth {
		oauthParams[k] = v
	}

	tokenSecret := ""
	if token != nil {
		oauthParams["oauth_token"] = token.Key
		tokenSecret = token.Secret
	}

	// All parameters (oauth + body) enter the signature base string, sorted
	// lexicographically by encoded key.
	allParams := make(map[string]string, len(oauthParams)+len(bodyParams))
	for k, v := range oauthParams {
		allParams[k] = v
	}
	for k, v := range bodyParams {
		allParams[k] = v
	}

	keys := make([]string, 0, len(allParams))
	for k := range allParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(allParams[k]))
	}
	paramString := strings.Join(pairs, "&")

	baseString := strings.ToUpper(method) + "&" +
		percentEncode(rawURL) + "&" +
		percentEncode(paramString)

	signingKey := percentEncode(creds.ConsumerSecret) + "&" + percentEncode(tokenSecret)

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(baseString))
	oauthParams["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// The header carries oauth_* parameters only (including the signature);
	// body parameters travel in the request itself.
	headerKeys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		headerKeys = append(headerKeys, k)
	}
	sort.Strings(headerKeys)

	headerPairs := make([]string, 0, len(headerKeys))
	for _, k := range headerKeys {
		headerPairs = append(headerPairs,
			fmt.Sprintf("%s=%q", percentEncode(k), percentEncode(oauthParams[k])))
	}

	return "OAuth " + strings.Join(headerPairs, ", "), nil
}
