package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultTokenURL = "https://oauth2.googleapis.com/token"

// refreshMargin keeps the cached lifetime strictly below the lifetime the
// provider declares, so a token is never handed out right before it expires
// mid-call (e.g. a 60-minute token is cached for 55).
const refreshMargin = 5 * time.Minute

// AuthError reports a failed refresh-token exchange. It is fatal to a
// verification run; no progress is possible without a token.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("mailbox auth: token refresh failed: status=%d body=%s", e.StatusCode, e.Body)
}

// TokenSource caches a single short-lived access token exchanged from a
// long-lived refresh token. It is shared by all concurrent verification runs
// in the process; concurrent refreshes collapse into one in-flight request.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string // defaults to the Google OAuth2 endpoint
	HTTPClient   *http.Client

	Now func() time.Time // test hook; defaults to time.Now

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	group     singleflight.Group
}

// NewTokenSource builds a token source for the given OAuth2 client.
func NewTokenSource(clientID, clientSecret, refreshToken string) *TokenSource {
	return &TokenSource{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
	}
}

// Token returns a valid access token, refreshing it when the cache is empty
// or past its (margin-shortened) expiry. On refresh failure the cache is
// left unchanged and an *AuthError is returned.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	if ts.token != "" && ts.clock().Before(ts.expiresAt) {
		token := ts.token
		ts.mu.Unlock()
		return token, nil
	}
	ts.mu.Unlock()

	v, err, _ := ts.group.Do("refresh", func() (interface{}, error) {
		return ts.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (ts *TokenSource) refresh(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {ts.ClientID},
		"client_secret": {ts.ClientSecret},
		"refresh_token": {ts.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	endpoint := ts.TokenURL
	if endpoint == "" {
		endpoint = defaultTokenURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: "malformed token response: " + err.Error()}
	}
	if out.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: "token response missing access_token"}
	}

	lifetime := time.Duration(out.ExpiresIn) * time.Second
	margin := refreshMargin
	if lifetime <= margin {
		margin = lifetime / 2 // short-lived test tokens still cache for something
	}

	ts.mu.Lock()
	ts.token = out.AccessToken
	ts.expiresAt = ts.clock().Add(lifetime - margin)
	ts.mu.Unlock()

	return out.AccessToken, nil
}

func (ts *TokenSource) clock() time.Time {
	if ts.Now != nil {
		return ts.Now()
	}
	return time.Now()
}

func (ts *TokenSource) httpClient() *http.Client {
	if ts.HTTPClient != nil {
		return ts.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
