package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Daraja tokens live 60 minutes; caching for 55 keeps a safety margin
// against clock drift between this process and the gateway.
const tokenLifetime = 55 * time.Minute

// ErrAuth marks a failed access-token acquisition.
var ErrAuth = errors.New("failed to get access token")

// TokenSource lazily fetches and caches a Daraja OAuth bearer token. The
// cached token is shared process-wide; concurrent refreshes are not
// serialized, the mutex only guards the snapshot. Refetching is idempotent,
// so a racing refresh merely wastes one round-trip and the last writer wins.
type TokenSource struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	now            func() time.Time

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

// NewTokenSource constructs a token source against the given base URL.
func NewTokenSource(baseURL, consumerKey, consumerSecret string, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &TokenSource{
		httpClient:     httpClient,
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		now:            time.Now,
	}
}

// Token returns a valid bearer token, fetching a fresh one when the cached
// token is absent or past its expiry.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	valid := ts.cachedToken != "" && ts.now().Before(ts.tokenExpiry)
	token := ts.cachedToken
	ts.mu.Unlock()

	if valid {
		return token, nil
	}

	fresh, err := ts.fetch(ctx)
	if err != nil {
		return "", err
	}

	ts.mu.Lock()
	ts.cachedToken = fresh
	ts.tokenExpiry = ts.now().Add(tokenLifetime)
	ts.mu.Unlock()

	return fresh, nil
}

func (ts *TokenSource) fetch(ctx context.Context) (string, error) {
	url := ts.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrAuth, err)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(ts.consumerKey + ":" + ts.consumerSecret))
	req.Header.Set("Authorization", "Basic "+credentials)

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrAuth, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status=%d body=%s", ErrAuth, resp.StatusCode, body)
	}

	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrAuth, err)
	}
	if auth.AccessToken == "" {
		return "", fmt.Errorf("%w: response missing access token", ErrAuth)
	}

	return auth.AccessToken, nil
}
