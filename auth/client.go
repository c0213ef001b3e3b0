package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jheiberg/17peppertree/logger"
)

// expiry safety margin: a token about to expire is treated as expired.
const tokenExpiryBuffer = 60 * time.Second

// ServiceClient obtains access tokens for outbound service-to-service
// calls via the client-credentials grant, caching the token until close
// to its expiry. Safe for concurrent use.
type ServiceClient struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewServiceClient returns nil when backend client credentials are not
// configured; callers treat a nil client as "service calls disabled".
func NewServiceClient(cfg Config) *ServiceClient {
	if cfg.BackendClientID == "" || cfg.BackendClientSecret == "" {
		return nil
	}
	return &ServiceClient{
		tokenURL:     cfg.TokenURL(),
		clientID:     cfg.BackendClientID,
		clientSecret: cfg.BackendClientSecret,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// AccessToken returns a valid cached token or requests a new one.
func (s *ServiceClient) AccessToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expiresAt.Add(-tokenExpiryBuffer)) {
		return s.token, nil
	}

	logger.Log.Info("requesting access token via client credentials", "client_id", s.clientID)

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	resp, err := s.client.PostForm(s.tokenURL, form)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}

	s.token = body.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return s.token, nil
}

// TokenInfo reports the cached token's state for diagnostics; the token
// itself is never exposed.
func (s *ServiceClient) TokenInfo() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := map[string]any{
		"client_id": s.clientID,
		"has_token": s.token != "",
	}
	if s.token != "" {
		info["expires_at"] = s.expiresAt.UTC().Format(time.RFC3339)
		info["expires_in_seconds"] = int(time.Until(s.expiresAt).Seconds())
	}
	return info
}
