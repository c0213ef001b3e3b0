package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jheiberg/17peppertree/utils"
)

// Config holds the identity-provider settings. The admin frontend uses
// the interactive client; backend services authenticate with the backend
// client's credentials.
type Config struct {
	ServerURL           string
	Realm               string
	ClientID            string
	ClientSecret        string
	RedirectURI         string
	BackendClientID     string
	BackendClientSecret string
	AllowedIssuers      []string
}

func ConfigFromEnv() Config {
	cfg := Config{
		ServerURL:           strings.TrimRight(utils.EnvOrDefault("KEYCLOAK_SERVER_URL", "http://keycloak:8080"), "/"),
		Realm:               utils.EnvOrDefault("KEYCLOAK_REALM", "peppertree"),
		ClientID:            utils.EnvOrDefault("KEYCLOAK_CLIENT_ID", "peppertree-admin"),
		ClientSecret:        utils.EnvOrDefault("KEYCLOAK_CLIENT_SECRET", ""),
		RedirectURI:         utils.EnvOrDefault("KEYCLOAK_REDIRECT_URI", "http://localhost:3000/admin/callback"),
		BackendClientID:     utils.EnvOrDefault("KEYCLOAK_BACKEND_CLIENT_ID", ""),
		BackendClientSecret: utils.EnvOrDefault("KEYCLOAK_BACKEND_CLIENT_SECRET", ""),
	}
	cfg.AllowedIssuers = allowedIssuers(cfg)
	return cfg
}

// allowedIssuers builds the user-token issuer allow-list. The same realm
// can be reached under several hostnames depending on where the caller
// sits (container network, host, LAN), so the allow-list covers the
// common ones plus whatever KEYCLOAK_ALLOWED_ISSUERS adds.
func allowedIssuers(cfg Config) []string {
	issuers := []string{
		cfg.RealmURL(),
		fmt.Sprintf("http://keycloak:8080/realms/%s", cfg.Realm),
		fmt.Sprintf("http://localhost:8080/realms/%s", cfg.Realm),
		fmt.Sprintf("http://127.0.0.1:8080/realms/%s", cfg.Realm),
	}
	if extra := utils.EnvOrDefault("KEYCLOAK_ALLOWED_ISSUERS", ""); extra != "" {
		for _, iss := range strings.Split(extra, ",") {
			if iss = strings.TrimSpace(iss); iss != "" {
				issuers = append(issuers, iss)
			}
		}
	}
	seen := make(map[string]bool, len(issuers))
	out := issuers[:0]
	for _, iss := range issuers {
		if !seen[iss] {
			seen[iss] = true
			out = append(out, iss)
		}
	}
	return out
}

func (c Config) RealmURL() string {
	return fmt.Sprintf("%s/realms/%s", c.ServerURL, c.Realm)
}

func (c Config) JWKSURL() string     { return c.RealmURL() + "/protocol/openid-connect/certs" }
func (c Config) AuthURL() string     { return c.RealmURL() + "/protocol/openid-connect/auth" }
func (c Config) TokenURL() string    { return c.RealmURL() + "/protocol/openid-connect/token" }
func (c Config) UserinfoURL() string { return c.RealmURL() + "/protocol/openid-connect/userinfo" }
func (c Config) LogoutURL() string   { return c.RealmURL() + "/protocol/openid-connect/logout" }

// Keycloak proxies the OAuth2 endpoints the admin frontend needs:
// authorization-code exchange, refresh, userinfo and logout.
type Keycloak struct {
	cfg    Config
	client *http.Client
}

func NewKeycloak(cfg Config) *Keycloak {
	return &Keycloak{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizationURL builds the interactive login URL. A fresh state value
// is generated when none is supplied; the caller must verify it on
// callback.
func (k *Keycloak) AuthorizationURL(state string) (string, string, error) {
	if state == "" {
		b := make([]byte, 24)
		if _, err := rand.Read(b); err != nil {
			return "", "", err
		}
		state = hex.EncodeToString(b)
	}

	params := url.Values{}
	params.Set("client_id", k.cfg.ClientID)
	params.Set("redirect_uri", k.cfg.RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", "openid profile email")
	params.Set("state", state)

	return k.cfg.AuthURL() + "?" + params.Encode(), state, nil
}

// ExchangeCode trades an authorization code for tokens.
func (k *Keycloak) ExchangeCode(code string) (map[string]any, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", k.cfg.RedirectURI)
	form.Set("client_id", k.cfg.ClientID)
	if k.cfg.ClientSecret != "" {
		form.Set("client_secret", k.cfg.ClientSecret)
	}
	return k.postForm(k.cfg.TokenURL(), form)
}

// Refresh obtains a new access token from a refresh token.
func (k *Keycloak) Refresh(refreshToken string) (map[string]any, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", k.cfg.ClientID)
	if k.cfg.ClientSecret != "" {
		form.Set("client_secret", k.cfg.ClientSecret)
	}
	return k.postForm(k.cfg.TokenURL(), form)
}

// UserInfo fetches the identity provider's userinfo document.
func (k *Keycloak) UserInfo(accessToken string) (map[string]any, error) {
	req, err := http.NewRequest(http.MethodGet, k.cfg.UserinfoURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()
	return decodeJSONResponse(resp)
}

// Logout invalidates the session behind a refresh token.
func (k *Keycloak) Logout(refreshToken string) error {
	form := url.Values{}
	form.Set("client_id", k.cfg.ClientID)
	if k.cfg.ClientSecret != "" {
		form.Set("client_secret", k.cfg.ClientSecret)
	}
	form.Set("refresh_token", refreshToken)

	resp, err := k.client.PostForm(k.cfg.LogoutURL(), form)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("logout request: status %d", resp.StatusCode)
	}
	return nil
}

func (k *Keycloak) postForm(endpoint string, form url.Values) (map[string]any, error) {
	resp, err := k.client.PostForm(endpoint, form)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	return decodeJSONResponse(resp)
}

func decodeJSONResponse(resp *http.Response) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("identity provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode identity provider response: %w", err)
	}
	return out, nil
}
