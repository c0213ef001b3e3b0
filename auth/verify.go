package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jheiberg/17peppertree/logger"
)

const (
	expectedAudience = "account"
	// Usernames with this prefix belong to client-credentials service
	// accounts, never to interactive users.
	serviceAccountPrefix = "service-account-"
)

var (
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrWrongIssuer    = errors.New("token issuer not accepted")
	ErrNotUserToken   = errors.New("service account token not allowed for user endpoints")
	ErrNotClientToken = errors.New("token is not from a service account")
)

// UserClaims is the decoded claim set of an interactive user token.
type UserClaims struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	jwt.RegisteredClaims
}

// Roles returns the realm roles carried by the token.
func (c *UserClaims) Roles() []string { return c.RealmAccess.Roles }

// HasAnyRole reports whether the token carries at least one of the
// given realm roles.
func (c *UserClaims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(c.RealmAccess.Roles, r) {
			return true
		}
	}
	return false
}

// ClientClaims is the decoded claim set of a client-credentials token.
// Azp (authorized party) identifies the calling client.
type ClientClaims struct {
	Typ               string `json:"typ"`
	Azp               string `json:"azp"`
	Scope             string `json:"scope"`
	PreferredUsername string `json:"preferred_username"`
	jwt.RegisteredClaims
}

// Scopes splits the space-separated scope claim.
func (c *ClientClaims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// Realm derives the realm name from the issuer URL.
func (c *ClientClaims) Realm() string {
	parts := strings.Split(c.Issuer, "/")
	return parts[len(parts)-1]
}

// Verifier validates bearer tokens against the cached JWKS keys.
//
// User tokens and client-credentials tokens share the signature and
// audience checks but apply different issuer policies: user tokens are
// accepted from any issuer on the allow-list (the realm is reachable
// under several hostnames), while service tokens must match the
// configured issuer exactly.
type Verifier struct {
	Keys           *KeyCache
	Issuer         string
	AllowedIssuers []string
}

func NewVerifier(cfg Config, keys *KeyCache) *Verifier {
	return &Verifier{
		Keys:           keys,
		Issuer:         cfg.RealmURL(),
		AllowedIssuers: cfg.AllowedIssuers,
	}
}

func (v *Verifier) keyfunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrNoKeyID
	}
	return v.Keys.Key(kid)
}

// VerifyUserToken validates an interactive user token: RS256 signature
// against a cached key, audience "account", issuer on the allow-list,
// and not a service-account identity.
func (v *Verifier) VerifyUserToken(raw string) (*UserClaims, error) {
	claims := &UserClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(expectedAudience),
	)
	if err != nil {
		logger.Log.Warn("user token rejected", "err", err)
		return nil, wrapTokenErr(err)
	}

	if !slices.Contains(v.AllowedIssuers, claims.Issuer) {
		logger.Log.Warn("user token rejected", "issuer", claims.Issuer)
		return nil, ErrWrongIssuer
	}

	if strings.HasPrefix(claims.PreferredUsername, serviceAccountPrefix) {
		logger.Log.Warn("service account token presented on user path", "username", claims.PreferredUsername)
		return nil, ErrNotUserToken
	}

	return claims, nil
}

// VerifyClientToken validates a client-credentials (service-account)
// token: same signature and audience checks, exact issuer match, token
// type Bearer and a service-account identity.
func (v *Verifier) VerifyClientToken(raw string) (*ClientClaims, error) {
	claims := &ClientClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(expectedAudience),
		jwt.WithIssuer(v.Issuer),
	)
	if err != nil {
		logger.Log.Warn("client token rejected", "err", err)
		return nil, wrapTokenErr(err)
	}

	if claims.Typ != "Bearer" {
		logger.Log.Warn("client token rejected: not a Bearer token", "typ", claims.Typ)
		return nil, ErrInvalidToken
	}

	if !strings.HasPrefix(claims.PreferredUsername, serviceAccountPrefix) {
		logger.Log.Warn("user token presented on client path", "username", claims.PreferredUsername)
		return nil, ErrNotClientToken
	}

	return claims, nil
}

func wrapTokenErr(err error) error {
	if errors.Is(err, ErrNoKeyID) || errors.Is(err, ErrUnknownKeyID) {
		return err
	}
	return fmt.Errorf("%w: %s", ErrInvalidToken, err)
}
