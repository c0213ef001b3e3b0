package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/jheiberg/17peppertree/logger"
)

var (
	ErrNoKeyID      = errors.New("token header missing kid")
	ErrUnknownKeyID = errors.New("no public key found for kid")
)

const (
	keyCacheTTL        = 12 * time.Hour
	keyRefreshThrottle = time.Minute
	keyFetchTimeout    = 10 * time.Second
)

// KeyCache holds the identity provider's public signing keys, fetched
// lazily from the JWKS endpoint. Keys are kept for keyCacheTTL; an
// unknown kid forces an early refresh so provider key rotation recovers
// without a restart, throttled so a flood of bad tokens cannot hammer
// the provider.
type KeyCache struct {
	url    string
	client *http.Client

	mu          sync.Mutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	lastRefresh time.Time
}

func NewKeyCache(jwksURL string, client *http.Client) *KeyCache {
	if client == nil {
		client = &http.Client{Timeout: keyFetchTimeout}
	}
	return &KeyCache{url: jwksURL, client: client}
}

// Key returns the public key for kid, fetching or refreshing the key set
// as needed.
func (c *KeyCache) Key(kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, ErrNoKeyID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keys == nil || time.Since(c.fetchedAt) > keyCacheTTL {
		if err := c.refreshLocked(); err != nil {
			return nil, err
		}
	}

	if key, ok := c.keys[kid]; ok {
		return key, nil
	}

	// Unknown kid: the provider may have rotated keys since the last
	// fetch. Refresh at most once per throttle window.
	if time.Since(c.lastRefresh) > keyRefreshThrottle {
		if err := c.refreshLocked(); err != nil {
			return nil, err
		}
		if key, ok := c.keys[kid]; ok {
			return key, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownKeyID, kid)
}

func (c *KeyCache) refreshLocked() error {
	c.lastRefresh = time.Now()

	resp, err := c.client.Get(c.url)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read jwks: %w", err)
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return fmt.Errorf("parse jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			// Non-RSA entries (e.g. enc keys) are skipped.
			continue
		}
		keys[key.KeyID()] = &pub
	}
	if len(keys) == 0 {
		return errors.New("jwks contained no usable RSA keys")
	}

	c.keys = keys
	c.fetchedAt = time.Now()
	logger.Log.Debug("refreshed signing keys", "count", len(keys))
	return nil
}
