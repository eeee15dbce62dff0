package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventmaster/backend/internal/apperr"
)

// DefaultKeySetTTL is how long a fetched key set is considered fresh.
const DefaultKeySetTTL = time.Hour

// jwk is an RSA public key entry in a JWKS document.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// KeySetCache is a process-owned cache of the external issuer's public key
// set. Refresh is lazy: callers always get an answer from the current set,
// and on fetch failure the last-known-good set keeps serving. Resolution
// fails closed only when no set has ever been fetched. Concurrent refreshes
// may race; last writer wins and nobody blocks on an in-flight fetch.
type KeySetCache struct {
	url    string
	ttl    time.Duration
	client *http.Client
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeySetCache creates a cache for the JWKS document at url. ttl <= 0
// selects DefaultKeySetTTL.
func NewKeySetCache(url string, ttl time.Duration, logger *zap.Logger) *KeySetCache {
	if ttl <= 0 {
		ttl = DefaultKeySetTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeySetCache{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		now:    time.Now,
	}
}

// Key returns the public key for kid. A stale cache triggers a refresh; a
// kid miss triggers one forced refresh before failing.
func (c *KeySetCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, fetchedAt := c.snapshot()

	if keys == nil || c.now().Sub(fetchedAt) >= c.ttl {
		if err := c.refresh(ctx); err != nil && keys == nil {
			return nil, apperr.InvalidCredential("signing keys unavailable")
		}
		keys, _ = c.snapshot()
	}

	if key, ok := keys[kid]; ok {
		return key, nil
	}

	// The issuer may have rotated keys since the last fetch.
	if err := c.refresh(ctx); err != nil {
		return nil, apperr.InvalidCredential("signing keys unavailable")
	}
	keys, _ = c.snapshot()
	if key, ok := keys[kid]; ok {
		return key, nil
	}
	return nil, apperr.InvalidCredential("no signing key matches token")
}

// Clear drops the cached set. For tests.
func (c *KeySetCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = nil
	c.fetchedAt = time.Time{}
}

func (c *KeySetCache) snapshot() (map[string]*rsa.PublicKey, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys, c.fetchedAt
}

// refresh fetches the key set. The fetch runs outside the lock so concurrent
// resolutions are never serialized behind it.
func (c *KeySetCache) refresh(ctx context.Context) error {
	keys, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("JWKS refresh failed, serving last-known-good set",
			zap.String("url", c.url), zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return nil
}

func (c *KeySetCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build JWKS request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch JWKS: unexpected status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			c.logger.Warn("skipping malformed JWK", zap.String("kid", k.Kid), zap.Error(err))
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("JWKS document contains no usable RSA keys")
	}
	return keys, nil
}

func rsaKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	if e <= 1 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
