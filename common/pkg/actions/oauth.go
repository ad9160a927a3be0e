/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package actions

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	tokenCacheMaxTTL = 60 * time.Second
	tokenExpirySlack = 5 * time.Second
)

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// tokenCache holds client-credentials tokens keyed by (tokenUrl,
// clientId) so repeated webhook actions against the same provider do
// not hammer its token endpoint.
type tokenCache struct {
	mu      sync.Mutex
	entries map[string]cachedToken
	now     func() time.Time
}

func newTokenCache() *tokenCache {
	return &tokenCache{entries: make(map[string]cachedToken), now: time.Now}
}

// Token returns a cached access token or fetches a fresh one. Cache
// lifetime is min(expires_in - 5s, 60s); tokens without an expiry are
// cached for the full 60s.
func (c *tokenCache) Token(ctx context.Context, tokenUrl, clientId, clientSecret string, scopes []string) (string, error) {
	key := tokenUrl + "|" + clientId

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.now().Before(entry.expiresAt) {
		token := entry.accessToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	cfg := &clientcredentials.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		TokenURL:     tokenUrl,
		Scopes:       scopes,
	}
	token, err := cfg.Token(ctx)
	if err != nil {
		return "", err
	}

	ttl := tokenCacheMaxTTL
	if !token.Expiry.IsZero() {
		if until := time.Until(token.Expiry) - tokenExpirySlack; until < ttl {
			ttl = until
		}
	}
	if ttl > 0 {
		c.mu.Lock()
		c.entries[key] = cachedToken{
			accessToken: token.AccessToken,
			expiresAt:   c.now().Add(ttl),
		}
		c.mu.Unlock()
	}
	return token.AccessToken, nil
}

// Invalidate drops the cached token for (tokenUrl, clientId). Called
// when an upstream rejects the token before its TTL ran out.
func (c *tokenCache) Invalidate(tokenUrl, clientId string) {
	c.mu.Lock()
	delete(c.entries, tokenUrl+"|"+clientId)
	c.mu.Unlock()
}
