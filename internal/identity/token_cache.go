package identity

import (
	"time"

	"github.com/coocood/freecache"
)

// TokenCache keeps refreshed ID tokens per user, so a request carrying an
// expired cookie does not trigger a provider refresh every time.
type TokenCache struct {
	cache *freecache.Cache
	now   func() time.Time
}

func NewTokenCache(sizeMB int) *TokenCache {
	megabyte := 1024 * 1024
	return &TokenCache{
		cache: freecache.NewCache(sizeMB * megabyte),
		now:   time.Now,
	}
}

// Put stores token until one minute before expiresAt. Tokens closer to
// expiry than that are not cached at all.
func (c *TokenCache) Put(uid, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(c.now()) - expirySkew
	expireSeconds := int(ttl / time.Second)
	if expireSeconds < 1 {
		c.Delete(uid)
		return nil
	}
	return c.cache.Set([]byte(uid), []byte(token), expireSeconds)
}

func (c *TokenCache) Get(uid string) (string, bool) {
	token, err := c.cache.Get([]byte(uid))
	if err != nil {
		return "", false
	}
	return string(token), true
}

func (c *TokenCache) Delete(uid string) {
	c.cache.Del([]byte(uid))
}

// Track returns a Cell subscriber that mirrors the current user's token.
func (c *TokenCache) Track(previous *User) func(*User) {
	last := previous
	return func(u *User) {
		if u == nil {
			if last != nil {
				c.Delete(last.UID)
			}
			last = nil
			return
		}
		last = u
		if err := c.Put(u.UID, u.IDToken, u.ExpiresAt); err != nil {
			c.Delete(u.UID)
		}
	}
}
