package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// codeCache holds pending verification codes in memory. Codes are scoped to
// a user, expire after a TTL, and are consumed by a bounded number of
// attempts. Restarting the process invalidates pending logins, which is
// acceptable for a second factor with a two minute lifetime.
type codeCache struct {
	mu    sync.Mutex
	codes map[string]*pendingCode

	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

type pendingCode struct {
	code     string
	expires  time.Time
	attempts int
}

func newCodeCache(ttl time.Duration, maxAttempts int) *codeCache {
	return &codeCache{
		codes:       make(map[string]*pendingCode),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// issue generates a fresh six digit code for the user, replacing any
// pending one.
func (c *codeCache) issue(userID string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()
	c.codes[userID] = &pendingCode{code: code, expires: c.now().Add(c.ttl)}
	return code, nil
}

// verify consumes one attempt. A correct code, an expired code, and too
// many wrong attempts all remove the entry; only the first returns true.
func (c *codeCache) verify(userID, code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.codes[userID]
	if !ok {
		return false
	}
	if c.now().After(p.expires) {
		delete(c.codes, userID)
		return false
	}
	if p.code == code {
		delete(c.codes, userID)
		return true
	}
	p.attempts++
	if p.attempts >= c.maxAttempts {
		delete(c.codes, userID)
	}
	return false
}

// prune drops expired entries. Called under mu on each issue; the map only
// grows with login attempts, so this keeps it small without a sweeper.
func (c *codeCache) prune() {
	now := c.now()
	for id, p := range c.codes {
		if now.After(p.expires) {
			delete(c.codes, id)
		}
	}
}
