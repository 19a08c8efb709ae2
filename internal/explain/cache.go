package explain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/voxpay/gateway/internal/domain"
)

// DefaultTTL is how long a cached explanation is served before expiring.
const DefaultTTL = 24 * time.Hour

// fingerprintInput is the non-sensitive decision metadata the cache key is
// derived from. Raw user text and payload values never participate.
type fingerprintInput struct {
	Scenario     string `json:"scenario"`
	Kind         string `json:"kind"`
	DenyCode     string `json:"deny_code"`
	ActionType   string `json:"action_type"`
	TargetSystem string `json:"target_system"`
	Drift        bool   `json:"drift"`
}

// Fingerprint derives the canonical cache key for a request. The metadata
// is canonicalized (RFC 8785) before hashing so field ordering can never
// split the key space.
func Fingerprint(req *domain.ExplanationRequest) string {
	raw, err := json.Marshal(fingerprintInput{
		Scenario:     req.Scenario,
		Kind:         req.Outcome.Kind().String(),
		DenyCode:     req.Outcome.DenyCode,
		ActionType:   req.ActionType,
		TargetSystem: req.TargetSystem,
		Drift:        req.DriftDetected,
	})
	if err != nil {
		return ""
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		canonical = raw
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	value     domain.ExplanationResult
	createdAt time.Time
	expiresAt time.Time
}

// Cache is the process-lifetime explanation cache. Entries are
// append/overwrite-only with last-write-wins semantics; values for the
// same fingerprint are semantically interchangeable, so concurrent writers
// need no coordination beyond the mutex.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	enabled bool

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewCache creates an explanation cache with the given TTL. A zero ttl
// uses DefaultTTL. A disabled cache misses on every Get and drops every
// Set, which forces live generation.
func NewCache(ttl time.Duration, enabled bool) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		enabled: enabled,
		now:     time.Now,
	}
}

// Get returns the cached result for a fingerprint if present and not
// expired. Expired entries are evicted lazily on lookup.
func (c *Cache) Get(key string) (domain.ExplanationResult, bool) {
	if !c.enabled || key == "" {
		return domain.ExplanationResult{}, false
	}

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return domain.ExplanationResult{}, false
	}

	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another cycle may have
		// refreshed the entry.
		if current, ok := c.entries[key]; ok && c.now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return domain.ExplanationResult{}, false
	}

	return entry.value, true
}

// Set stores a result under a fingerprint. Fallbacks are cached exactly
// like generated successes and served verbatim until expiry.
func (c *Cache) Set(key string, value domain.ExplanationResult) {
	if !c.enabled || key == "" {
		return
	}

	now := c.now()
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()
}

// Len returns the number of live entries, counting expired ones that have
// not been lazily evicted yet.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
