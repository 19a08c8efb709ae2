package explain

import (
	"sync"
	"testing"
	"time"

	"github.com/voxpay/gateway/internal/domain"
)

func denyRequest(scenario string) *domain.ExplanationRequest {
	return &domain.ExplanationRequest{
		Scenario:     scenario,
		UserText:     "send fifty dollars to the landlord",
		ActionType:   "funds_transfer",
		TargetSystem: "ledger",
		Outcome: domain.AuthorizationOutcome{
			Decision:   domain.DecisionDeny,
			DenyCode:   "AMOUNT_EXCEEDS_LIMIT",
			DenyReason: "Over the per-transfer limit",
		},
	}
}

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint(denyRequest("transfer"))
	b := Fingerprint(denyRequest("transfer"))

	if a == "" {
		t.Fatal("Fingerprint returned empty key")
	}
	if a != b {
		t.Errorf("identical requests produced different fingerprints: %q vs %q", a, b)
	}
}

// Raw user text is not part of the fingerprint; only decision metadata is.
func TestFingerprint_IgnoresUserText(t *testing.T) {
	a := denyRequest("transfer")
	b := denyRequest("transfer")
	b.UserText = "completely different phrasing of the same transfer"

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("user text changed the fingerprint, want metadata-only key")
	}
}

func TestFingerprint_DiscriminatesMetadata(t *testing.T) {
	base := Fingerprint(denyRequest("transfer"))

	byScenario := denyRequest("replay")
	if Fingerprint(byScenario) == base {
		t.Error("scenario change did not change fingerprint")
	}

	byCode := denyRequest("transfer")
	byCode.Outcome.DenyCode = domain.DenyCodeReplay
	if Fingerprint(byCode) == base {
		t.Error("deny code change did not change fingerprint")
	}

	byDrift := denyRequest("transfer")
	byDrift.DriftDetected = true
	if Fingerprint(byDrift) == base {
		t.Error("drift flag change did not change fingerprint")
	}
}

func TestCache_GetSet(t *testing.T) {
	cache := NewCache(time.Hour, true)
	key := Fingerprint(denyRequest("transfer"))
	value := domain.ExplanationResult{Text: denyFallback, Source: domain.SourceFallback}

	if _, ok := cache.Get(key); ok {
		t.Fatal("Get() on empty cache returned a value")
	}

	cache.Set(key, value)

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("Get() after Set() missed")
	}
	if got != value {
		t.Errorf("Get() = %+v, want %+v", got, value)
	}
}

func TestCache_LazyExpiry(t *testing.T) {
	cache := NewCache(time.Hour, true)
	current := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	key := "k1"
	cache.Set(key, domain.ExplanationResult{Text: allowFallback, Source: domain.SourceFallback})

	current = current.Add(59 * time.Minute)
	if _, ok := cache.Get(key); !ok {
		t.Fatal("entry expired before TTL elapsed")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := cache.Get(key); ok {
		t.Fatal("entry served after TTL elapsed")
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after lazy eviction, want 0", cache.Len())
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(time.Hour, false)
	cache.Set("k1", domain.ExplanationResult{Text: allowFallback})

	if _, ok := cache.Get("k1"); ok {
		t.Error("disabled cache returned a hit")
	}
	if cache.Len() != 0 {
		t.Errorf("disabled cache stored %d entries, want 0", cache.Len())
	}
}

// Last-write-wins under concurrent writers; no torn reads.
func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(time.Hour, true)
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set("shared", domain.ExplanationResult{Text: denyFallback, Source: domain.SourceFallback})
				cache.Get("shared")
			}
		}()
	}
	wg.Wait()

	got, ok := cache.Get("shared")
	if !ok {
		t.Fatal("entry missing after concurrent writes")
	}
	if got.Text != denyFallback {
		t.Errorf("Text = %q, want the written value", got.Text)
	}
}
