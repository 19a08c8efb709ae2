package narrate

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
)

// Cache is the content-addressed narration store: synthesized audio keyed
// by a hash of the exact spoken text plus the model and voice that spoke
// it. Identical text always resolves to identical audio regardless of
// which decision produced it. Read and write failures degrade to a live
// synthesis path; they are logged and never fatal.
type Cache struct {
	dir     string
	enabled bool
	logger  *slog.Logger
}

// NewCache creates a narration cache rooted at dir. A disabled cache
// misses on every Get and drops every Set.
func NewCache(dir string, enabled bool, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{dir: dir, enabled: enabled, logger: logger}
}

// Key derives the content address for a spoken text under a given
// synthesis model and voice.
func Key(text, model, voice string) string {
	sum := sha256.Sum256([]byte(text + "|" + model + "|" + voice))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".mp3")
}

// Get returns the cached audio bytes for a key, if a file exists under it.
func (c *Cache) Get(key string) ([]byte, bool) {
	if !c.enabled || key == "" {
		return nil, false
	}

	audio, err := os.ReadFile(c.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("narration cache read failed, treating as miss",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}
	return audio, true
}

// Set persists audio bytes under a key. Failures are logged and swallowed;
// the synthesized audio is still usable by the caller.
func (c *Cache) Set(key string, audio []byte) {
	if !c.enabled || key == "" {
		return
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("narration cache dir unavailable",
			slog.String("dir", c.dir),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := os.WriteFile(c.path(key), audio, 0o644); err != nil {
		c.logger.Warn("narration cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
