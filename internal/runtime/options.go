package runtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/voxpay/gateway/internal/authz"
	"github.com/voxpay/gateway/internal/explain"
	"github.com/voxpay/gateway/internal/narrate"
	"github.com/voxpay/gateway/internal/storage"
	"github.com/voxpay/gateway/internal/storage/memory"
	"github.com/voxpay/gateway/internal/storage/sqlite"
)

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline) error

// WithAuthorizer sets the authorization service client. Required.
func WithAuthorizer(client *authz.Client, agentID string) Option {
	return func(p *Pipeline) error {
		if client == nil {
			return fmt.Errorf("authorizer client is nil")
		}
		p.authz = client
		p.agentID = agentID
		return nil
	}
}

// WithGenerator sets the explanation generator. Without one, every turn
// resolves to its decision fallback.
func WithGenerator(gen explain.Generator) Option {
	return func(p *Pipeline) error {
		p.generator = gen
		return nil
	}
}

// WithExplanationCache configures the explanation cache TTL and enabled
// flag. The cache object is owned here and passed by reference to the
// orchestrator; nothing reaches it through ambient state.
func WithExplanationCache(ttl time.Duration, enabled bool) Option {
	return func(p *Pipeline) error {
		p.explCache = explain.NewCache(ttl, enabled)
		return nil
	}
}

// WithNarrator sets the narration path. Without one, turns are text-only.
func WithNarrator(n *narrate.Narrator) Option {
	return func(p *Pipeline) error {
		p.narrator = n
		return nil
	}
}

// WithSQLiteStore uses SQLite for the decision audit store.
func WithSQLiteStore(path string) Option {
	return func(p *Pipeline) error {
		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("create sqlite store: %w", err)
		}
		p.store = store
		return nil
	}
}

// WithMemoryStore uses an in-memory decision audit store.
func WithMemoryStore() Option {
	return func(p *Pipeline) error {
		p.store = memory.New()
		return nil
	}
}

// WithStore sets a custom decision store.
func WithStore(store storage.DecisionStore) Option {
	return func(p *Pipeline) error {
		p.store = store
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			return fmt.Errorf("logger is nil")
		}
		p.logger = logger
		return nil
	}
}
