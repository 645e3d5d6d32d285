// Package registry maps logical endpoint names to live, authenticated
// clients and hides reconnect and expiry handling from all callers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hadoopt/odoo-bridge/pkg/client"
	"github.com/hadoopt/odoo-bridge/pkg/config"
	"github.com/hadoopt/odoo-bridge/pkg/logging"
)

// DefaultConnectionValidity is how long a connection is trusted before
// it is considered stale and re-authenticated.
const DefaultConnectionValidity = time.Hour

// ErrUnknownEndpoint is returned for endpoint names outside the known set.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Resolver supplies endpoint configurations. It must be cheap to call
// repeatedly; the registry consults it on every refresh.
type Resolver interface {
	Resolve(name string) (config.EndpointConfig, error)
	ListKnownEndpointNames() []string
}

// Config tunes a Registry.
type Config struct {
	// Resolver supplies endpoint configurations (required).
	Resolver Resolver

	// DefaultEndpoint is the initial active endpoint name.
	DefaultEndpoint string

	// ConnectionValidity caps a connection's age before forced
	// re-authentication. Zero means DefaultConnectionValidity.
	ConnectionValidity time.Duration
}

// Registry owns one connection per endpoint name. Connections are
// created lazily, revalidated on every lease and replaced atomically
// when stale. The internal lock protects only the maps and the active
// pointer; it is never held across a remote call.
type Registry struct {
	mu        sync.Mutex
	conns     map[string]*connection
	overrides map[string]config.EndpointConfig
	active    string

	resolver Resolver
	validity time.Duration
	logger   zerolog.Logger
}

// New creates a registry. No connection is established until the first
// GetClient.
func New(cfg Config) (*Registry, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if cfg.ConnectionValidity <= 0 {
		cfg.ConnectionValidity = DefaultConnectionValidity
	}

	r := &Registry{
		conns:     make(map[string]*connection),
		overrides: make(map[string]config.EndpointConfig),
		resolver:  cfg.Resolver,
		validity:  cfg.ConnectionValidity,
		logger:    logging.NewLogger("registry"),
	}

	known := cfg.Resolver.ListKnownEndpointNames()
	switch {
	case cfg.DefaultEndpoint != "":
		r.active = cfg.DefaultEndpoint
	case contains(known, config.DefaultEndpoint):
		r.active = config.DefaultEndpoint
	case len(known) > 0:
		r.active = known[0]
	default:
		r.active = config.DefaultEndpoint
	}
	return r, nil
}

// GetClient returns a valid, authenticated client for name, or for the
// active endpoint when name is empty. An existing connection is
// revalidated first; a stale one triggers exactly one reconnect attempt
// before the failure is surfaced and the entry purged.
func (r *Registry) GetClient(ctx context.Context, name string) (*client.Client, error) {
	r.mu.Lock()
	if name == "" {
		name = r.active
	}
	conn, exists := r.conns[name]
	r.mu.Unlock()

	if !exists {
		return r.connect(ctx, name)
	}

	if r.revalidate(ctx, name, conn) {
		return conn.client, nil
	}

	// Stale: discard the old generation entirely, then make one
	// reconnect attempt.
	r.purge(name, conn)
	reconnectsTotal.Inc()
	r.logger.Info().Str("endpoint", name).Msg("Connection stale, reconnecting")

	c, err := r.connect(ctx, name)
	if err != nil {
		return nil, &client.RPCError{
			Kind:    client.KindUnavailable,
			Message: fmt.Sprintf("endpoint %q unavailable after reconnect", name),
			Err:     err,
		}
	}
	return c, nil
}

// revalidate reports whether conn is still usable: young enough and
// passing a liveness probe. Runs without the registry lock.
func (r *Registry) revalidate(ctx context.Context, name string, conn *connection) bool {
	if conn.age() > r.validity {
		r.logger.Info().
			Str("endpoint", name).
			Dur("age", conn.age()).
			Msg("Connection exceeded validity window")
		return false
	}
	if err := conn.client.Probe(ctx); err != nil {
		r.logger.Warn().Err(err).Str("endpoint", name).Msg("Liveness probe failed")
		return false
	}
	return true
}

// connect authenticates a new connection for name and registers it.
// Nothing is registered on failure. Runs the remote call unlocked; on a
// race the most recent generation wins and earlier ones are dropped.
func (r *Registry) connect(ctx context.Context, name string) (*client.Client, error) {
	cfg, err := r.resolveConfig(name)
	if err != nil {
		connectsTotal.WithLabelValues("config_missing").Inc()
		return nil, &client.RPCError{
			Kind:    client.KindUnavailable,
			Message: fmt.Sprintf("no configuration for endpoint %q", name),
			Err:     err,
		}
	}

	c, err := client.New(ctx, cfg)
	if err != nil {
		connectsTotal.WithLabelValues("failed").Inc()
		r.logger.Error().Err(err).Str("endpoint", name).Msg("Failed to connect endpoint")
		return nil, err
	}

	r.mu.Lock()
	if _, replaced := r.conns[name]; !replaced {
		liveConnections.Inc()
	}
	r.conns[name] = newConnection(c)
	r.mu.Unlock()

	connectsTotal.WithLabelValues("ok").Inc()
	r.logger.Info().Str("endpoint", name).Int64("uid", c.UID()).Msg("Endpoint connected")
	return c, nil
}

// purge drops the given generation, leaving any newer replacement that
// raced in untouched.
func (r *Registry) purge(name string, old *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[name]; ok && current == old {
		delete(r.conns, name)
		liveConnections.Dec()
	}
}

// resolveConfig looks up an endpoint configuration, preferring
// registered overrides over the resolver.
func (r *Registry) resolveConfig(name string) (config.EndpointConfig, error) {
	r.mu.Lock()
	cfg, ok := r.overrides[name]
	r.mu.Unlock()
	if ok {
		return cfg, nil
	}
	return r.resolver.Resolve(name)
}

// ActiveEndpoint returns the current active endpoint name.
func (r *Registry) ActiveEndpoint() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// SwitchActive makes name the active endpoint. It fails when name is
// not in the known endpoint set or cannot produce a client; the active
// pointer is untouched on failure.
func (r *Registry) SwitchActive(ctx context.Context, name string) error {
	if !contains(r.ListEndpoints(), name) {
		return fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
	}
	if _, err := r.GetClient(ctx, name); err != nil {
		return err
	}

	r.mu.Lock()
	r.active = name
	r.mu.Unlock()
	r.logger.Info().Str("endpoint", name).Msg("Active endpoint switched")
	return nil
}

// WithScopedEndpoint runs fn with a client for name without touching
// the active pointer, so concurrent callers relying on the active
// endpoint are never redirected, no matter how fn exits.
func (r *Registry) WithScopedEndpoint(ctx context.Context, name string, fn func(*client.Client) error) error {
	c, err := r.GetClient(ctx, name)
	if err != nil {
		return err
	}
	return fn(c)
}

// ListEndpoints returns the known endpoint names, sorted.
func (r *Registry) ListEndpoints() []string {
	seen := make(map[string]bool)
	for _, name := range r.resolver.ListKnownEndpointNames() {
		seen[name] = true
	}
	r.mu.Lock()
	for name := range r.overrides {
		seen[name] = true
	}
	r.mu.Unlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddEndpoint registers a new endpoint configuration and eagerly
// verifies it by connecting. The registration is rolled back when the
// connection fails.
func (r *Registry) AddEndpoint(ctx context.Context, name string, cfg config.EndpointConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("endpoint %q: %w", name, err)
	}

	r.mu.Lock()
	if _, exists := r.overrides[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("endpoint %q already registered", name)
	}
	r.overrides[name] = cfg
	r.mu.Unlock()

	if _, err := r.GetClient(ctx, name); err != nil {
		r.mu.Lock()
		delete(r.overrides, name)
		r.mu.Unlock()
		return err
	}
	return nil
}

// RemoveEndpoint drops an endpoint's connection and override. Removing
// the active endpoint is refused so the registry always keeps a usable
// default.
func (r *Registry) RemoveEndpoint(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == r.active {
		return fmt.Errorf("cannot remove active endpoint %q", name)
	}
	if _, ok := r.conns[name]; ok {
		delete(r.conns, name)
		liveConnections.Dec()
	}
	delete(r.overrides, name)
	return nil
}

// RefreshEndpoints re-reads the known endpoint set from the resolver,
// drops connections for names that disappeared and repoints the active
// endpoint when it no longer exists.
func (r *Registry) RefreshEndpoints() []string {
	known := r.resolver.ListKnownEndpointNames()

	r.mu.Lock()
	defer r.mu.Unlock()

	valid := make(map[string]bool, len(known)+len(r.overrides))
	for _, name := range known {
		valid[name] = true
	}
	for name := range r.overrides {
		valid[name] = true
	}

	for name := range r.conns {
		if !valid[name] {
			delete(r.conns, name)
			liveConnections.Dec()
			r.logger.Info().Str("endpoint", name).Msg("Dropped connection for removed endpoint")
		}
	}

	if !valid[r.active] && len(known) > 0 {
		r.active = known[0]
		r.logger.Warn().Str("endpoint", r.active).Msg("Active endpoint vanished, repointed")
	}

	names := make([]string, 0, len(valid))
	for name := range valid {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Disconnect drops the connection for name, if any. The configuration
// stays registered; the next GetClient reconnects lazily.
func (r *Registry) Disconnect(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[name]; !ok {
		return false
	}
	delete(r.conns, name)
	liveConnections.Dec()
	return true
}

// DisconnectAll drops every connection. Idempotent; used at shutdown.
func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.conns) == 0 {
		return
	}
	liveConnections.Sub(float64(len(r.conns)))
	r.conns = make(map[string]*connection)
	r.logger.Info().Msg("All endpoint connections dropped")
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
