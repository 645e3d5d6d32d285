// Package client provides the caching Odoo JSON-RPC client: one
// authenticated session per endpoint, TTL memoization of read-only
// calls, and redirect-following transport.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hadoopt/odoo-bridge/pkg/cache"
	"github.com/hadoopt/odoo-bridge/pkg/config"
	"github.com/hadoopt/odoo-bridge/pkg/logging"
)

// cacheableMethods is the fixed set of idempotent read methods whose
// results are memoized.
var cacheableMethods = map[string]bool{
	"search":      true,
	"read":        true,
	"search_read": true,
	"fields_get":  true,
}

// Client executes remote calls against one endpoint. Safe for
// concurrent use; the cache store carries its own lock and no lock is
// held across network I/O.
type Client struct {
	cfg       config.EndpointConfig
	transport *transport
	store     *cache.Store
	uid       int64
	logger    zerolog.Logger
}

// New creates a client and authenticates its session. Authentication
// rejection returns a KindAuthentication error; transport failures
// return KindUnavailable.
func New(ctx context.Context, cfg config.EndpointConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("endpoint config: %w", err)
	}
	cfg.URL = config.NormalizeURL(cfg.URL)

	logger := logging.NewLogger("odoo-client").With().Str("endpoint", cfg.URL).Logger()

	c := &Client{
		cfg:       cfg,
		transport: newTransport(cfg.URL, cfg.Timeout, cfg.VerifyTLS, logger),
		logger:    logger,
	}
	if cfg.CacheEnabled {
		c.store = cache.NewStore(cfg.CacheTTL)
	}

	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// authenticate obtains the session user id.
func (c *Client) authenticate(ctx context.Context) error {
	c.logger.Info().Str("db", c.cfg.Database).Msg("Connecting to Odoo")

	result, err := c.transport.call(ctx, "common", "authenticate",
		[]any{c.cfg.Database, c.cfg.Username, c.cfg.Password, map[string]any{}})
	if err != nil {
		rpcErrorsTotal.WithLabelValues(string(KindUnavailable)).Inc()
		return &RPCError{
			Kind:    KindUnavailable,
			Message: "authentication request failed",
			Err:     err,
		}
	}

	// The remote side reports bad credentials as a false result, not
	// as a fault.
	uid, ok := result.(float64)
	if !ok || uid <= 0 {
		rpcErrorsTotal.WithLabelValues(string(KindAuthentication)).Inc()
		c.logger.Error().Str("user", c.cfg.Username).Msg("Authentication rejected")
		return &RPCError{
			Kind:    KindAuthentication,
			Message: fmt.Sprintf("invalid credentials for %q on %q", c.cfg.Username, c.cfg.Database),
			Err:     ErrAuthenticationFailed,
		}
	}

	c.uid = int64(uid)
	c.logger.Info().Int64("uid", c.uid).Msg("Authentication successful")
	return nil
}

// Call executes a named method on a model. Results of read-only methods
// are served from cache while fresh; failures are never cached.
func (c *Client) Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	kwargs = sanitizeKwargs(kwargs)
	cacheable := c.store != nil && cacheableMethods[method]

	var key cache.Key
	if cacheable {
		var err error
		key, err = cache.NewKey(model, method, args, kwargs)
		if err != nil {
			// Unserializable arguments fall through to a live call.
			c.logger.Warn().Err(err).Str("model", model).Str("method", method).
				Msg("Cache key error, bypassing cache")
			cacheable = false
		} else if value, hit := c.store.Get(key); hit {
			c.logger.Debug().
				Str("model", model).
				Str("method", method).
				Bool("cache_hit", true).
				Msg("Serving call from cache")
			return value, nil
		}
	}

	result, err := c.execute(ctx, model, method, args, kwargs)
	if err != nil {
		return nil, err
	}

	if cacheable {
		c.store.Put(key, result)
	}
	return result, nil
}

// execute issues an execute_kw call, bypassing the cache.
func (c *Client) execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	start := time.Now()
	defer func() {
		rpcRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	if args == nil {
		args = []any{}
	}
	execArgs := []any{c.cfg.Database, c.uid, c.cfg.Password, model, method, args}
	// Only ship kwargs when non-empty; strict endpoints reject empty
	// keyword maps for some methods.
	if len(kwargs) > 0 {
		execArgs = append(execArgs, kwargs)
	}

	result, err := c.transport.call(ctx, "object", "execute_kw", execArgs)
	if err != nil {
		rpcErr := remoteErr(model, method, "execute_kw failed", err)
		rpcRequestsTotal.WithLabelValues(method, "error").Inc()
		rpcErrorsTotal.WithLabelValues(string(rpcErr.Kind)).Inc()
		c.logger.Error().Err(err).
			Str("model", model).
			Str("method", method).
			Msg("Remote call failed")
		return nil, rpcErr
	}

	rpcRequestsTotal.WithLabelValues(method, "ok").Inc()
	return result, nil
}

// Probe verifies the session is still usable by re-reading the
// authenticated identity. Bypasses the cache.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.execute(ctx, "res.users", "read",
		[]any{[]any{c.uid}, []string{"name"}}, nil)
	return err
}

// Invalidate removes cached entries for model/method. Empty model
// clears the whole cache; empty method clears all methods of the model.
func (c *Client) Invalidate(model, method string) int {
	if c.store == nil {
		return 0
	}
	removed := c.store.Invalidate(model, method)
	c.logger.Debug().
		Str("model", model).
		Str("method", method).
		Int("removed", removed).
		Msg("Cache invalidated")
	return removed
}

// SweepExpired removes cache entries older than maxAge (the client TTL
// when maxAge is zero). Returns the number removed.
func (c *Client) SweepExpired(maxAge time.Duration) int {
	if c.store == nil {
		return 0
	}
	return c.store.SweepExpired(maxAge)
}

// CacheLen returns the number of cached entries.
func (c *Client) CacheLen() int {
	if c.store == nil {
		return 0
	}
	return c.store.Len()
}

// UID returns the authenticated session user id.
func (c *Client) UID() int64 { return c.uid }

// URL returns the endpoint address.
func (c *Client) URL() string { return c.cfg.URL }

// Database returns the endpoint's database name.
func (c *Client) Database() string { return c.cfg.Database }

// CacheEnabled reports whether read-call memoization is active.
func (c *Client) CacheEnabled() bool { return c.store != nil }

// sanitizeKwargs coerces pagination parameters to integers so strict
// endpoints do not reject the parameter shape.
func sanitizeKwargs(kwargs map[string]any) map[string]any {
	if len(kwargs) == 0 {
		return nil
	}
	out := make(map[string]any, len(kwargs))
	for key, value := range kwargs {
		if value == nil {
			continue
		}
		if key == "offset" || key == "limit" {
			out[key] = coerceInt(value)
			continue
		}
		out[key] = value
	}
	return out
}

func coerceInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
