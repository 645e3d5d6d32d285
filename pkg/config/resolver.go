package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/hadoopt/odoo-bridge/pkg/logging"
)

// DefaultEndpoint is the endpoint name used when none is given.
const DefaultEndpoint = "default"

// Resolver loads endpoint configurations. Resolution order per endpoint:
// endpoint-specific environment variables (<NAME>_ODOO_URL family),
// generic environment variables (default endpoint only), then JSON files
// in the configured directories. Resolve is cheap and may be called on
// every registry refresh.
type Resolver struct {
	dirs   []string
	logger zerolog.Logger
}

// NewResolver creates a resolver over the given config directories.
// With no directories the default search path is used.
func NewResolver(dirs ...string) *Resolver {
	if len(dirs) == 0 {
		dirs = defaultDirs()
	}
	return &Resolver{
		dirs:   dirs,
		logger: logging.NewLogger("config"),
	}
}

// Resolve loads the configuration for a named endpoint.
// Returns ErrNotFound when no source provides it.
func (r *Resolver) Resolve(name string) (EndpointConfig, error) {
	if name == "" {
		name = DefaultEndpoint
	}

	if cfg, ok := r.fromEnv(strings.ToUpper(name) + "_ODOO"); ok {
		return cfg, nil
	}
	if name == DefaultEndpoint {
		if cfg, ok := r.fromEnv("ODOO"); ok {
			return cfg, nil
		}
	}

	paths := make([]string, 0, len(r.dirs)*2)
	for _, dir := range r.dirs {
		paths = append(paths, filepath.Join(dir, name+".json"))
	}
	// Legacy single-endpoint layout.
	if name == DefaultEndpoint {
		for _, dir := range r.dirs {
			paths = append(paths, filepath.Join(dir, "config.json"))
		}
	}

	for _, path := range paths {
		cfg, err := r.fromFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				r.logger.Error().Err(err).Str("path", path).Msg("Failed to load endpoint config")
			}
			continue
		}
		return cfg, nil
	}

	// Unknown endpoints inherit the default configuration when present.
	if name != DefaultEndpoint {
		if cfg, err := r.Resolve(DefaultEndpoint); err == nil {
			return cfg, nil
		}
	}

	return EndpointConfig{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// fromEnv builds a config from <prefix>_URL, <prefix>_DB, <prefix>_USERNAME
// and <prefix>_PASSWORD. All four must be present.
func (r *Resolver) fromEnv(prefix string) (EndpointConfig, bool) {
	v := viper.New()
	for _, key := range []string{"url", "db", "username", "password", "timeout", "verify_ssl", "cache_enabled", "cache_ttl"} {
		_ = v.BindEnv(key, prefix+"_"+strings.ToUpper(key))
	}
	v.SetDefault("timeout", int(DefaultTimeout.Seconds()))
	v.SetDefault("verify_ssl", true)
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", int(DefaultCacheTTL.Seconds()))

	for _, key := range []string{"url", "db", "username", "password"} {
		if v.GetString(key) == "" {
			return EndpointConfig{}, false
		}
	}

	cfg := EndpointConfig{
		URL:             v.GetString("url"),
		Database:        v.GetString("db"),
		Username:        v.GetString("username"),
		Password:        v.GetString("password"),
		TimeoutSeconds:  v.GetInt("timeout"),
		VerifyTLS:       v.GetBool("verify_ssl"),
		CacheEnabled:    v.GetBool("cache_enabled"),
		CacheTTLSeconds: v.GetInt("cache_ttl"),
	}
	cfg.normalize()
	return cfg, true
}

// fromFile loads a single JSON config file.
func (r *Resolver) fromFile(path string) (EndpointConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return EndpointConfig{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("timeout", int(DefaultTimeout.Seconds()))
	v.SetDefault("verify_ssl", true)
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", int(DefaultCacheTTL.Seconds()))

	if err := v.ReadInConfig(); err != nil {
		return EndpointConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := EndpointConfig{
		URL:             v.GetString("url"),
		Database:        v.GetString("db"),
		Username:        v.GetString("username"),
		Password:        v.GetString("password"),
		TimeoutSeconds:  v.GetInt("timeout"),
		VerifyTLS:       v.GetBool("verify_ssl"),
		CacheEnabled:    v.GetBool("cache_enabled"),
		CacheTTLSeconds: v.GetInt("cache_ttl"),
	}
	if err := cfg.Validate(); err != nil {
		return EndpointConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// ListKnownEndpointNames returns every endpoint name discoverable from
// config files and environment variables, sorted.
func (r *Resolver) ListKnownEndpointNames() []string {
	seen := make(map[string]bool)

	for _, dir := range r.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			name = strings.TrimSuffix(name, ".json")
			if name == "config" {
				name = DefaultEndpoint
			}
			seen[name] = true
		}
	}

	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		prefix, found := strings.CutSuffix(key, "_ODOO_URL")
		if !found || prefix == "" {
			continue
		}
		if _, ok := r.fromEnv(prefix + "_ODOO"); ok {
			seen[strings.ToLower(prefix)] = true
		}
	}
	if _, ok := r.fromEnv("ODOO"); ok {
		seen[DefaultEndpoint] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save persists an endpoint configuration into the first writable
// config directory.
func (r *Resolver) Save(name string, cfg EndpointConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.normalize()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	for _, dir := range r.dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		return writeFile(filepath.Join(dir, name+".json"), data)
	}

	// No directory exists yet; create the first one.
	if err := os.MkdirAll(r.dirs[0], 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return writeFile(filepath.Join(r.dirs[0], name+".json"), data)
}

// Remove deletes a persisted endpoint configuration. The default
// endpoint cannot be removed.
func (r *Resolver) Remove(name string) error {
	if name == DefaultEndpoint {
		return fmt.Errorf("cannot remove the default endpoint configuration")
	}
	for _, dir := range r.dirs {
		path := filepath.Join(dir, name+".json")
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
