// Package config resolves endpoint configurations from files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound indicates no configuration exists for the requested endpoint.
var ErrNotFound = errors.New("endpoint configuration not found")

// Defaults applied when a configuration source omits optional settings.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultCacheTTL = 300 * time.Second
)

var schemeRe = regexp.MustCompile(`^https?://`)

// EndpointConfig holds the resolved settings for one named endpoint.
// Instances are immutable once returned by a Resolver.
type EndpointConfig struct {
	URL          string        `json:"url"`
	Database     string        `json:"db"`
	Username     string        `json:"username"`
	Password     string        `json:"password"`
	Timeout      time.Duration `json:"-"`
	VerifyTLS    bool          `json:"verify_ssl"`
	CacheEnabled bool          `json:"cache_enabled"`
	CacheTTL     time.Duration `json:"-"`

	// Serialized forms of the duration fields, in seconds.
	TimeoutSeconds  int `json:"timeout"`
	CacheTTLSeconds int `json:"cache_ttl"`
}

// Validate checks that all required connection settings are present.
func (c EndpointConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.Database == "" {
		return fmt.Errorf("db is required")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// NormalizeURL ensures the URL carries a scheme and no trailing slash.
func NormalizeURL(url string) string {
	if !schemeRe.MatchString(url) {
		url = "http://" + url
	}
	return strings.TrimRight(url, "/")
}

// normalize applies URL normalization and defaulting in place.
func (c *EndpointConfig) normalize() {
	c.URL = NormalizeURL(c.URL)
	if c.Timeout <= 0 {
		if c.TimeoutSeconds > 0 {
			c.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
		} else {
			c.Timeout = DefaultTimeout
		}
	}
	if c.CacheTTL <= 0 {
		if c.CacheTTLSeconds > 0 {
			c.CacheTTL = time.Duration(c.CacheTTLSeconds) * time.Second
		} else {
			c.CacheTTL = DefaultCacheTTL
		}
	}
	c.TimeoutSeconds = int(c.Timeout / time.Second)
	c.CacheTTLSeconds = int(c.CacheTTL / time.Second)
}

// defaultDirs returns the default config search path.
func defaultDirs() []string {
	dirs := []string{"config"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "odoo-bridge"))
	}
	return dirs
}
