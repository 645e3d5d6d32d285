package registry

import (
	"context"
	"time"
)

// EndpointInfo describes one endpoint's connection state and
// authenticated identity.
type EndpointInfo struct {
	Name          string        `json:"name"`
	URL           string        `json:"url"`
	Database      string        `json:"database"`
	UID           int64         `json:"uid"`
	UserName      string        `json:"user_name"`
	Login         string        `json:"login"`
	ConnectionAge time.Duration `json:"connection_age"`
	CacheEntries  int           `json:"cache_entries"`
	Active        bool          `json:"active"`
}

// EndpointInfo returns connection details for name (the active endpoint
// when empty), connecting if necessary.
func (r *Registry) EndpointInfo(ctx context.Context, name string) (EndpointInfo, error) {
	r.mu.Lock()
	if name == "" {
		name = r.active
	}
	r.mu.Unlock()

	c, err := r.GetClient(ctx, name)
	if err != nil {
		return EndpointInfo{}, err
	}

	info := EndpointInfo{
		Name:         name,
		URL:          c.URL(),
		Database:     c.Database(),
		UID:          c.UID(),
		CacheEntries: c.CacheLen(),
	}

	r.mu.Lock()
	if conn, ok := r.conns[name]; ok {
		info.ConnectionAge = conn.age()
	}
	info.Active = name == r.active
	r.mu.Unlock()

	users, err := c.ReadRecords(ctx, "res.users", []int64{c.UID()}, []string{"name", "login"})
	if err == nil && len(users) > 0 {
		info.UserName, _ = users[0].Str("name")
		info.Login, _ = users[0].Str("login")
	}
	return info, nil
}
