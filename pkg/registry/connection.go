package registry

import (
	"time"

	"github.com/hadoopt/odoo-bridge/pkg/client"
)

// connection is one live generation of an authenticated endpoint
// session. A stale connection is discarded as a whole; there is no
// in-place refresh.
type connection struct {
	client    *client.Client
	createdAt time.Time
}

func newConnection(c *client.Client) *connection {
	return &connection{
		client:    c,
		createdAt: time.Now(),
	}
}

// age returns how long this generation has existed.
func (c *connection) age() time.Duration {
	return time.Since(c.createdAt)
}
