package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hadoopt/odoo-bridge/internal/testutil"
)

func TestTransport_FollowsRedirects(t *testing.T) {
	mock := testutil.NewMockOdoo()
	defer mock.Close()
	mock.RedirectHops = 3
	mock.Handle("res.partner", "search_count", func(args []any, kwargs map[string]any) (any, error) {
		return float64(12), nil
	})

	c := newTestClient(t, mock, 0)
	count, err := c.SearchCount(context.Background(), "res.partner", nil)
	if err != nil {
		t.Fatalf("SearchCount() through redirects error = %v", err)
	}
	if count != 12 {
		t.Errorf("SearchCount() = %d, want 12", count)
	}
}

func TestTransport_TooManyRedirects(t *testing.T) {
	mock := testutil.NewMockOdoo()
	defer mock.Close()
	mock.RedirectHops = maxRedirects + 2

	_, err := New(context.Background(), testConfig(mock, 0))
	if err == nil {
		t.Fatal("New() through an endless redirect chain should fail")
	}
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Errorf("error = %v, want ErrTooManyRedirects in chain", err)
	}
}

func TestTransport_ConnectionError(t *testing.T) {
	tr := newTransport("http://127.0.0.1:1", time.Second, true, zerolog.Nop())
	_, err := tr.call(context.Background(), "common", "version", nil)
	if err == nil {
		t.Fatal("call() against a closed port should fail")
	}
}

func TestRPCFault_Error(t *testing.T) {
	tests := []struct {
		name  string
		fault rpcFault
		want  string
	}{
		{
			name:  "with detail",
			fault: rpcFault{Code: 200, Message: "Odoo Server Error", Data: map[string]any{"message": "Invalid field"}},
			want:  "rpc fault 200: Odoo Server Error: Invalid field",
		},
		{
			name:  "without detail",
			fault: rpcFault{Code: 100, Message: "Access Denied"},
			want:  "rpc fault 100: Access Denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fault.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
