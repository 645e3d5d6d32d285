package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxRedirects is the transport redirect hop limit.
const maxRedirects = 5

// rpcPath is the JSON-RPC endpoint path on the remote server.
const rpcPath = "/jsonrpc"

// rpcRequest is a JSON-RPC 2.0 call envelope.
type rpcRequest struct {
	Jsonrpc string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      string    `json:"id"`
}

// rpcParams addresses a service method on the remote side.
type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	Jsonrpc string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Result  any       `json:"result"`
	Error   *rpcFault `json:"error"`
}

// rpcFault is a protocol-level failure reported by the remote side.
type rpcFault struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// Error implements the error interface.
func (f *rpcFault) Error() string {
	if detail := f.detail(); detail != "" {
		return fmt.Sprintf("rpc fault %d: %s: %s", f.Code, f.Message, detail)
	}
	return fmt.Sprintf("rpc fault %d: %s", f.Code, f.Message)
}

// detail extracts the server-side exception message, when present.
func (f *rpcFault) detail() string {
	if f.Data == nil {
		return ""
	}
	if msg, ok := f.Data["message"].(string); ok && msg != "" {
		return msg
	}
	return ""
}

// transport issues JSON-RPC calls over HTTP. It follows redirect
// responses itself, re-issuing the POST against the redirected location
// up to maxRedirects hops. TLS verification is a per-endpoint switch.
type transport struct {
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

func newTransport(endpoint string, timeout time.Duration, verifyTLS bool, logger zerolog.Logger) *transport {
	httpTransport := http.DefaultTransport.(*http.Transport).Clone()
	if !verifyTLS {
		httpTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &transport{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: httpTransport,
			// Redirects are handled manually in call.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// call executes one JSON-RPC request and decodes its result.
func (t *transport) call(ctx context.Context, service, method string, args []any) (any, error) {
	reqID := uuid.NewString()
	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		Method:  "call",
		Params: rpcParams{
			Service: service,
			Method:  method,
			Args:    args,
		},
		ID: reqID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode rpc request: %w", err)
	}

	target := t.endpoint + rpcPath

	for hop := 0; hop <= maxRedirects; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create rpc request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("rpc request to %s: %w", target, err)
		}

		if location, redirected := redirectLocation(resp); redirected {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			next, err := resolveLocation(resp.Request.URL, location)
			if err != nil {
				return nil, fmt.Errorf("invalid redirect location %q: %w", location, err)
			}
			t.logger.Debug().
				Str("request_id", reqID).
				Str("from", target).
				Str("to", next).
				Int("hop", hop+1).
				Msg("Following RPC redirect")
			target = next
			continue
		}

		return decodeResponse(resp)
	}

	return nil, fmt.Errorf("%w: gave up after %d hops", ErrTooManyRedirects, maxRedirects)
}

// redirectLocation reports whether resp is a followable redirect.
func redirectLocation(resp *http.Response) (string, bool) {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		location := resp.Header.Get("Location")
		return location, location != ""
	default:
		return "", false
	}
}

// resolveLocation resolves a possibly relative Location header against
// the request URL.
func resolveLocation(base *url.URL, location string) (string, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// decodeResponse reads and decodes a JSON-RPC response body.
func decodeResponse(resp *http.Response) (any, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected HTTP status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}
	return envelope.Result, nil
}
