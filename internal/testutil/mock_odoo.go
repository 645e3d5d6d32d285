// Package testutil provides a configurable mock Odoo JSON-RPC server
// for tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// Handler produces the result (or fault) for one mocked model method.
type Handler func(args []any, kwargs map[string]any) (any, error)

// Call records one execute_kw invocation.
type Call struct {
	Model  string
	Method string
	Args   []any
	Kwargs map[string]any
}

// MockOdoo is a mock Odoo JSON-RPC endpoint. Register handlers per
// model.method; unregistered methods return a fault so tests notice
// unexpected traffic.
type MockOdoo struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call

	// UID is the user id granted on successful authentication.
	UID int64

	// FailAuth makes authentication return a false uid.
	FailAuth bool

	// RedirectHops makes the server answer with that many 302 hops
	// before serving the RPC endpoint.
	RedirectHops int

	// RequestCount counts HTTP requests, redirects included.
	RequestCount int

	// AuthCount counts authenticate calls.
	AuthCount int
}

// NewMockOdoo starts a mock server. The authenticated user's own
// res.users record is pre-mocked so liveness probes succeed.
func NewMockOdoo() *MockOdoo {
	m := &MockOdoo{
		handlers: make(map[string]Handler),
		UID:      2,
	}
	m.Handle("res.users", "read", func(args []any, kwargs map[string]any) (any, error) {
		return []any{map[string]any{"id": float64(m.UID), "name": "Admin", "login": "admin"}}, nil
	})
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the mock server base URL.
func (m *MockOdoo) URL() string {
	return m.server.URL
}

// Close shuts the server down.
func (m *MockOdoo) Close() {
	m.server.Close()
}

// Handle registers the handler for model.method.
func (m *MockOdoo) Handle(model, method string, fn Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[model+"."+method] = fn
}

// Calls returns all recorded execute_kw invocations.
func (m *MockOdoo) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns how many times model.method was invoked.
func (m *MockOdoo) CallCount(model, method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.calls {
		if call.Model == model && call.Method == method {
			count++
		}
	}
	return count
}

// Reset clears recorded calls and counters.
func (m *MockOdoo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.RequestCount = 0
	m.AuthCount = 0
}

type rpcEnvelope struct {
	Method string `json:"method"`
	ID     string `json:"id"`
	Params struct {
		Service string `json:"service"`
		Method  string `json:"method"`
		Args    []any  `json:"args"`
	} `json:"params"`
}

func (m *MockOdoo) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	hops := m.RedirectHops
	m.mu.Unlock()

	// Simulated redirect chain: /jsonrpc -> /r/1 -> ... -> /r/hops.
	if hops > 0 {
		at := 0
		if rest, ok := strings.CutPrefix(r.URL.Path, "/r/"); ok {
			at, _ = strconv.Atoi(rest)
		}
		if at < hops {
			w.Header().Set("Location", fmt.Sprintf("/r/%d", at+1))
			w.WriteHeader(http.StatusFound)
			return
		}
	}

	var env rpcEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch env.Params.Service {
	case "common":
		m.serveCommon(w, env)
	case "object":
		m.serveObject(w, env)
	default:
		writeFault(w, env.ID, fmt.Sprintf("unknown service %q", env.Params.Service))
	}
}

func (m *MockOdoo) serveCommon(w http.ResponseWriter, env rpcEnvelope) {
	if env.Params.Method != "authenticate" {
		writeFault(w, env.ID, fmt.Sprintf("unknown common method %q", env.Params.Method))
		return
	}

	m.mu.Lock()
	m.AuthCount++
	failed := m.FailAuth
	uid := m.UID
	m.mu.Unlock()

	if failed {
		writeResult(w, env.ID, false)
		return
	}
	writeResult(w, env.ID, uid)
}

func (m *MockOdoo) serveObject(w http.ResponseWriter, env rpcEnvelope) {
	// execute_kw args: db, uid, password, model, method, args[, kwargs]
	if env.Params.Method != "execute_kw" || len(env.Params.Args) < 6 {
		writeFault(w, env.ID, "malformed execute_kw call")
		return
	}

	model, _ := env.Params.Args[3].(string)
	method, _ := env.Params.Args[4].(string)
	callArgs, _ := env.Params.Args[5].([]any)
	var kwargs map[string]any
	if len(env.Params.Args) > 6 {
		kwargs, _ = env.Params.Args[6].(map[string]any)
	}

	m.mu.Lock()
	m.calls = append(m.calls, Call{Model: model, Method: method, Args: callArgs, Kwargs: kwargs})
	handler, ok := m.handlers[model+"."+method]
	m.mu.Unlock()

	if !ok {
		writeFault(w, env.ID, fmt.Sprintf("no handler for %s.%s", model, method))
		return
	}

	result, err := handler(callArgs, kwargs)
	if err != nil {
		writeFault(w, env.ID, err.Error())
		return
	}
	writeResult(w, env.ID, result)
}

func writeResult(w http.ResponseWriter, id string, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func writeFault(w http.ResponseWriter, id string, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    200,
			"message": "Odoo Server Error",
			"data":    map[string]any{"message": message},
		},
	})
}
