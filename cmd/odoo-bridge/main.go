// odoo-bridge exposes the endpoint registry, the caching RPC client and
// the batch engine over a small HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hadoopt/odoo-bridge/pkg/analysis"
	"github.com/hadoopt/odoo-bridge/pkg/batch"
	"github.com/hadoopt/odoo-bridge/pkg/client"
	"github.com/hadoopt/odoo-bridge/pkg/config"
	"github.com/hadoopt/odoo-bridge/pkg/discovery"
	"github.com/hadoopt/odoo-bridge/pkg/logging"
	"github.com/hadoopt/odoo-bridge/pkg/registry"
)

const requestTimeout = 5 * time.Minute

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo))),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
	})

	resolver := config.NewResolver()
	reg, err := registry.New(registry.Config{
		Resolver:           resolver,
		DefaultEndpoint:    getEnv("ODOO_DEFAULT_ENDPOINT", ""),
		ConnectionValidity: durationEnv("ODOO_CONNECTION_VALIDITY", registry.DefaultConnectionValidity),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create endpoint registry")
	}

	srv := &server{
		registry: reg,
		resolver: resolver,
		batchCfg: batch.Config{
			ChunkSize:   intEnv("BATCH_CHUNK_SIZE", batch.DefaultChunkSize),
			Concurrency: intEnv("BATCH_CONCURRENCY", batch.DefaultConcurrency),
		},
		scorer: discovery.NewScorer(discovery.DefaultConfig()),
		logger: logging.NewLogger("api"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", srv.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/endpoints", srv.handleListEndpoints).Methods(http.MethodGet)
	api.HandleFunc("/endpoints/refresh", srv.handleRefreshEndpoints).Methods(http.MethodPost)
	api.HandleFunc("/endpoints/{name}", srv.handleEndpointInfo).Methods(http.MethodGet)
	api.HandleFunc("/endpoints/{name}", srv.handleAddEndpoint).Methods(http.MethodPost)
	api.HandleFunc("/endpoints/{name}", srv.handleRemoveEndpoint).Methods(http.MethodDelete)
	api.HandleFunc("/endpoints/{name}/activate", srv.handleActivate).Methods(http.MethodPost)
	api.HandleFunc("/endpoints/{name}/connection", srv.handleDisconnect).Methods(http.MethodDelete)
	api.HandleFunc("/search", srv.handleSearch).Methods(http.MethodPost)
	api.HandleFunc("/batch/{operation}", srv.handleBatch).Methods(http.MethodPost)
	api.HandleFunc("/analyze", srv.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/models", srv.handleDiscoverModels).Methods(http.MethodGet)

	addr := ":" + getEnv("PORT", "8080")
	httpServer := &http.Server{
		Addr:         addr,
		Handler: ghandlers.CombinedLoggingHandler(os.Stdout,
			ghandlers.RecoveryHandler()(ghandlers.CompressHandler(router))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: requestTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Starting odoo-bridge server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Shutdown incomplete")
	}
	reg.DisconnectAll()
}

type server struct {
	registry *registry.Registry
	resolver *config.Resolver
	batchCfg batch.Config
	scorer   *discovery.Scorer
	logger   zerolog.Logger
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoints": s.registry.ListEndpoints(),
		"active":    s.registry.ActiveEndpoint(),
	})
}

func (s *server) handleRefreshEndpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoints": s.registry.RefreshEndpoints(),
		"active":    s.registry.ActiveEndpoint(),
	})
}

func (s *server) handleEndpointInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.registry.EndpointInfo(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *server) handleActivate(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.registry.SwitchActive(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"active": name})
}

func (s *server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoint":     name,
		"disconnected": s.registry.Disconnect(name),
	})
}

// handleAddEndpoint persists a new endpoint configuration and verifies
// it by connecting. The persisted file is removed again when the
// connection check fails.
func (s *server) handleAddEndpoint(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var cfg config.EndpointConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.resolver.Save(name, cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	resolved, err := s.resolver.Resolve(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.registry.AddEndpoint(r.Context(), name, resolved); err != nil {
		_ = s.resolver.Remove(name)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"endpoint":  name,
		"endpoints": s.registry.ListEndpoints(),
	})
}

// handleRemoveEndpoint drops the endpoint from the registry and deletes
// its persisted configuration. Endpoints defined only through the
// environment have no file to delete; that is not an error.
func (s *server) handleRemoveEndpoint(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.registry.RemoveEndpoint(name); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.resolver.Remove(name); err != nil && !errors.Is(err, config.ErrNotFound) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoint":  name,
		"endpoints": s.registry.ListEndpoints(),
	})
}

type searchRequest struct {
	Endpoint        string   `json:"endpoint"`
	Model           string   `json:"model"`
	Domain          []any    `json:"domain"`
	Fields          []string `json:"fields"`
	Order           string   `json:"order"`
	ChunkSize       int      `json:"chunk_size"`
	MaxRecords      int      `json:"max_records"`
	ContinueOnError bool     `json:"continue_on_error"`
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	err := s.registry.WithScopedEndpoint(r.Context(), req.Endpoint, func(c *client.Client) error {
		engine := batch.NewEngine(c, s.batchCfg)
		records, result, err := engine.SearchReadAll(r.Context(), batch.ReadJob{
			Model:           req.Model,
			Domain:          req.Domain,
			Fields:          req.Fields,
			Order:           req.Order,
			ChunkSize:       req.ChunkSize,
			MaxRecords:      req.MaxRecords,
			ContinueOnError: req.ContinueOnError,
		})
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"records": records,
			"result":  result,
		})
		return nil
	})
	if err != nil {
		s.writeError(w, err)
	}
}

type batchRequest struct {
	Endpoint string `json:"endpoint"`
	batch.MutationRequest
}

func (s *server) handleBatch(w http.ResponseWriter, r *http.Request) {
	op := batch.Operation(mux.Vars(r)["operation"])

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	err := s.registry.WithScopedEndpoint(r.Context(), req.Endpoint, func(c *client.Client) error {
		engine := batch.NewEngine(c, s.batchCfg)
		result, err := engine.Run(r.Context(), op, req.MutationRequest)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, result)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
	}
}

type analyzeRequest struct {
	Endpoint   string `json:"endpoint"`
	Model      string `json:"model"`
	Domain     []any  `json:"domain"`
	Field      string `json:"field"`
	Bins       int    `json:"bins"`
	MaxRecords int    `json:"max_records"`
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Model == "" || req.Field == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "model and field are required"})
		return
	}

	err := s.registry.WithScopedEndpoint(r.Context(), req.Endpoint, func(c *client.Client) error {
		engine := batch.NewEngine(c, s.batchCfg)
		records, _, err := engine.SearchReadAll(r.Context(), batch.ReadJob{
			Model:      req.Model,
			Domain:     req.Domain,
			Fields:     []string{req.Field},
			MaxRecords: req.MaxRecords,
		})
		if err != nil {
			return err
		}

		response := map[string]any{
			"model":   req.Model,
			"field":   req.Field,
			"records": len(records),
		}
		if stats, ok := analysis.NumericStats(records, req.Field); ok {
			response["stats"] = stats
			response["histogram"] = analysis.Histogram(analysis.NumericValues(records, req.Field), req.Bins)
		} else {
			response["frequency"] = analysis.Frequency(records, req.Field)
		}
		writeJSON(w, http.StatusOK, response)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
	}
}

func (s *server) handleDiscoverModels(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter q is required"})
		return
	}

	err := s.registry.WithScopedEndpoint(r.Context(), r.URL.Query().Get("endpoint"), func(c *client.Client) error {
		matches, err := s.scorer.DiscoverModels(r.Context(), c, query)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
		return nil
	})
	if err != nil {
		s.writeError(w, err)
	}
}

// writeError maps the client error taxonomy onto HTTP status codes.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrUnknownEndpoint), errors.Is(err, config.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, batch.ErrInvalidOperation):
		status = http.StatusBadRequest
	case errors.Is(err, client.ErrAuthenticationFailed):
		status = http.StatusUnauthorized
	default:
		if rpcErr, ok := client.AsRPCError(err); ok && rpcErr.Kind == client.KindUnavailable {
			status = http.StatusBadGateway
		}
	}

	s.logger.Error().Err(err).Int("status", status).Msg("Request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
