// Package server exposes the fee-manager HTTP API: the public execution
// config and mux endpoints consumed by validator clients, and the
// token-guarded admin API that manages the stored configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ethvouch/fee-manager/audit"
	"github.com/ethvouch/fee-manager/auth"
	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/muxset"
	"github.com/ethvouch/fee-manager/resolver"
)

var errServerAlreadyRunning = errors.New("server already running")

var (
	pathExecutionConfig = "/vouch/v2/execution-config/{config}"
	pathMuxKeys         = "/commit-boost/v1/mux/{name}"
	pathHealth          = "/health"
	pathMetrics         = "/metrics"
	pathAdminPrefix     = "/admin/v1"
)

// HTTPServerTimeouts are various timeouts for requests to the fee-manager HTTP server
type HTTPServerTimeouts struct {
	Read       time.Duration // Timeout for body reads. None if 0.
	ReadHeader time.Duration // Timeout for header reads. None if 0.
	Write      time.Duration // Timeout for writes. None if 0.
	Idle       time.Duration // Timeout to disconnect idle client connections. None if 0.
}

// NewDefaultHTTPServerTimeouts creates default server timeouts
func NewDefaultHTTPServerTimeouts() HTTPServerTimeouts {
	return HTTPServerTimeouts{
		Read:       4 * time.Second,
		ReadHeader: 2 * time.Second,
		Write:      6 * time.Second,
		Idle:       10 * time.Second,
	}
}

// ServiceOpts carries the dependencies of a Service. Everything is
// injected; the service holds no globals.
type ServiceOpts struct {
	ListenAddr string
	Store      database.Store
	Resolver   *resolver.Engine
	Muxes      *muxset.Manager
	Auth       *auth.Service
	Audit      *audit.Logger
	Log        *logrus.Entry
	Timeouts   HTTPServerTimeouts
}

// Service is the fee-manager HTTP service.
type Service struct {
	listenAddr string
	store      database.Store
	resolver   *resolver.Engine
	muxes      *muxset.Manager
	auth       *auth.Service
	audit      *audit.Logger
	log        *logrus.Entry
	srv        *http.Server

	serverTimeouts HTTPServerTimeouts

	registry *prometheus.Registry
	metrics  *InboundHTTPMetrics
}

// NewService creates a new fee-manager service
func NewService(opts ServiceOpts) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("no store")
	}
	if opts.Resolver == nil || opts.Muxes == nil || opts.Auth == nil {
		return nil, errors.New("missing service dependencies")
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewNopLogger()
	}

	registry := prometheus.NewRegistry()
	return &Service{
		listenAddr: opts.ListenAddr,
		store:      opts.Store,
		resolver:   opts.Resolver,
		muxes:      opts.Muxes,
		auth:       opts.Auth,
		audit:      opts.Audit,
		log:        opts.Log.WithField("module", "service"),

		serverTimeouts: opts.Timeouts,

		registry: registry,
		metrics:  NewInboundHTTPMetrics(registry),
	}, nil
}

func (s *Service) getRouter() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot)

	r.HandleFunc(pathExecutionConfig, s.handleExecutionConfig).Methods(http.MethodPost)
	r.HandleFunc(pathMuxKeys, s.handleGetMuxKeys).Methods(http.MethodGet)
	r.HandleFunc(pathHealth, s.handleHealth).Methods(http.MethodGet)
	r.Handle(pathMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	admin := r.PathPrefix(pathAdminPrefix).Subrouter()
	admin.Use(s.auth.Middleware(s.respondAuthError))

	admin.HandleFunc("/default-configs", s.handleListDefaultConfigs).Methods(http.MethodGet)
	admin.HandleFunc("/default-configs", s.handleCreateDefaultConfig).Methods(http.MethodPost)
	admin.HandleFunc("/default-configs/{name}", s.handleGetDefaultConfig).Methods(http.MethodGet)
	admin.HandleFunc("/default-configs/{name}", s.handleUpdateDefaultConfig).Methods(http.MethodPatch)
	admin.HandleFunc("/default-configs/{name}", s.handleDeleteDefaultConfig).Methods(http.MethodDelete)

	admin.HandleFunc("/proposers", s.handleListProposers).Methods(http.MethodGet)
	admin.HandleFunc("/proposers/{pubkey}", s.handleGetProposer).Methods(http.MethodGet)
	admin.HandleFunc("/proposers/{pubkey}", s.handleUpsertProposer).Methods(http.MethodPut)
	admin.HandleFunc("/proposers/{pubkey}", s.handleDeleteProposer).Methods(http.MethodDelete)

	admin.HandleFunc("/patterns", s.handleListPatterns).Methods(http.MethodGet)
	admin.HandleFunc("/patterns", s.handleCreatePattern).Methods(http.MethodPost)
	admin.HandleFunc("/patterns/{name}", s.handleGetPattern).Methods(http.MethodGet)
	admin.HandleFunc("/patterns/{name}", s.handleUpdatePattern).Methods(http.MethodPatch)
	admin.HandleFunc("/patterns/{name}", s.handleDeletePattern).Methods(http.MethodDelete)

	admin.HandleFunc("/mux", s.handleListMuxConfigs).Methods(http.MethodGet)
	admin.HandleFunc("/mux", s.handleCreateMuxConfig).Methods(http.MethodPost)
	admin.HandleFunc("/mux/{name}", s.handleGetMuxConfig).Methods(http.MethodGet)
	admin.HandleFunc("/mux/{name}", s.handleReplaceMuxKeys).Methods(http.MethodPut)
	admin.HandleFunc("/mux/{name}", s.handleDeleteMuxConfig).Methods(http.MethodDelete)
	admin.HandleFunc("/mux/{name}/keys", s.handleAddMuxKeys).Methods(http.MethodPost)
	admin.HandleFunc("/mux/{name}/keys", s.handleRemoveMuxKeys).Methods(http.MethodDelete)

	admin.HandleFunc("/tokens", s.handleListTokens).Methods(http.MethodGet)
	admin.HandleFunc("/tokens", s.handleCreateToken).Methods(http.MethodPost)
	admin.HandleFunc("/tokens/{id}", s.handleGetToken).Methods(http.MethodGet)
	admin.HandleFunc("/tokens/{id}", s.handleDeleteToken).Methods(http.MethodDelete)

	r.Use(mux.CORSMethodMiddleware(r))
	loggedRouter := httplogger.LoggingMiddlewareLogrus(s.log, r)
	return InboundHTTPMetricMiddleware(s.metrics)(loggedRouter)
}

// StartHTTPServer starts the HTTP server for this service instance
func (s *Service) StartHTTPServer() error {
	if s.srv != nil {
		return errServerAlreadyRunning
	}

	s.srv = &http.Server{
		Addr:    s.listenAddr,
		Handler: s.getRouter(),

		ReadTimeout:       s.serverTimeouts.Read,
		ReadHeaderTimeout: s.serverTimeouts.ReadHeader,
		WriteTimeout:      s.serverTimeouts.Write,
		IdleTimeout:       s.serverTimeouts.Idle,
	}

	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Service) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{}`)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pingStore(r.Context()); err != nil {
		s.log.WithError(err).Error("health check failed")
		s.respondError(w, http.StatusServiceUnavailable, codeInternalError, "database unreachable")
		return
	}
	s.respondOK(w, map[string]string{"status": "ok"})
}

// pingStore checks store liveness when the backing store supports it; the
// in-memory store used in tests does not, and is always healthy.
func (s *Service) pingStore(ctx context.Context) error {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := s.store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
