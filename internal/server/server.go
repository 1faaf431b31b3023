// Package server exposes the lab manager over HTTP: a REST API for VM
// lifecycle and pool operations, WebSocket endpoints for status
// streaming and terminal sessions, and Prometheus metrics.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/codehedgehog/virtlab/internal/ansible"
	"github.com/codehedgehog/virtlab/internal/controller"
	"github.com/codehedgehog/virtlab/internal/logger"
	"github.com/codehedgehog/virtlab/internal/pool"
	"github.com/codehedgehog/virtlab/internal/terminal"
)

// vmAPI is the VM lifecycle surface the server exposes.
//
// In production this is satisfied by *controller.Controller.
type vmAPI interface {
	Create(ctx context.Context, req controller.CreateRequest) (*controller.VM, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]controller.Summary, error)
	GetState(ctx context.Context, name string) (*controller.Status, error)
	Snapshots(ctx context.Context, name string) ([]string, error)
	ShellTarget(ctx context.Context, name string) (*controller.Target, error)
}

// poolAPI is the hot-pool surface the server exposes.
//
// In production this is satisfied by *pool.Manager.
type poolAPI interface {
	Acquire(ctx context.Context) (string, error)
	Status(ctx context.Context) []pool.SlotStatus
}

// terminalAPI serves interactive sessions.
//
// In production this is satisfied by *terminal.Manager.
type terminalAPI interface {
	Serve(ctx context.Context, conn terminal.Conn, target controller.Target, vmName, owner string) error
}

// Server routes HTTP requests to the lab manager's components.
type Server struct {
	vms    vmAPI
	pool   poolAPI
	terms  terminalAPI
	creds  *ansible.CredentialStore
	log    *logrus.Entry
	router chi.Router
}

// New wires the router. pool, terms and creds may be nil; their routes
// then answer 503/404 accordingly.
func New(vms vmAPI, poolMgr poolAPI, terms terminalAPI, creds *ansible.CredentialStore) *Server {
	s := &Server{
		vms:   vms,
		pool:  poolMgr,
		terms: terms,
		creds: creds,
		log:   logger.Component("server"),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/vms", func(r chi.Router) {
		r.Post("/create", s.handleCreate)
		r.Post("/start/{name}", s.handleStart)
		r.Post("/stop/{name}", s.handleStop)
		r.Delete("/delete/{name}", s.handleDelete)
		r.Get("/list", s.handleList)
		r.Get("/state/{name}", s.handleState)
		r.Get("/{name}/snapshots", s.handleSnapshots)
	})

	r.Route("/pool", func(r chi.Router) {
		r.Get("/", s.handlePoolStatus)
		r.Post("/acquire", s.handlePoolAcquire)
	})

	r.Route("/ansible", func(r chi.Router) {
		r.Put("/credential", s.handleSetCredential)
		r.Delete("/credential", s.handleClearCredential)
	})

	r.Route("/ws/vms/{name}", func(r chi.Router) {
		r.Get("/status", s.handleStatusStream)
		r.Get("/terminal", s.handleTerminal)
	})

	s.router = r
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
