// Package api serves the scanning and WHOIS engines over HTTP.
package api

import (
	"context"
	"database/sql"
	"expvar"
	"log/slog"
	"net/http"

	"github.com/CZERTAINLY/netprobe/internal/log"
	"github.com/CZERTAINLY/netprobe/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const requestIDHeader = "X-Request-ID"

// DefaultCORSOrigins are allowed when the configuration lists none
var DefaultCORSOrigins = []string{
	"http://127.0.0.1:5173",
	"http://localhost:5173",
}

//go:generate mockgen -destination=./mock/contracts.go -package=mock github.com/CZERTAINLY/netprobe/internal/api Scanner,SupervisorContract,WhoisLookup
type Scanner interface {
	Scan(ctx context.Context, req model.ScanRequest) []model.PortResult
}

type WhoisLookup interface {
	Lookup(ctx context.Context, target string) model.WhoisRecord
}

type SupervisorContract interface {
	Jobs(ctx context.Context) []model.Job
	JobConfiguration(ctx context.Context, name string) (model.Job, error)
	Start(name string)
}

type Server struct {
	origins []string
	scanner Scanner
	whois   WhoisLookup
	sv      SupervisorContract
	db      *sql.DB
}

// New returns the API server. db holds the run history written by the
// supervisor.
func New(cfg model.Server, scanner Scanner, whois WhoisLookup, sv SupervisorContract, db *sql.DB) *Server {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}
	return &Server{
		origins: origins,
		scanner: scanner,
		whois:   whois,
		sv:      sv,
		db:      db,
	}
}

// Handler returns the routes wrapped by the CORS middleware. CORS runs
// outside of the router, so preflight requests reach it for every path.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.Use(requestID)
	r.Use(httpInfoContext)

	r.HandleFunc("/", s.root).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/func/ports", s.scanPorts).Methods(http.MethodPost)
	v1.HandleFunc("/func/whois", s.lookupWhois).Methods(http.MethodPost)
	v1.HandleFunc("/jobs", s.listJobs).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{name}", s.getJob).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{name}/start", s.startJob).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{name}/runs", s.listRuns).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{uuid}", s.getRun).Methods(http.MethodGet)

	r.Handle("/debug/vars", expvar.Handler()).Methods(http.MethodGet)

	for _, router := range []*mux.Router{r, v1} {
		router.NotFoundHandler = http.HandlerFunc(notFound)
		router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:       s.origins,
		AllowCredentials:     true,
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       []string{"*"},
		MaxAge:               600,
		OptionsSuccessStatus: http.StatusOK,
	})
	return c.Handler(r)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := log.ContextAttrs(r.Context(), slog.String("request-id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func httpInfoContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// Add structured HTTP attributes to context
		ctx := log.ContextAttrs(r.Context(), slog.Group("http-info",
			slog.String("method", r.Method),
			slog.String("url-path", r.URL.Path),
		))

		// Pass updated request into chain
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}
