package http

import (
	"context"
	"net/http"

	"github.com/platform-mesh/golang-commons/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server interface {
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Addr() string
}

type ServerConfig struct {
	// Handler serves every request of the server.
	Handler http.Handler

	// Addr is the address the server listens on
	Addr string
}

type server struct {
	log    *logger.Logger
	Server *http.Server
}

func NewServer(log *logger.Logger, c ServerConfig) Server {
	return &server{
		log: log,
		Server: &http.Server{
			Handler: c.Handler,
			Addr:    c.Addr,
		},
	}
}

// GraphQLMux routes /graphql and / to the gateway.
func GraphQLMux(gateway http.Handler) *http.ServeMux {
	s := http.NewServeMux()
	s.Handle("/graphql", gateway)
	s.Handle("/", gateway)
	return s
}

// HealthMux answers /healthz always and /readyz once ready reports true.
func HealthMux(ready func() bool) *http.ServeMux {
	s := http.NewServeMux()
	s.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	s.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	return s
}

func MetricsMux() *http.ServeMux {
	s := http.NewServeMux()
	s.Handle("/metrics", promhttp.Handler())
	return s
}

func (s *server) Run(ctx context.Context) error {
	s.log.Info().Str("addr", s.Server.Addr).Msg("Starting HTTP server")
	return s.Server.ListenAndServe()
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}

func (s *server) Addr() string {
	return s.Server.Addr
}
