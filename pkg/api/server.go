package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cbodonnell/monuments/pkg/api/handlers"
	"github.com/cbodonnell/monuments/pkg/api/middleware"
	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/gorilla/mux"
)

const (
	DefaultPort      = 3000
	DefaultAssetsDir = "assets"
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port      int
	TLS       *TLSConfig
	Completer handlers.MonumentCompleter
	// AssetsDir is served under /assets/ and receives generated images
	AssetsDir string
	// PublicURL is the externally reachable base URL of this server
	PublicURL string
}

// NewAPIServer creates a new http.Server for generation callbacks and assets
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	assetsDir := opts.AssetsDir
	if assetsDir == "" {
		assetsDir = DefaultAssetsDir
	}
	publicURL := opts.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	}

	router := mux.NewRouter()
	router.HandleFunc("/generation", handlers.HandleGeneration(opts.Completer, assetsDir, publicURL)).Methods(http.MethodPost)
	router.HandleFunc("/healthz", handlers.HandleHealth()).Methods(http.MethodGet)
	router.HandleFunc("/metrics", handlers.HandleMetrics()).Methods(http.MethodGet)
	router.PathPrefix("/assets/").
		Handler(http.StripPrefix("/assets/", handlers.HandleAssets(assetsDir))).
		Methods(http.MethodGet, http.MethodHead)

	cors := middleware.NewCORSMiddleware()
	logging := middleware.NewLoggingMiddleware()
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: logging(cors(router)),
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// Handler returns the routed handler, for serving without a listener.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks until the APIServer is stopped or fails to serve
func (s *APIServer) Start() error {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return nil
		}
		return fmt.Errorf("API server error: %v", err)
	}
	return nil
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
