package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cbodonnell/openworld-api/pkg/api/handlers"
	"github.com/cbodonnell/openworld-api/pkg/api/middleware"
	"github.com/cbodonnell/openworld-api/pkg/api/response"
	authproviders "github.com/cbodonnell/openworld-api/pkg/auth/providers"
	"github.com/cbodonnell/openworld-api/pkg/config"
	"github.com/cbodonnell/openworld-api/pkg/log"
	"github.com/cbodonnell/openworld-api/pkg/repositories"
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
	Settings     *config.Settings
	TLS          *TLSConfig
	AuthProvider authproviders.AuthProvider
	Repository   repositories.Repository
}

// NewAPIServer creates a new http.Server for handling API requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	translator := response.NewTranslator(opts.Settings.IsProduction())
	authMiddleware := middleware.NewAuthMiddleware(opts.AuthProvider, translator)

	router := mux.NewRouter()
	router.Handle("/api", translator.Handle(handlers.HandleRoot(opts.Settings))).Methods(http.MethodGet)
	router.Handle("/api/health", translator.Handle(handlers.HandleHealth(opts.Settings))).Methods(http.MethodGet)
	router.Handle("/api/health/ready", translator.Handle(handlers.HandleReadiness(opts.Settings))).Methods(http.MethodGet)
	router.Handle("/api/health/live", translator.Handle(handlers.HandleLiveness())).Methods(http.MethodGet)

	player := router.PathPrefix("/api/v1/player").Subrouter()
	player.Use(authMiddleware)
	player.Handle("/me", translator.Handle(handlers.HandleGetPlayer(opts.Repository))).Methods(http.MethodGet)
	player.Handle("/me", translator.Handle(handlers.HandleUpdatePlayer(opts.Repository))).Methods(http.MethodPatch)
	player.Handle("/me/login-recorded", translator.Handle(handlers.HandleRecordLogin(opts.Repository))).Methods(http.MethodPost)
	player.Handle("/characters", translator.Handle(handlers.HandleListCharacters(opts.Repository))).Methods(http.MethodGet)
	player.Handle("/characters", translator.Handle(handlers.HandleCreateCharacter(opts.Repository))).Methods(http.MethodPost)
	player.Handle("/characters/{characterID}", translator.Handle(handlers.HandleGetCharacter(opts.Repository))).Methods(http.MethodGet)
	player.Handle("/characters/{characterID}", translator.Handle(handlers.HandleUpdateCharacter(opts.Repository))).Methods(http.MethodPatch)
	player.Handle("/characters/{characterID}", translator.Handle(handlers.HandleDeleteCharacter(opts.Repository))).Methods(http.MethodDelete)
	player.Handle("/characters/{characterID}/save", translator.Handle(handlers.HandleSaveCharacter(opts.Repository))).Methods(http.MethodPost)
	player.Handle("/characters/{characterID}/playtime", translator.Handle(handlers.HandleUpdatePlaytime(opts.Repository))).Methods(http.MethodPost)

	// logging wraps CORS wraps routing, so every request gets an id, timing
	// headers and a log line, including preflights and unmatched paths
	handler := middleware.RequestLogging(middleware.CORS(opts.Settings.CORSOrigins)(router))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Settings.Port),
		Handler: handler,
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// Handler exposes the fully wired handler chain for tests.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the APIServer
func (s *APIServer) Start() {
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
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
