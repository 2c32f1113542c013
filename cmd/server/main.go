package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cbodonnell/openworld-api/pkg/api"
	authproviders "github.com/cbodonnell/openworld-api/pkg/auth/providers"
	"github.com/cbodonnell/openworld-api/pkg/config"
	"github.com/cbodonnell/openworld-api/pkg/log"
	"github.com/cbodonnell/openworld-api/pkg/repositories"
	"github.com/cbodonnell/openworld-api/pkg/version"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load settings: %v", err))
	}

	logLevel := settings.LogLevel
	if settings.Debug {
		logLevel = "debug"
	}
	parsedLogLevel, err := log.ParseLogLevel(logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting %s version %s (%s)", settings.AppName, version.Get(), settings.Environment)
	ctx := context.Background()

	authProvider, err := authproviders.NewFirebaseAuthProvider(ctx, settings.FirebaseProjectID, settings.FirebaseAPIKey)
	if err != nil {
		panic(fmt.Sprintf("Failed to create Firebase auth provider: %v", err))
	}

	var repository repositories.Repository
	switch {
	case settings.DatabaseURL != "":
		repository, err = repositories.NewPostgresRepository(ctx, settings.DatabaseURL)
		if err != nil {
			panic(fmt.Sprintf("Failed to create Postgres repository: %v", err))
		}
	case settings.SQLitePath != "":
		repository, err = repositories.NewSQLiteRepository(ctx, settings.SQLitePath, settings.SQLiteMigrations)
		if err != nil {
			panic(fmt.Sprintf("Failed to create SQLite repository: %v", err))
		}
	default:
		panic("No store configured: set DATABASE_URL or SQLITE_PATH")
	}
	defer repository.Close(ctx)

	apiServerOpts := api.NewAPIServerOptions{
		Settings:     settings,
		AuthProvider: authProvider,
		Repository:   repository,
	}
	if settings.TLSCertFile != "" && settings.TLSKeyFile != "" {
		apiServerOpts.TLS = &api.TLSConfig{
			CertFile: settings.TLSCertFile,
			KeyFile:  settings.TLSKeyFile,
		}
	}
	server := api.NewAPIServer(apiServerOpts)
	go server.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	if err := server.Stop(ctx); err != nil {
		log.Error("Failed to stop server: %v", err)
	}
}
