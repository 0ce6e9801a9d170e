// File: cmd/portal/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"auth_portal/internal/app"
	"auth_portal/internal/auth"
	"auth_portal/internal/config"
	"auth_portal/internal/jobs"
	"auth_portal/internal/middleware"
	"auth_portal/internal/storage"
	"auth_portal/internal/web"

	"github.com/google/wire"
)

var sessionSet = wire.NewSet(
	provideLogger,
	storage.New,
	auth.NewSession,
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		sessionSet,
		provideBackendClient,
		jobs.NewBackendProbeJob,

		wire.Bind(new(web.SessionService), new(*auth.Session)),
		wire.Bind(new(middleware.SessionChecker), new(*auth.Session)),
		wire.Bind(new(web.UserFetcher), new(*auth.Client)),
		wire.Bind(new(web.BackendStatus), new(*jobs.BackendProbeJob)),
		web.NewHandler,

		app.NewServer,
	)
	return nil, nil, nil
}

// initializeSession builds only the session, for the one-shot CLI commands.
func initializeSession(cfg *config.Config) (*auth.Session, func(), error) {
	wire.Build(sessionSet)
	return nil, nil, nil
}
