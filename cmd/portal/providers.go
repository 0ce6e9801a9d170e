package main

import (
	"auth_portal/internal/auth"
	"auth_portal/internal/config"
	"auth_portal/internal/platform/logger"

	"go.uber.org/zap"
)

// provideLogger builds the application logger and a cleanup that flushes it.
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		// Sync on stderr returns EINVAL on some platforms; nothing to act on.
		_ = l.Sync()
	}, nil
}

// provideBackendClient exposes the session's intercepted backend client.
func provideBackendClient(sess *auth.Session) *auth.Client {
	return sess.Client()
}
