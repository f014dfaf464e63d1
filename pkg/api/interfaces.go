// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/flightlog/pkg/ulog"
	"go.uber.org/zap"
)

// LogServiceFactory creates log services
type LogServiceFactory interface {
	// CreateLogService creates a log service. An empty catalogDir disables
	// the catalog.
	CreateLogService(catalogDir string, parser ulog.ParserConfig, metrics *Metrics, logger *zap.Logger) (ILogService, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves until ctx is cancelled
	StartServer(ctx context.Context, service ILogService, metrics *Metrics, config ServerConfig, logger *zap.Logger) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
