// Package api provides factory implementations for dependency injection
package api

import (
	"context"
	"fmt"

	"github.com/ssargent/flightlog/pkg/catalog"
	"github.com/ssargent/flightlog/pkg/ulog"
	"go.uber.org/zap"
)

// DefaultLogServiceFactory is the default implementation of LogServiceFactory
type DefaultLogServiceFactory struct{}

// NewLogServiceFactory creates a new log service factory
func NewLogServiceFactory() LogServiceFactory {
	return &DefaultLogServiceFactory{}
}

// CreateLogService opens the catalog, if any, and creates a log service
// that owns it.
func (f *DefaultLogServiceFactory) CreateLogService(
	catalogDir string,
	parser ulog.ParserConfig,
	metrics *Metrics,
	logger *zap.Logger,
) (ILogService, error) {
	config := LogServiceConfig{
		Parser:  parser,
		Metrics: metrics,
		Logger:  logger,
	}
	if catalogDir != "" {
		c, err := catalog.Open(catalogDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		config.Catalog = c
	}
	return NewLogService(config), nil
}

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(
	ctx context.Context,
	service ILogService,
	metrics *Metrics,
	config ServerConfig,
	logger *zap.Logger,
) error {
	return StartServer(ctx, service, metrics, config, logger)
}
