// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/flightlog/pkg/api" //nolint:depguard
)

// Container holds all the dependencies for the application
type Container struct {
	logServiceFactory api.LogServiceFactory
	serverFactory     api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		logServiceFactory: api.NewLogServiceFactory(),
		serverFactory:     api.NewServerFactory(),
	}
}

// GetLogServiceFactory returns the log service factory
func (c *Container) GetLogServiceFactory() api.LogServiceFactory {
	return c.logServiceFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetLogServiceFactory allows overriding the log service factory (for testing)
func (c *Container) SetLogServiceFactory(factory api.LogServiceFactory) {
	c.logServiceFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
