// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/fwumeta/pkg/api" //nolint:depguard
	"github.com/ssargent/fwumeta/pkg/storage"
)

// StoreOpener opens the metadata store rooted at dir.
type StoreOpener func(dir string) (*storage.MetadataStore, error)

// Container holds all the dependencies for the application
type Container struct {
	serverFactory api.ServerFactory
	storeOpener   StoreOpener
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		serverFactory: api.NewServerFactory(),
		storeOpener:   storage.Open,
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// OpenStore opens the metadata store in dir
func (c *Container) OpenStore(dir string) (*storage.MetadataStore, error) {
	return c.storeOpener(dir)
}

// SetStoreOpener allows overriding how the metadata store is opened (for testing)
func (c *Container) SetStoreOpener(opener StoreOpener) {
	c.storeOpener = opener
}
