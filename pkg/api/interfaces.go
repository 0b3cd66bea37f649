// Package api provides interfaces for dependency injection
package api

import "context"

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API until ctx is cancelled
	StartServer(ctx context.Context, source MetadataSource, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
