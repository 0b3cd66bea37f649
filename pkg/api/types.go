package api

import (
	"time"

	"github.com/ssargent/fwumeta/pkg/fwu"
	"github.com/ssargent/fwumeta/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string // empty disables authentication

	// MaxBodyBytes caps request bodies; zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// RefreshInterval is how often the stored-metadata gauges are
	// refreshed; zero means DefaultRefreshInterval.
	RefreshInterval time.Duration
}

// MetadataSource is the read side of the metadata store.
type MetadataSource interface {
	Get(slot string) ([]byte, error)
	History(limit int) ([]storage.Revision, error)
	RevisionCount() (int, error)
}

// DecodeResponse is the decoded view of a record together with the result
// of firmware-side validation.
type DecodeResponse struct {
	Record          *fwu.Record `json:"record"`
	Valid           bool        `json:"valid"`
	ValidationError string      `json:"validation_error,omitempty"`
	ValidationKind  string      `json:"validation_kind,omitempty"`
}

// ValidateResponse is the verdict on a record.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// RevisionView describes one stored revision without its payload.
type RevisionView struct {
	ID   string    `json:"id"`
	Slot string    `json:"slot"`
	Time time.Time `json:"time"`
	Size int       `json:"size"`
}
