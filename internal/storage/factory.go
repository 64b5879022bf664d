package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomcat-viz/trialviz/internal/config"
)

// Connector opens a gorm-backed archive for the given config. It is a
// function value so the factory does not import the database and gormdb
// packages directly (they import this one for the Backend interface).
type Connector func(cfg config.ArchiveConfig, log zerolog.Logger) (Backend, error)

// NewBackend creates an archive backend based on configuration.
// gormConnector handles the sqlite and postgres types; pass nil to
// restrict the factory to the memory backend.
func NewBackend(cfg config.ArchiveConfig, log zerolog.Logger, gormConnector Connector) (Backend, error) {
	switch cfg.Type {
	case "sqlite", "postgres":
		if gormConnector == nil {
			return nil, fmt.Errorf("archive type %s requires a database connector", cfg.Type)
		}
		return gormConnector(cfg, log)
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
