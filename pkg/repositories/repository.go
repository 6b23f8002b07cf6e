package repositories

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cbodonnell/monuments/pkg/game/types"
)

const (
	// DefaultDatabaseURL is used when no database url is configured
	DefaultDatabaseURL = "jsonl://data/monuments.jsonl"
)

// MonumentRepository is the durable append-only log of completed monuments.
// Implementations must be thread-safe.
type MonumentRepository interface {
	// Append durably records a monument. Prior records are never rewritten.
	Append(ctx context.Context, monument types.Monument) error
	// Load returns every record in the order it was appended.
	Load(ctx context.Context) ([]types.Monument, error)
	Close(ctx context.Context) error
}

// NewRepository creates a MonumentRepository from a database url.
// Supported schemes are jsonl, sqlite and postgresql.
func NewRepository(ctx context.Context, connStr string) (MonumentRepository, error) {
	if connStr == "" {
		connStr = DefaultDatabaseURL
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %v", err)
	}

	switch u.Scheme {
	case "jsonl":
		repository, err := NewJSONLRepository(pathFromURL(connStr, u.Scheme))
		if err != nil {
			return nil, fmt.Errorf("failed to create JSONL repository: %v", err)
		}
		return repository, nil
	case "sqlite":
		repository, err := NewSQLiteRepository(ctx, pathFromURL(connStr, u.Scheme))
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite repository: %v", err)
		}
		return repository, nil
	case "postgres", "postgresql":
		repository, err := NewPostgresRepository(ctx, u.String())
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres repository: %v", err)
		}
		return repository, nil
	default:
		return nil, fmt.Errorf("unknown database type %s", u.Scheme)
	}
}

// pathFromURL keeps relative paths relative: jsonl://assets/x.jsonl is assets/x.jsonl
// and jsonl:///var/lib/x.jsonl is /var/lib/x.jsonl.
func pathFromURL(connStr string, scheme string) string {
	return strings.TrimPrefix(connStr, scheme+"://")
}
