package elementstore

import (
	"context"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

// Store is the content-storage boundary the index builder depends on. The
// builder only enumerates; the write operations exist for tooling that
// maintains the element catalog.
type Store interface {
	// Element operations
	UpsertElement(ctx context.Context, record *types.ElementRecord) error
	GetElement(ctx context.Context, id string) (*types.ElementRecord, error)
	DeleteElement(ctx context.Context, id string) error
	ListElements(ctx context.Context) ([]types.ElementRecord, error)
	CountElements(ctx context.Context) (int, error)

	// Database operations
	Close() error
}
