package ports

import (
	"context"

	"cascade-builds/internal/types"
)

// ConfigDocumentPort fetches a raw configuration document stored at path in
// the given repository and branch.
type ConfigDocumentPort interface {
	FetchDocument(ctx context.Context, location types.ConfigLocation, path string) ([]byte, error)
}
