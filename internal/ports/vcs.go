package ports

import (
	"context"

	"cascade-builds/internal/types"
)

// VCSPort clones cloneURL into destDir, fetches the spec's refspec and
// checks out its destination branch.
type VCSPort interface {
	CloneFetchCheckout(ctx context.Context, cloneURL string, spec types.FetchSpec, destDir string) error
}
