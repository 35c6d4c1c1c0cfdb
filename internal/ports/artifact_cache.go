package ports

import "context"

// ArtifactCachePort seeds the local build-artifact repository from a
// remote tarball.
type ArtifactCachePort interface {
	Prepare(ctx context.Context, url string, destDir string) (bool, error)
}
