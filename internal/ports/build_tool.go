package ports

import "context"

// BuildToolPort runs the external build command in workingDir.
// A non-nil error means the command could not be run at all.
type BuildToolPort interface {
	Invoke(ctx context.Context, workingDir string, args []string, env []string) (int, error)
}
