package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"cascade-builds/internal/ports"
)

type WorkspaceAdapter struct{}

func NewWorkspaceAdapter() WorkspaceAdapter {
	return WorkspaceAdapter{}
}

// Clean removes everything under dir and recreates it empty.
func (a WorkspaceAdapter) Clean(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repositories directory is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid repositories directory").
			WithCause(err)
	}
	if isProtectedDir(abs) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("refusing to clean " + abs)
	}
	if err := os.RemoveAll(abs); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to clean repositories directory").
			WithCause(err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create repositories directory").
			WithCause(err)
	}
	return nil
}

func (a WorkspaceAdapter) RepoDir(root string, repo string) string {
	return filepath.Join(root, repo)
}

func isProtectedDir(abs string) bool {
	if abs == filepath.Dir(abs) {
		return true
	}
	home, err := os.UserHomeDir()
	return err == nil && filepath.Clean(home) == abs
}

var _ ports.WorkspacePort = WorkspaceAdapter{}
