package ports

// WorkspacePort owns the directory the repository set is cloned into.
type WorkspacePort interface {
	// Clean removes any prior content and recreates the directory.
	Clean(dir string) error
	RepoDir(root string, repo string) string
}
