package ports

import "cascade-builds/internal/types"

type PlanLogPort interface {
	CloneURL(repo types.RepositoryID) string
	// Lines renders one "<clone-url>:<refspec>" line per spec.
	Lines(specs []types.FetchSpec) []string
	WritePlan(specs []types.FetchSpec) error
}
