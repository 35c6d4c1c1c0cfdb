package ports

import "cascade-builds/internal/types"

// ExclusionPolicyPort decides which catalog entries are left out of a plan
// for a given target.
type ExclusionPolicyPort interface {
	Excludes(target types.CatalogEntry, variant types.PlanVariant, repo types.RepositoryID) (bool, error)
}
