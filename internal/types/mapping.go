package types

type UpstreamDependency struct {
	Repo   RepositoryID
	Branch Branch
}

// DependencyMapping binds one primary branch to the branches of its
// upstream dependencies. UpstreamDeps keeps document order.
type DependencyMapping struct {
	PrimaryBranch Branch
	UpstreamDeps  []UpstreamDependency
}

func (m DependencyMapping) Contains(repo RepositoryID, branch Branch) bool {
	for _, dep := range m.UpstreamDeps {
		if dep.Repo == repo && dep.Branch == branch {
			return true
		}
	}
	return false
}

func (m DependencyMapping) BranchOf(repo RepositoryID) (Branch, bool) {
	for _, dep := range m.UpstreamDeps {
		if dep.Repo == repo {
			return dep.Branch, true
		}
	}
	return "", false
}

// ConfigLocation points at a repository and branch hosting a config document.
type ConfigLocation struct {
	Repo   RepositoryID
	Branch Branch
}

func (l ConfigLocation) String() string {
	return l.Repo.FullName() + "@" + string(l.Branch)
}

// ConfigLocations holds where the mapping and inventory documents are read.
// The inventory branch is empty until the release branch is known.
type ConfigLocations struct {
	Mapping          ConfigLocation
	Inventory        ConfigLocation
	BootstrapPR      *ChangeProposal
	InventoryPending bool
}
