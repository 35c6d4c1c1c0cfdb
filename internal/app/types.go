package app

import (
	"cascade-builds/internal/core"
	"cascade-builds/internal/types"
)

type OrchestrateRequest struct {
	Variant  types.PlanVariant
	ReposDir string
	DryRun   bool
}

type OrchestrateResult struct {
	Trigger     types.Trigger
	Plan        types.BuildPlan
	PlanLines   []string
	Fingerprint string
	Sequence    core.SequenceResult
	CacheLoaded bool
}

type PlanRequest struct {
	Variant types.PlanVariant
	// Both resolves upstream and downstream partitions.
	Both bool
}

type PlanResult struct {
	Trigger         types.Trigger
	Mapping         types.DependencyMapping
	Locations       types.ConfigLocations
	Catalog         types.Catalog
	Plan            types.BuildPlan
	UpstreamLines   []string
	DownstreamLines []string
	Fingerprint     string
}

type InspectRequest struct {
	// Location overrides where the mapping document is read. Zero means
	// the bootstrap repository on the default branch.
	Location      types.ConfigLocation
	ReleaseBranch types.Branch
	CheckBranches bool
}

type InspectRelease struct {
	Branch       types.Branch
	UpstreamDeps []types.UpstreamDependency
	Missing      []types.UpstreamDependency
}

type InspectResult struct {
	Location types.ConfigLocation
	Releases []InspectRelease
	Catalog  types.Catalog
}
