package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"cascade-builds/internal/core"
	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

// Inspect summarises the branch mapping document, newest release first.
// With CheckBranches every upstream branch is looked up on the host, and
// with ReleaseBranch the catalog of that release line is assembled too.
func (s Service) Inspect(ctx context.Context, req InspectRequest) (InspectResult, error) {
	cfg := s.Config.WithDefaults()
	location := req.Location
	if location.Repo.IsZero() {
		location.Repo = cfg.BootstrapRepo
	}
	if location.Branch == "" {
		location.Branch = cfg.DefaultBranch
	}
	mappings, err := core.LoadMappings(ctx, s.Documents, location, cfg.MappingPath)
	if err != nil {
		return InspectResult{}, err
	}

	byBranch := make(map[types.Branch]types.DependencyMapping, len(mappings))
	branches := make([]types.Branch, 0, len(mappings))
	for _, mapping := range mappings {
		byBranch[mapping.PrimaryBranch] = mapping
		branches = append(branches, mapping.PrimaryBranch)
	}

	result := InspectResult{Location: location}
	for _, branch := range core.SortReleaseBranches(branches, cfg.DefaultBranch) {
		mapping := byBranch[branch]
		release := InspectRelease{Branch: branch, UpstreamDeps: mapping.UpstreamDeps}
		if req.CheckBranches {
			missing, err := s.missingBranches(ctx, mapping.UpstreamDeps)
			if err != nil {
				return InspectResult{}, err
			}
			release.Missing = missing
		}
		result.Releases = append(result.Releases, release)
	}

	if req.ReleaseBranch == "" {
		return result, nil
	}
	mapping, ok := byBranch[req.ReleaseBranch]
	if !ok {
		return InspectResult{}, shared.KindError(shared.KindMappingNotFound,
			fmt.Sprintf("release branch %s is not a primary branch in %s", req.ReleaseBranch, location), nil)
	}
	inventory := types.ConfigLocation{Repo: location.Repo, Branch: req.ReleaseBranch}
	catalog, err := core.NewCatalogBuilder(s.Documents, cfg).Build(ctx, inventory, mapping)
	if err != nil {
		return InspectResult{}, err
	}
	result.Catalog = catalog
	return result, nil
}

func (s Service) missingBranches(ctx context.Context, deps []types.UpstreamDependency) ([]types.UpstreamDependency, error) {
	var missing []types.UpstreamDependency
	for _, dep := range deps {
		exists, err := s.Host.BranchExists(ctx, dep.Repo, dep.Branch)
		if err != nil {
			return nil, err
		}
		if !exists {
			log.Ctx(ctx).Warn().
				Str("repo", dep.Repo.FullName()).
				Str("branch", string(dep.Branch)).
				Msg("upstream branch does not exist")
			missing = append(missing, dep)
		}
	}
	return missing, nil
}
