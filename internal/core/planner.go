package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

// EntryResolver turns one catalog entry into the spec it is fetched with.
type EntryResolver interface {
	Resolve(ctx context.Context, entry types.CatalogEntry, trigger types.Trigger, mapping types.DependencyMapping) (types.FetchSpec, error)
}

type PlanInput struct {
	Catalog types.Catalog
	Trigger types.Trigger
	Mapping types.DependencyMapping
	Variant types.PlanVariant
	// ResolveBoth resolves the partition not selected by Variant too.
	ResolveBoth bool
}

type BuildPlanner struct {
	Resolver EntryResolver
	Policy   ports.ExclusionPolicyPort
}

func NewBuildPlanner(resolver EntryResolver, policy ports.ExclusionPolicyPort) BuildPlanner {
	return BuildPlanner{Resolver: resolver, Policy: policy}
}

// Partition splits catalog around the first entry for target.
func Partition(catalog types.Catalog, target types.RepositoryID) ([]types.CatalogEntry, []types.CatalogEntry, error) {
	idx := catalog.IndexOf(target)
	if idx < 0 {
		return nil, nil, shared.KindError(shared.KindTargetNotInCatalog,
			fmt.Sprintf("repo %s is not part of the release line (%d repositories)", target, len(catalog)), nil)
	}
	return catalog[:idx], catalog[idx+1:], nil
}

// Plan filters and resolves the selected partition in catalog order. The
// first resolution failure aborts and no plan is returned.
func (p BuildPlanner) Plan(ctx context.Context, in PlanInput) (types.BuildPlan, error) {
	upstream, downstream, err := Partition(in.Catalog, in.Trigger.TargetRepo)
	if err != nil {
		return types.BuildPlan{}, err
	}
	targetEntry := types.CatalogEntry{Repo: in.Trigger.TargetRepo, Branch: in.Trigger.TargetBranch}

	upKept, upExcluded, err := p.filter(targetEntry, in.Variant, upstream)
	if err != nil {
		return types.BuildPlan{}, err
	}
	downKept, downExcluded, err := p.filter(targetEntry, in.Variant, downstream)
	if err != nil {
		return types.BuildPlan{}, err
	}

	plan := types.BuildPlan{
		Target:   in.Trigger.TargetRepo,
		Variant:  in.Variant,
		Excluded: append(upExcluded, downExcluded...),
	}
	resolveUp := in.Variant == types.UpstreamOfTarget || in.ResolveBoth
	resolveDown := in.Variant == types.DownstreamOfTarget || in.ResolveBoth
	if resolveUp {
		if plan.Upstream, err = p.resolveAll(ctx, upKept, in); err != nil {
			return types.BuildPlan{}, err
		}
	}
	if resolveDown {
		if plan.Downstream, err = p.resolveAll(ctx, downKept, in); err != nil {
			return types.BuildPlan{}, err
		}
	}
	log.Ctx(ctx).Debug().
		Str("target", in.Trigger.TargetRepo.FullName()).
		Str("variant", string(in.Variant)).
		Int("upstream", len(plan.Upstream)).
		Int("downstream", len(plan.Downstream)).
		Int("excluded", len(plan.Excluded)).
		Msg("build plan resolved")
	return plan, nil
}

func (p BuildPlanner) filter(target types.CatalogEntry, variant types.PlanVariant, entries []types.CatalogEntry) ([]types.CatalogEntry, []types.CatalogEntry, error) {
	kept := make([]types.CatalogEntry, 0, len(entries))
	var excluded []types.CatalogEntry
	for _, entry := range entries {
		if p.Policy != nil {
			skip, err := p.Policy.Excludes(target, variant, entry.Repo)
			if err != nil {
				return nil, nil, err
			}
			if skip {
				excluded = append(excluded, entry)
				continue
			}
		}
		kept = append(kept, entry)
	}
	return kept, excluded, nil
}

func (p BuildPlanner) resolveAll(ctx context.Context, entries []types.CatalogEntry, in PlanInput) ([]types.FetchSpec, error) {
	specs := make([]types.FetchSpec, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, canceled(err)
		}
		spec, err := p.Resolver.Resolve(ctx, entry, in.Trigger, in.Mapping)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
