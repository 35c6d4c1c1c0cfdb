package app

import (
	"context"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"cascade-builds/internal/core"
	"cascade-builds/internal/types"
)

// Orchestrate runs one cascade build: resolve the plan for the selected
// partition, print it, then clone and build every entry in order.
func (s Service) Orchestrate(ctx context.Context, req OrchestrateRequest) (OrchestrateResult, error) {
	if err := validateVariant(req.Variant); err != nil {
		return OrchestrateResult{}, err
	}
	reposDir := strings.TrimSpace(req.ReposDir)
	if reposDir == "" {
		reposDir = string(req.Variant) + "-repos"
	}
	cfg := s.Config.WithDefaults()
	if strings.TrimSpace(cfg.CacheURL) != "" && strings.TrimSpace(cfg.Build.LocalRepo) == "" {
		return OrchestrateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("local repository path is required when an artifact cache url is set")
	}

	trigger, err := s.Trigger.Trigger(ctx)
	if err != nil {
		return OrchestrateResult{}, err
	}
	logger := log.Ctx(ctx)
	logger.Info().
		Str("variant", string(req.Variant)).
		Str("repo", trigger.TargetRepo.FullName()).
		Str("branch", string(trigger.TargetBranch)).
		Str("source_branch", string(trigger.SourceBranch)).
		Str("author", trigger.Author).
		Msg("cascade build started")

	planned, err := s.plan(ctx, trigger, req.Variant, false)
	if err != nil {
		return OrchestrateResult{}, err
	}
	selected := planned.Plan.Selected()
	if err := s.PlanLog.WritePlan(selected); err != nil {
		return OrchestrateResult{}, err
	}
	result := OrchestrateResult{
		Trigger:     trigger,
		Plan:        planned.Plan,
		PlanLines:   s.PlanLog.Lines(selected),
		Fingerprint: planned.Fingerprint,
	}
	if req.DryRun {
		return result, nil
	}
	defer s.flushMetrics(ctx)

	if url := strings.TrimSpace(cfg.CacheURL); url != "" && s.Cache != nil {
		loaded, err := s.Cache.Prepare(ctx, url, cfg.Build.LocalRepo)
		if err != nil {
			return result, err
		}
		result.CacheLoaded = loaded
	}

	sequencer := core.BuildSequencer{
		Workspace: s.Workspace,
		VCS:       s.VCS,
		Build:     s.Build,
		Metrics:   s.Metrics,
		CloneURL:  s.PlanLog.CloneURL,
		BuildArgs: cfg.Build.Args,
		BuildEnv:  cfg.Build.Env,
		Clock:     s.Clock,
	}
	sequence, err := sequencer.Run(ctx, selected, reposDir)
	result.Sequence = sequence
	if err != nil {
		return result, err
	}
	logger.Info().
		Int("repositories", len(sequence.Steps)).
		Str("fingerprint", result.Fingerprint).
		Msg("cascade build finished successfully")
	return result, nil
}

// Plan resolves and prints the plan without cloning or building.
func (s Service) Plan(ctx context.Context, req PlanRequest) (PlanResult, error) {
	if err := validateVariant(req.Variant); err != nil {
		return PlanResult{}, err
	}
	trigger, err := s.Trigger.Trigger(ctx)
	if err != nil {
		return PlanResult{}, err
	}
	return s.plan(ctx, trigger, req.Variant, req.Both)
}

func (s Service) plan(ctx context.Context, trigger types.Trigger, variant types.PlanVariant, both bool) (PlanResult, error) {
	assert.NotEmpty(ctx, trigger.TargetRepo.Name, "trigger target repository must be set")
	assert.NotEmpty(ctx, string(trigger.TargetBranch), "trigger target branch must be set")
	cfg := s.Config.WithDefaults()
	resolver := s.changeResolver()

	locator := core.NewConfigLocator(resolver, cfg)
	locations, err := locator.Locate(ctx, trigger)
	if err != nil {
		return PlanResult{}, err
	}
	mappings, err := core.LoadMappings(ctx, s.Documents, locations.Mapping, cfg.MappingPath)
	if err != nil {
		return PlanResult{}, err
	}
	mapping, err := core.ResolveMapping(mappings, trigger.TargetRepo, trigger.TargetBranch)
	if err != nil {
		return PlanResult{}, err
	}
	locations.Inventory = locator.InventoryFor(locations, mapping)
	locations.InventoryPending = false
	log.Ctx(ctx).Info().
		Str("release_branch", string(mapping.PrimaryBranch)).
		Str("mapping", locations.Mapping.String()).
		Str("inventory", locations.Inventory.String()).
		Msg("release line resolved")

	catalog, err := core.NewCatalogBuilder(s.Documents, cfg).Build(ctx, locations.Inventory, mapping)
	if err != nil {
		return PlanResult{}, err
	}
	policy, err := s.exclusionPolicy()
	if err != nil {
		return PlanResult{}, err
	}
	plan, err := core.NewBuildPlanner(resolver, policy).Plan(ctx, core.PlanInput{
		Catalog:     catalog,
		Trigger:     trigger,
		Mapping:     mapping,
		Variant:     variant,
		ResolveBoth: both,
	})
	if err != nil {
		return PlanResult{}, err
	}
	return PlanResult{
		Trigger:         trigger,
		Mapping:         mapping,
		Locations:       locations,
		Catalog:         catalog,
		Plan:            plan,
		UpstreamLines:   s.PlanLog.Lines(plan.Upstream),
		DownstreamLines: s.PlanLog.Lines(plan.Downstream),
		Fingerprint:     core.PlanFingerprint(s.PlanLog.Lines(plan.Selected())),
	}, nil
}

func (s Service) flushMetrics(ctx context.Context) {
	if s.Metrics == nil {
		return
	}
	if err := s.Metrics.Flush(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to write metrics")
	}
}

func validateVariant(variant types.PlanVariant) error {
	if _, ok := types.ParsePlanVariant(string(variant)); !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("plan variant must be upstream or downstream")
	}
	return nil
}
