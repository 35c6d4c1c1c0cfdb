package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cascade-builds/internal/adapters"
	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

var upstreamLines = []string{
	"https://github.com/errai/errai.git:master:master-pr-build",
	"https://github.com/AppFormer/uberfire.git:master:master-pr-build",
	"https://github.com/kiegroup/droolsjbpm-build-bootstrap.git:master:master-pr-build",
	"https://github.com/kiegroup/drools.git:pull/11/merge:pr11-feature-1-merge",
}

func TestOrchestrateDryRunPrintsPlan(t *testing.T) {
	env := newTestEnv()
	env.host.open[drools()] = []types.ChangeProposal{relatedProposal(drools(), 11, true)}

	result, err := env.service.Orchestrate(t.Context(), OrchestrateRequest{
		Variant:  types.UpstreamOfTarget,
		ReposDir: filepath.Join(t.TempDir(), "upstream-repos"),
		DryRun:   true,
	})
	require.NoError(t, err)
	if diff := cmp.Diff(upstreamLines, result.PlanLines); diff != "" {
		t.Fatalf("unexpected plan (-want +got):\n%s", diff)
	}
	assert.Len(t, result.Fingerprint, 32)
	assert.Contains(t, env.out.String(), "Repositories that will be cloned and built:\n\thttps://github.com/errai/errai.git")
	assert.Empty(t, env.vcs.fetched, "dry run never clones")
	assert.Empty(t, env.build.dirs)
	assert.Equal(t, 0, env.cache.prepared)
}

func TestOrchestrateBuildsUpstreamInOrder(t *testing.T) {
	env := newTestEnv()
	env.host.open[drools()] = []types.ChangeProposal{relatedProposal(drools(), 11, true)}
	reposDir := filepath.Join(t.TempDir(), "upstream-repos")

	result, err := env.service.Orchestrate(t.Context(), OrchestrateRequest{Variant: types.UpstreamOfTarget, ReposDir: reposDir})
	require.NoError(t, err)
	if diff := cmp.Diff(upstreamLines, env.vcs.fetched); diff != "" {
		t.Fatalf("unexpected fetches (-want +got):\n%s", diff)
	}
	want := []string{"errai", "uberfire", "droolsjbpm-build-bootstrap", "drools"}
	if diff := cmp.Diff(want, env.build.dirs); diff != "" {
		t.Fatalf("unexpected build order (-want +got):\n%s", diff)
	}
	assert.Len(t, result.Sequence.Steps, 4)
	assert.Equal(t, filepath.Join(reposDir, "drools"), result.Sequence.Steps[3].Dir)
}

func TestOrchestrateDownstreamSkipsExcluded(t *testing.T) {
	env := newTestEnv()

	result, err := env.service.Orchestrate(t.Context(), OrchestrateRequest{
		Variant:  types.DownstreamOfTarget,
		ReposDir: filepath.Join(t.TempDir(), "downstream-repos"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/kiegroup/kie-wb-common.git:master:master-pr-build"}, result.PlanLines)
	assert.Equal(t, []string{"kie-wb-common"}, env.build.dirs)
	assert.Contains(t, result.Plan.Excluded, types.CatalogEntry{Repo: types.RepositoryID{Owner: "kiegroup", Name: "kie-docs"}, Branch: "master"})
}

func TestOrchestrateConflictBuildsNothing(t *testing.T) {
	env := newTestEnv()
	env.host.open[drools()] = []types.ChangeProposal{relatedProposal(drools(), 11, false)}

	_, err := env.service.Orchestrate(t.Context(), OrchestrateRequest{
		Variant:  types.UpstreamOfTarget,
		ReposDir: filepath.Join(t.TempDir(), "upstream-repos"),
	})
	require.Error(t, err)
	assert.Equal(t, shared.KindDependencyConflict, shared.KindOf(err))
	assert.Contains(t, err.Error(), "#11")
	assert.Empty(t, env.vcs.fetched)
	assert.Empty(t, env.out.String(), "no plan is printed when resolution fails")
}

func TestOrchestrateStopsAtBuildFailure(t *testing.T) {
	env := newTestEnv()
	env.build.codes["uberfire"] = 1

	result, err := env.service.Orchestrate(t.Context(), OrchestrateRequest{
		Variant:  types.UpstreamOfTarget,
		ReposDir: filepath.Join(t.TempDir(), "upstream-repos"),
	})
	require.Error(t, err)
	assert.Equal(t, shared.KindBuildFailure, shared.KindOf(err))
	assert.Equal(t, []string{"errai", "uberfire"}, env.build.dirs)
	assert.Len(t, result.Sequence.Steps, 1)
}

func TestOrchestratePreparesArtifactCache(t *testing.T) {
	env := newTestEnv()
	localRepo := filepath.Join(t.TempDir(), ".repository")
	env.service.Config.CacheURL = "https://cache.example.test/repo.tar.gz"
	env.service.Config.Build.LocalRepo = localRepo

	result, err := env.service.Orchestrate(t.Context(), OrchestrateRequest{
		Variant:  types.UpstreamOfTarget,
		ReposDir: filepath.Join(t.TempDir(), "upstream-repos"),
	})
	require.NoError(t, err)
	assert.True(t, result.CacheLoaded)
	assert.Equal(t, 1, env.cache.prepared)
	assert.Equal(t, "https://cache.example.test/repo.tar.gz", env.cache.url)
	assert.Equal(t, localRepo, env.cache.destDir)
}

func TestOrchestrateValidatesRequest(t *testing.T) {
	env := newTestEnv()
	_, err := env.service.Orchestrate(t.Context(), OrchestrateRequest{Variant: "sideways"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	env.service.Config.CacheURL = "https://cache.example.test/repo.tar.gz"
	_, err = env.service.Orchestrate(t.Context(), OrchestrateRequest{Variant: types.UpstreamOfTarget})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.Empty(t, env.host.lists, "invalid settings fail before any host call")
}

func TestPlanResolvesBothPartitions(t *testing.T) {
	env := newTestEnv()
	env.host.open[drools()] = []types.ChangeProposal{relatedProposal(drools(), 11, true)}

	result, err := env.service.Plan(t.Context(), PlanRequest{Variant: types.UpstreamOfTarget, Both: true})
	require.NoError(t, err)
	if diff := cmp.Diff(upstreamLines, result.UpstreamLines); diff != "" {
		t.Fatalf("unexpected upstream lines (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"https://github.com/kiegroup/kie-wb-common.git:master:master-pr-build"}, result.DownstreamLines)
	assert.Equal(t, types.Branch("master"), result.Mapping.PrimaryBranch)
	assert.Equal(t, bootstrapMaster, result.Locations.Mapping)
	assert.Equal(t, bootstrapMaster, result.Locations.Inventory)
	assert.Len(t, result.Catalog, 7)
}

func TestPlanReadsDocumentsFromBootstrapProposal(t *testing.T) {
	env := newTestEnv()
	bootstrap := bootstrapMaster.Repo
	env.host.open[bootstrap] = []types.ChangeProposal{relatedProposal(bootstrap, 5, true)}
	fork := types.ConfigLocation{Repo: types.RepositoryID{Owner: "jdoe", Name: "droolsjbpm-build-bootstrap"}, Branch: "feature-1"}
	env.service.Documents = adapters.NewFixtureConfigDocuments().
		Add(fork, types.DefaultMappingPath, mappingDoc).
		Add(fork, types.DefaultInventoryPath, "droolsjbpm-build-bootstrap\njbpm\n")

	result, err := env.service.Plan(t.Context(), PlanRequest{Variant: types.UpstreamOfTarget})
	require.NoError(t, err)
	assert.Equal(t, fork, result.Locations.Mapping)
	assert.Equal(t, fork, result.Locations.Inventory)
	assert.Equal(t,
		"https://github.com/kiegroup/droolsjbpm-build-bootstrap.git:pull/5/merge:pr5-feature-1-merge",
		result.UpstreamLines[len(result.UpstreamLines)-1])
}

func TestPlanMappingNotFound(t *testing.T) {
	env := newTestEnv()
	env.service.Trigger = adapters.ManualTrigger{
		TargetRepo:   jbpm(),
		TargetBranch: "6.5.x",
		SourceBranch: "feature-1",
		Author:       "jdoe",
	}
	_, err := env.service.Plan(t.Context(), PlanRequest{Variant: types.UpstreamOfTarget})
	require.Error(t, err)
	assert.Equal(t, shared.KindMappingNotFound, shared.KindOf(err))
}

func TestPlanTargetNotInCatalog(t *testing.T) {
	env := newTestEnv()
	env.service.Trigger = adapters.ManualTrigger{
		TargetRepo:   types.RepositoryID{Owner: "kiegroup", Name: "optaplanner"},
		TargetBranch: "master",
		SourceBranch: "feature-1",
		Author:       "jdoe",
	}
	_, err := env.service.Plan(t.Context(), PlanRequest{Variant: types.UpstreamOfTarget})
	require.Error(t, err)
	assert.Equal(t, shared.KindTargetNotInCatalog, shared.KindOf(err))
}

func TestPlanCanceled(t *testing.T) {
	env := newTestEnv()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := env.service.Plan(ctx, PlanRequest{Variant: types.UpstreamOfTarget})
	require.Error(t, err)
}
