package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"cascade-builds/internal/adapters"
	"cascade-builds/internal/types"
)

var bootstrapMaster = types.ConfigLocation{
	Repo:   types.RepositoryID{Owner: "kiegroup", Name: "droolsjbpm-build-bootstrap"},
	Branch: "master",
}

const mappingDoc = `master:
  - errai: master
  - AppFormer/uberfire: master
7.5.x:
  - errai: 4.2.x
  - AppFormer/uberfire: 1.5.x
`

const inventoryDoc = `droolsjbpm-build-bootstrap
drools
jbpm
kie-wb-common
kie-docs
`

type fakeHost struct {
	open     map[types.RepositoryID][]types.ChangeProposal
	branches map[string]bool
	lists    []types.RepositoryID
}

func (h *fakeHost) ListOpenProposals(_ context.Context, repo types.RepositoryID) ([]types.ChangeProposal, error) {
	h.lists = append(h.lists, repo)
	return h.open[repo], nil
}

func (h *fakeHost) BranchExists(_ context.Context, repo types.RepositoryID, branch types.Branch) (bool, error) {
	exists, ok := h.branches[repo.FullName()+"@"+string(branch)]
	return !ok || exists, nil
}

func (h *fakeHost) GetProposal(_ context.Context, repo types.RepositoryID, number int) (types.ChangeProposal, error) {
	for _, pr := range h.open[repo] {
		if pr.Number == number {
			return pr, nil
		}
	}
	return types.ChangeProposal{}, os.ErrNotExist
}

type fakeVCS struct {
	fetched []string
}

func (v *fakeVCS) CloneFetchCheckout(_ context.Context, cloneURL string, spec types.FetchSpec, destDir string) error {
	v.fetched = append(v.fetched, cloneURL+":"+spec.Ref.Refspec())
	return os.MkdirAll(destDir, 0755)
}

type fakeBuild struct {
	dirs  []string
	codes map[string]int
}

func (b *fakeBuild) Invoke(_ context.Context, workingDir string, _ []string, _ []string) (int, error) {
	b.dirs = append(b.dirs, filepath.Base(workingDir))
	return b.codes[filepath.Base(workingDir)], nil
}

type fakeCache struct {
	url      string
	destDir  string
	prepared int
}

func (c *fakeCache) Prepare(_ context.Context, url string, destDir string) (bool, error) {
	c.url = url
	c.destDir = destDir
	c.prepared++
	return true, nil
}

type testEnv struct {
	service Service
	host    *fakeHost
	vcs     *fakeVCS
	build   *fakeBuild
	cache   *fakeCache
	out     *bytes.Buffer
}

func drools() types.RepositoryID {
	return types.RepositoryID{Owner: "kiegroup", Name: "drools"}
}

func jbpm() types.RepositoryID {
	return types.RepositoryID{Owner: "kiegroup", Name: "jbpm"}
}

func relatedProposal(repo types.RepositoryID, number int, mergeable bool) types.ChangeProposal {
	return types.ChangeProposal{
		Number:       number,
		TargetRepo:   repo,
		TargetBranch: "master",
		SourceRepo:   types.RepositoryID{Owner: "jdoe", Name: repo.Name},
		SourceBranch: "feature-1",
		Mergeable:    &mergeable,
	}
}

// newTestEnv wires a service whose trigger is a proposal from jdoe's
// feature-1 branch against kiegroup/jbpm master.
func newTestEnv() *testEnv {
	env := &testEnv{
		host:  &fakeHost{open: map[types.RepositoryID][]types.ChangeProposal{}, branches: map[string]bool{}},
		vcs:   &fakeVCS{},
		build: &fakeBuild{codes: map[string]int{}},
		cache: &fakeCache{},
		out:   &bytes.Buffer{},
	}
	documents := adapters.NewFixtureConfigDocuments().
		Add(bootstrapMaster, types.DefaultMappingPath, mappingDoc).
		Add(bootstrapMaster, types.DefaultInventoryPath, inventoryDoc)
	cfg := types.Config{}.WithDefaults()
	env.service = Service{
		Config:    cfg,
		Host:      env.host,
		Documents: documents,
		Trigger: adapters.ManualTrigger{
			TargetRepo:   jbpm(),
			TargetBranch: "master",
			SourceBranch: "feature-1",
			Author:       "jdoe",
		},
		VCS:       env.vcs,
		Build:     env.build,
		Workspace: adapters.NewWorkspaceAdapter(),
		PlanLog:   adapters.PlanLogWriter{CloneBase: cfg.CloneBaseURL, Out: env.out},
		Metrics:   adapters.NewPrometheusMetrics(""),
		Cache:     env.cache,
		Sleep:     func(context.Context, time.Duration) error { return nil },
		Clock:     time.Now,
	}
	return env
}
