package adapters

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cascade-builds/internal/types"
)

type proposalHost struct {
	proposal types.ChangeProposal
	err      error
}

func (h proposalHost) ListOpenProposals(context.Context, types.RepositoryID) ([]types.ChangeProposal, error) {
	return nil, nil
}

func (h proposalHost) BranchExists(context.Context, types.RepositoryID, types.Branch) (bool, error) {
	return true, nil
}

func (h proposalHost) GetProposal(_ context.Context, _ types.RepositoryID, _ int) (types.ChangeProposal, error) {
	return h.proposal, h.err
}

func envLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestParseProposalLink(t *testing.T) {
	tests := []struct {
		link   string
		repo   types.RepositoryID
		number int
		ok     bool
	}{
		{link: "https://github.com/kiegroup/drools/pull/42", repo: types.RepositoryID{Owner: "kiegroup", Name: "drools"}, number: 42, ok: true},
		{link: "https://github.com/kiegroup/drools/pull/42/", repo: types.RepositoryID{Owner: "kiegroup", Name: "drools"}, number: 42, ok: true},
		{link: "https://github.com/kiegroup/drools/pull/7/files", repo: types.RepositoryID{Owner: "kiegroup", Name: "drools"}, number: 7, ok: true},
		{link: "https://gitlab.com/kiegroup/drools/pull/42"},
		{link: "https://github.com/kiegroup/drools/issues/42"},
		{link: "https://github.com/kiegroup/drools/pull/abc"},
		{link: "https://github.com/kiegroup/drools/pull/0"},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			repo, number, err := ParseProposalLink(tt.link)
			if !tt.ok {
				require.Error(t, err)
				assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.repo, repo)
			assert.Equal(t, tt.number, number)
		})
	}
}

func TestEnvTriggerUsesHostProposal(t *testing.T) {
	host := proposalHost{proposal: types.ChangeProposal{
		Number:       42,
		TargetRepo:   types.RepositoryID{Owner: "kiegroup", Name: "drools"},
		TargetBranch: "master",
		SourceRepo:   types.RepositoryID{Owner: "jdoe", Name: "drools"},
		SourceBranch: "feature-1",
	}}
	trigger := EnvTrigger{Host: host, Lookup: envLookup(map[string]string{
		EnvPullLink: "https://github.com/kiegroup/drools/pull/42",
	})}

	got, err := trigger.Trigger(t.Context())
	require.NoError(t, err)
	want := types.Trigger{
		TargetRepo:     types.RepositoryID{Owner: "kiegroup", Name: "drools"},
		TargetBranch:   "master",
		SourceBranch:   "feature-1",
		Author:         "jdoe",
		ProposalNumber: 42,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected trigger (-want +got):\n%s", diff)
	}
}

func TestEnvTriggerBranchOverrides(t *testing.T) {
	host := proposalHost{proposal: types.ChangeProposal{
		Number:       42,
		TargetRepo:   types.RepositoryID{Owner: "kiegroup", Name: "drools"},
		TargetBranch: "master",
		SourceRepo:   types.RepositoryID{Owner: "jdoe", Name: "drools"},
		SourceBranch: "feature-1",
	}}
	trigger := EnvTrigger{Host: host, Lookup: envLookup(map[string]string{
		EnvPullLink:     "https://github.com/kiegroup/drools/pull/42",
		EnvSourceBranch: "feature-2",
		EnvTargetBranch: " 7.5.x ",
	})}

	got, err := trigger.Trigger(t.Context())
	require.NoError(t, err)
	assert.Equal(t, types.Branch("feature-2"), got.SourceBranch)
	assert.Equal(t, types.Branch("7.5.x"), got.TargetBranch)
}

func TestEnvTriggerErrors(t *testing.T) {
	_, err := EnvTrigger{Host: proposalHost{}, Lookup: envLookup(nil)}.Trigger(t.Context())
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), EnvPullLink)

	notFound := errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("no such pull request")
	trigger := EnvTrigger{Host: proposalHost{err: notFound}, Lookup: envLookup(map[string]string{
		EnvPullLink: "https://github.com/kiegroup/drools/pull/42",
	})}
	_, err = trigger.Trigger(t.Context())
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestManualTrigger(t *testing.T) {
	got, err := ManualTrigger{
		TargetRepo:   types.ParseRepositoryID("kiegroup/drools"),
		TargetBranch: "master",
		SourceBranch: "feature-1",
		Author:       " jdoe ",
	}.Trigger(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "jdoe", got.Author)
	assert.Zero(t, got.ProposalNumber)

	_, err = ManualTrigger{TargetBranch: "master"}.Trigger(t.Context())
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "target repository, source branch, author")
}
