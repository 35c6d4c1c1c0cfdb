package core

import (
	"context"
	"sync"
	"time"

	"cascade-builds/internal/types"
)

// stubHost serves canned proposals. polls queues GetProposal answers per
// proposal number; once drained the last answer repeats.
type stubHost struct {
	mu       sync.Mutex
	open     map[types.RepositoryID][]types.ChangeProposal
	listErr  map[types.RepositoryID]error
	polls    map[int][]pollAnswer
	branches map[string]bool
	gets     int
	lists    []types.RepositoryID
}

type pollAnswer struct {
	mergeable *bool
	err       error
}

func newStubHost() *stubHost {
	return &stubHost{
		open:     map[types.RepositoryID][]types.ChangeProposal{},
		listErr:  map[types.RepositoryID]error{},
		polls:    map[int][]pollAnswer{},
		branches: map[string]bool{},
	}
}

func (h *stubHost) ListOpenProposals(_ context.Context, repo types.RepositoryID) ([]types.ChangeProposal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lists = append(h.lists, repo)
	if err := h.listErr[repo]; err != nil {
		return nil, err
	}
	return h.open[repo], nil
}

func (h *stubHost) BranchExists(_ context.Context, repo types.RepositoryID, branch types.Branch) (bool, error) {
	return h.branches[repo.FullName()+"@"+string(branch)], nil
}

func (h *stubHost) GetProposal(_ context.Context, repo types.RepositoryID, number int) (types.ChangeProposal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gets++
	answers := h.polls[number]
	if len(answers) == 0 {
		return types.ChangeProposal{Number: number, TargetRepo: repo}, nil
	}
	answer := answers[0]
	if len(answers) > 1 {
		h.polls[number] = answers[1:]
	}
	if answer.err != nil {
		return types.ChangeProposal{}, answer.err
	}
	return types.ChangeProposal{Number: number, TargetRepo: repo, Mergeable: answer.mergeable}, nil
}

func (h *stubHost) getCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gets
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func boolPtr(value bool) *bool {
	return &value
}

func repo(ref string) types.RepositoryID {
	return types.ParseRepositoryID(ref)
}

func proposal(number int, target string, source string, branch types.Branch, mergeable *bool) types.ChangeProposal {
	return types.ChangeProposal{
		Number:       number,
		TargetRepo:   repo(target),
		TargetBranch: types.DefaultBranch,
		SourceRepo:   repo(source),
		SourceBranch: branch,
		Mergeable:    mergeable,
	}
}

type recordingMetrics struct {
	mu    sync.Mutex
	steps []string
	polls map[string]int
}

func (m *recordingMetrics) ObserveStep(repo string, phase string, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, repo+" "+phase+" "+outcome)
}

func (m *recordingMetrics) ObserveMergeablePoll(repo string, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.polls == nil {
		m.polls = map[string]int{}
	}
	m.polls[repo] = attempts
}

func (m *recordingMetrics) Flush() error {
	return nil
}
