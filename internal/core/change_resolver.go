package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var errMergeableUnknown = errors.New("mergeable status not computed yet")

// ChangeResolver picks the revision each catalog entry is fetched at: the
// merge result of a related open proposal, or the stable base branch.
type ChangeResolver struct {
	Host         ports.SourceHostPort
	Metrics      ports.MetricsPort
	Families     []string
	Attempts     int
	InitialDelay time.Duration
	Sleep        Sleeper
}

func NewChangeResolver(host ports.SourceHostPort, cfg types.Config) ChangeResolver {
	return ChangeResolver{
		Host:         host,
		Families:     cfg.Families,
		Attempts:     cfg.MergeableAttempts,
		InitialDelay: cfg.MergeableDelay,
		Sleep:        SleepContext,
	}
}

// FindRelated returns the open proposal against repo coming from
// sourceBranch of author's fork, or nil. When several match, the highest
// proposal number wins and the ambiguity is logged.
func (r ChangeResolver) FindRelated(ctx context.Context, repo types.RepositoryID, sourceBranch types.Branch, author string) (*types.ChangeProposal, error) {
	proposals, err := r.Host.ListOpenProposals(ctx, repo)
	if err != nil {
		return nil, shared.KindError(shared.KindSourceHost,
			fmt.Sprintf("listing open proposals for %s", repo), err)
	}
	var related []types.ChangeProposal
	for _, proposal := range proposals {
		if proposal.SourceBranch == sourceBranch && proposal.SourceRepo.Owner == author {
			related = append(related, proposal)
		}
	}
	if len(related) == 0 {
		return nil, nil
	}
	best := related[0]
	numbers := make([]int, 0, len(related))
	for _, proposal := range related {
		numbers = append(numbers, proposal.Number)
		if proposal.Number > best.Number {
			best = proposal
		}
	}
	if len(related) > 1 {
		log.Ctx(ctx).Warn().
			Str("repo", repo.FullName()).
			Str("branch", string(sourceBranch)).
			Ints("candidates", numbers).
			Int("proposal", best.Number).
			Msg("multiple related proposals found, using the highest number")
	}
	return &best, nil
}

func (r ChangeResolver) Resolve(ctx context.Context, entry types.CatalogEntry, trigger types.Trigger, mapping types.DependencyMapping) (types.FetchSpec, error) {
	pr, err := r.FindRelated(ctx, entry.Repo, trigger.SourceBranch, trigger.Author)
	if err != nil {
		return types.FetchSpec{}, err
	}
	if pr == nil {
		base := BaseBranch(mapping, entry.Repo, r.Families)
		log.Ctx(ctx).Debug().
			Str("repo", entry.Repo.FullName()).
			Str("branch", string(base)).
			Msg("no related proposal, using base branch")
		return types.FetchSpec{Repo: entry.Repo, Ref: types.BranchRef(base)}, nil
	}

	mergeable, err := r.Mergeable(ctx, entry.Repo, *pr)
	if err != nil {
		return types.FetchSpec{}, err
	}
	if !mergeable {
		return types.FetchSpec{}, shared.KindError(shared.KindDependencyConflict,
			fmt.Sprintf("proposal #%d for repo %s is not automatically mergeable, fix the conflicts first", pr.Number, entry.Repo), nil)
	}
	log.Ctx(ctx).Debug().
		Str("repo", entry.Repo.FullName()).
		Int("proposal", pr.Number).
		Msg("using related proposal")
	return types.FetchSpec{Repo: entry.Repo, Ref: types.MergeResultRef(pr.Number, pr.SourceBranch)}, nil
}

// Mergeable reports the proposal's mergeable state. The listed object is
// trusted when it carries a value; otherwise the host is polled with
// exponential backoff.
func (r ChangeResolver) Mergeable(ctx context.Context, repo types.RepositoryID, pr types.ChangeProposal) (bool, error) {
	if pr.Mergeable != nil {
		return *pr.Mergeable, nil
	}
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = types.DefaultMergeableTries
	}
	delay := r.InitialDelay
	if delay <= 0 {
		delay = types.DefaultMergeableDelay
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		fresh, err := r.Host.GetProposal(ctx, repo, pr.Number)
		switch {
		case err != nil && ctx.Err() != nil:
			return false, canceled(ctx.Err())
		case err != nil && permanent(err):
			return false, shared.KindError(shared.KindSourceHost,
				fmt.Sprintf("fetching proposal #%d for repo %s", pr.Number, repo), err)
		case err != nil:
			lastErr = err
		case fresh.Mergeable != nil:
			r.observePoll(repo, attempt)
			return *fresh.Mergeable, nil
		default:
			lastErr = errMergeableUnknown
		}
		log.Ctx(ctx).Debug().
			Str("repo", repo.FullName()).
			Int("proposal", pr.Number).
			Int("attempt", attempt).
			Err(lastErr).
			Msg("mergeable status not available")
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return false, canceled(err)
		}
		delay *= 2
	}
	r.observePoll(repo, attempts)
	return false, shared.KindError(shared.KindMergeStatusIndeterminate,
		fmt.Sprintf("failed to get mergeable status for proposal #%d, repo %s", pr.Number, repo), lastErr)
}

func (r ChangeResolver) observePoll(repo types.RepositoryID, attempts int) {
	if r.Metrics != nil {
		r.Metrics.ObserveMergeablePoll(repo.FullName(), attempts)
	}
}

func permanent(err error) bool {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeNotFound, errbuilder.CodePermissionDenied, errbuilder.CodeInvalidArgument:
		return true
	default:
		return false
	}
}

func canceled(err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("resolution canceled").
		WithCause(err)
}
