package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-github/v74/github"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/types"
)

const githubPageSize = 100

type GitHubSourceHost struct {
	client *github.Client
}

// NewGitHubSourceHost builds a client for apiURL. The token is optional;
// anonymous access works for public repositories within rate limits.
func NewGitHubSourceHost(cfg types.Config) (GitHubSourceHost, error) {
	client := github.NewClient(&http.Client{Timeout: cfg.HTTPTimeout})
	if token := strings.TrimSpace(cfg.GitHubToken); token != "" {
		client = client.WithAuthToken(token)
	}
	apiURL := strings.TrimSpace(cfg.GitHubAPIURL)
	if apiURL != "" && apiURL != types.DefaultGitHubAPIURL {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		base, err := url.Parse(apiURL)
		if err != nil {
			return GitHubSourceHost{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid github api url %q", cfg.GitHubAPIURL)).
				WithCause(err)
		}
		client.BaseURL = base
	}
	return GitHubSourceHost{client: client}, nil
}

func (h GitHubSourceHost) ListOpenProposals(ctx context.Context, repo types.RepositoryID) ([]types.ChangeProposal, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: githubPageSize},
	}
	var out []types.ChangeProposal
	for {
		prs, resp, err := h.client.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, hostError(resp, err, fmt.Sprintf("failed to list open pull requests for %s", repo))
		}
		for _, pr := range prs {
			out = append(out, proposalFromPR(repo, pr))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (h GitHubSourceHost) BranchExists(ctx context.Context, repo types.RepositoryID, branch types.Branch) (bool, error) {
	_, resp, err := h.client.Repositories.GetBranch(ctx, repo.Owner, repo.Name, string(branch), 1)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, hostError(resp, err, fmt.Sprintf("failed to look up branch %s of %s", branch, repo))
	}
	return true, nil
}

func (h GitHubSourceHost) GetProposal(ctx context.Context, repo types.RepositoryID, number int) (types.ChangeProposal, error) {
	pr, resp, err := h.client.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return types.ChangeProposal{}, hostError(resp, err, fmt.Sprintf("failed to get pull request #%d of %s", number, repo))
	}
	return proposalFromPR(repo, pr), nil
}

func proposalFromPR(repo types.RepositoryID, pr *github.PullRequest) types.ChangeProposal {
	target := repo
	if base := pr.GetBase().GetRepo(); base != nil && base.GetName() != "" {
		target = types.RepositoryID{Owner: base.GetOwner().GetLogin(), Name: base.GetName()}
	}
	head := pr.GetHead()
	source := types.RepositoryID{Owner: head.GetUser().GetLogin(), Name: repo.Name}
	if headRepo := head.GetRepo(); headRepo != nil && headRepo.GetName() != "" {
		source = types.RepositoryID{Owner: headRepo.GetOwner().GetLogin(), Name: headRepo.GetName()}
	}
	return types.ChangeProposal{
		Number:       pr.GetNumber(),
		TargetRepo:   target,
		TargetBranch: types.Branch(pr.GetBase().GetRef()),
		SourceRepo:   source,
		SourceBranch: types.Branch(head.GetRef()),
		Mergeable:    pr.Mergeable,
	}
}

func hostError(resp *github.Response, err error, msg string) error {
	code := errbuilder.CodeUnavailable
	var rateErr *github.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		code = errbuilder.CodeUnavailable
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		code = errbuilder.CodeNotFound
	case resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden):
		code = errbuilder.CodePermissionDenied
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.SourceHostPort = GitHubSourceHost{}
