package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rs/zerolog/log"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/types"
)

const remoteName = "origin"

// GitMaterializer clones a repository, fetches the resolved refspec and
// checks out its destination branch.
type GitMaterializer struct {
	Token    string
	Progress io.Writer
}

func NewGitMaterializer(cfg types.Config) GitMaterializer {
	return GitMaterializer{Token: cfg.GitHubToken}
}

func (g GitMaterializer) CloneFetchCheckout(ctx context.Context, cloneURL string, spec types.FetchSpec, destDir string) error {
	auth := g.auth(cloneURL)
	repo, err := git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{
		URL:        cloneURL,
		RemoteName: remoteName,
		Auth:       auth,
		Progress:   g.Progress,
	})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(fmt.Sprintf("failed to clone %s", cloneURL)).
			WithCause(err)
	}

	refspec := GitRefSpec(spec.Ref)
	if err := refspec.Validate(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid refspec %s", refspec)).
			WithCause(err)
	}
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refspec},
		Auth:       auth,
		Progress:   g.Progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(fmt.Sprintf("failed to fetch %s from %s", spec.Ref.Refspec(), cloneURL)).
			WithCause(err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to open worktree in %s", destDir)).
			WithCause(err)
	}
	destination := plumbing.NewBranchReferenceName(spec.Ref.Destination())
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: destination}); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to checkout %s in %s", destination.Short(), destDir)).
			WithCause(err)
	}
	log.Ctx(ctx).Debug().
		Str("repo", spec.Repo.FullName()).
		Str("dir", destDir).
		Str("ref", destination.Short()).
		Msg("materialized repository")
	return nil
}

// GitRefSpec expands a fetch ref into a fully qualified, forced refspec.
func GitRefSpec(ref types.FetchRef) config.RefSpec {
	source := "refs/heads/" + ref.Source()
	if ref.Kind == types.RefKindMergeResult {
		source = "refs/" + ref.Source()
	}
	return config.RefSpec("+" + source + ":" + string(plumbing.NewBranchReferenceName(ref.Destination())))
}

func (g GitMaterializer) auth(cloneURL string) transport.AuthMethod {
	token := strings.TrimSpace(g.Token)
	if token == "" || !strings.HasPrefix(cloneURL, "https://") {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: token}
}

var _ ports.VCSPort = GitMaterializer{}
