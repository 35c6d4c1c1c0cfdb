package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

type StepResult struct {
	Repo     types.RepositoryID
	Dir      string
	ExitCode int
	Duration time.Duration
}

type SequenceResult struct {
	ReposDir string
	Steps    []StepResult
}

// BuildSequencer materializes and builds plan entries one at a time, in
// order, and stops at the first failure. Completed work stays on disk.
type BuildSequencer struct {
	Workspace ports.WorkspacePort
	VCS       ports.VCSPort
	Build     ports.BuildToolPort
	Metrics   ports.MetricsPort
	CloneURL  func(types.RepositoryID) string
	BuildArgs []string
	BuildEnv  []string
	Clock     func() time.Time
}

func (s BuildSequencer) Run(ctx context.Context, specs []types.FetchSpec, reposDir string) (SequenceResult, error) {
	result := SequenceResult{ReposDir: reposDir}
	logger := log.Ctx(ctx)
	logger.Info().Str("dir", reposDir).Msg("cleaning repositories directory")
	if err := s.Workspace.Clean(reposDir); err != nil {
		return result, err
	}

	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return result, shared.KindError(shared.KindBuildFailure,
				fmt.Sprintf("canceled before building %s (%d of %d)", spec.Repo, i+1, len(specs)), err)
		}
		dir := s.Workspace.RepoDir(reposDir, spec.Repo.Name)

		started := s.now()
		err := s.VCS.CloneFetchCheckout(ctx, s.CloneURL(spec.Repo), spec, dir)
		s.observe(spec.Repo, "materialize", err == nil, s.now().Sub(started))
		if err != nil {
			return result, shared.KindError(shared.KindBuildFailure,
				fmt.Sprintf("could not materialize %s at %s", spec.Repo, spec.Ref), err)
		}

		logger.Info().
			Str("repo", spec.Repo.FullName()).
			Str("refspec", spec.Ref.Refspec()).
			Int("step", i+1).
			Int("steps", len(specs)).
			Msg("building repository")
		started = s.now()
		code, err := s.Build.Invoke(ctx, dir, s.BuildArgs, s.BuildEnv)
		elapsed := s.now().Sub(started)
		s.observe(spec.Repo, "build", err == nil && code == 0, elapsed)
		if err != nil {
			return result, shared.KindError(shared.KindBuildFailure,
				fmt.Sprintf("build of %s could not run", spec.Repo), err)
		}
		if code != 0 {
			return result, shared.KindError(shared.KindBuildFailure,
				fmt.Sprintf("build of %s exited with code %d", spec.Repo, code), nil)
		}
		result.Steps = append(result.Steps, StepResult{
			Repo:     spec.Repo,
			Dir:      dir,
			ExitCode: code,
			Duration: elapsed,
		})
	}
	return result, nil
}

func (s BuildSequencer) observe(repo types.RepositoryID, phase string, ok bool, elapsed time.Duration) {
	if s.Metrics == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	s.Metrics.ObserveStep(repo.FullName(), phase, outcome, elapsed)
}

func (s BuildSequencer) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
