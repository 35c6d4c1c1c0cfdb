package adapters

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

const localRepoProperty = "maven.repo.local"

// ExecBuildTool runs the configured build command (Maven by default).
type ExecBuildTool struct {
	Command   string
	MavenOpts string
	LocalRepo string
	// Output receives the build's combined output. When nil the output is
	// captured and attached to the log on failure.
	Output io.Writer
}

func NewExecBuildTool(cfg types.Config) ExecBuildTool {
	return ExecBuildTool{
		Command:   cfg.Build.Command,
		MavenOpts: cfg.Build.MavenOpts,
		LocalRepo: cfg.Build.LocalRepo,
		Output:    os.Stdout,
	}
}

func (a ExecBuildTool) Invoke(ctx context.Context, workingDir string, args []string, env []string) (int, error) {
	command := strings.TrimSpace(a.Command)
	if command == "" {
		command = types.DefaultBuildCommand
	}
	fullArgs := a.Args(args)
	cmd := exec.CommandContext(ctx, command, fullArgs...)
	cmd.Dir = workingDir
	cmd.Env = a.Env(os.Environ(), env)
	log.Ctx(ctx).Debug().
		Str("dir", workingDir).
		Str("command", command).
		Strs("args", fullArgs).
		Msg("invoking build tool")

	var err error
	var output []byte
	if a.Output != nil {
		cmd.Stdout = a.Output
		cmd.Stderr = a.Output
		err = cmd.Run()
	} else {
		output, err = cmd.CombinedOutput()
	}
	if err != nil && ctx.Err() != nil {
		return -1, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("build command canceled").
			WithCause(ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if len(output) > 0 {
			log.Ctx(ctx).Error().Str("dir", workingDir).Msg(string(output))
		}
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to run build command " + command).
			WithCause(shared.CommandError(output, err))
	}
	return 0, nil
}

// Args appends the local repository property unless args already set it.
func (a ExecBuildTool) Args(args []string) []string {
	out := append([]string(nil), args...)
	local := strings.TrimSpace(a.LocalRepo)
	if local == "" {
		return out
	}
	for _, arg := range out {
		if strings.Contains(arg, localRepoProperty) {
			return out
		}
	}
	return append(out, "-D"+localRepoProperty+"="+local)
}

func (a ExecBuildTool) Env(base []string, extra []string) []string {
	out := append([]string(nil), base...)
	out = append(out, extra...)
	if opts := strings.TrimSpace(a.MavenOpts); opts != "" {
		out = append(out, "MAVEN_OPTS="+opts)
	}
	return out
}

var _ ports.BuildToolPort = ExecBuildTool{}
