package adapters

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/types"
)

const (
	EnvPullLink     = "ghprbPullLink"
	EnvSourceBranch = "ghprbSourceBranch"
	EnvTargetBranch = "ghprbTargetBranch"
)

// EnvTrigger reads the triggering pull request from the variables set by
// the CI host's pull-request integration and looks it up on the host.
type EnvTrigger struct {
	Host   ports.SourceHostPort
	Lookup func(string) (string, bool)
}

func NewEnvTrigger(host ports.SourceHostPort) EnvTrigger {
	return EnvTrigger{Host: host, Lookup: os.LookupEnv}
}

func (t EnvTrigger) Trigger(ctx context.Context) (types.Trigger, error) {
	lookup := t.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	link, _ := lookup(EnvPullLink)
	if strings.TrimSpace(link) == "" {
		return types.Trigger{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pull request link not set, " + EnvPullLink + " must contain a link to the triggering pull request")
	}
	repo, number, err := ParseProposalLink(link)
	if err != nil {
		return types.Trigger{}, err
	}
	pr, err := t.Host.GetProposal(ctx, repo, number)
	if err != nil {
		return types.Trigger{}, errbuilder.New().
			WithCode(errbuilder.CodeOf(err)).
			WithMsg("error getting info about pull request " + link).
			WithCause(err)
	}
	trigger := types.Trigger{
		TargetRepo:     pr.TargetRepo,
		TargetBranch:   pr.TargetBranch,
		SourceBranch:   pr.SourceBranch,
		Author:         pr.SourceRepo.Owner,
		ProposalNumber: pr.Number,
	}
	// Explicit branch variables win over what the host reports.
	if value, ok := lookup(EnvSourceBranch); ok && strings.TrimSpace(value) != "" {
		trigger.SourceBranch = types.Branch(strings.TrimSpace(value))
	}
	if value, ok := lookup(EnvTargetBranch); ok && strings.TrimSpace(value) != "" {
		trigger.TargetBranch = types.Branch(strings.TrimSpace(value))
	}
	return trigger, nil
}

// ParseProposalLink splits https://github.com/<owner>/<repo>/pull/<n>.
func ParseProposalLink(link string) (types.RepositoryID, int, error) {
	idx := strings.Index(link, "github.com/")
	if idx < 0 {
		return types.RepositoryID{}, 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("pull request link %q is not valid, it does not contain github.com", link))
	}
	rest := strings.Trim(strings.TrimSpace(link[idx+len("github.com/"):]), "/")
	parts := strings.Split(rest, "/")
	if len(parts) < 4 || parts[2] != "pull" || parts[0] == "" || parts[1] == "" {
		return types.RepositoryID{}, 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("pull request link %q must look like https://github.com/<owner>/<repo>/pull/<number>", link))
	}
	number, err := strconv.Atoi(parts[3])
	if err != nil || number <= 0 {
		return types.RepositoryID{}, 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("pull request link %q has an invalid number", link))
	}
	return types.RepositoryID{Owner: parts[0], Name: parts[1]}, number, nil
}

// ManualTrigger carries operator-entered parameters, for building a branch
// that has no pull request of its own.
type ManualTrigger struct {
	TargetRepo   types.RepositoryID
	TargetBranch types.Branch
	SourceBranch types.Branch
	Author       string
}

func (t ManualTrigger) Trigger(_ context.Context) (types.Trigger, error) {
	missing := []string{}
	if t.TargetRepo.Owner == "" || t.TargetRepo.Name == "" {
		missing = append(missing, "target repository")
	}
	if t.TargetBranch == "" {
		missing = append(missing, "target branch")
	}
	if t.SourceBranch == "" {
		missing = append(missing, "source branch")
	}
	if strings.TrimSpace(t.Author) == "" {
		missing = append(missing, "author")
	}
	if len(missing) > 0 {
		return types.Trigger{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manual trigger is missing " + strings.Join(missing, ", "))
	}
	return types.Trigger{
		TargetRepo:   t.TargetRepo,
		TargetBranch: t.TargetBranch,
		SourceBranch: t.SourceBranch,
		Author:       strings.TrimSpace(t.Author),
	}, nil
}

var _ ports.TriggerContextPort = EnvTrigger{}
var _ ports.TriggerContextPort = ManualTrigger{}
