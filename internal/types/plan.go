package types

import (
	"fmt"
	"strings"
)

type RefKind string

const (
	RefKindMergeResult RefKind = "merge-result"
	RefKindBranch      RefKind = "branch"
)

// FetchRef is either the merge result of a proposal or a branch tip.
type FetchRef struct {
	Kind           RefKind
	ProposalNumber int
	SourceBranch   Branch
	Branch         Branch
}

func MergeResultRef(number int, sourceBranch Branch) FetchRef {
	return FetchRef{Kind: RefKindMergeResult, ProposalNumber: number, SourceBranch: sourceBranch}
}

func BranchRef(branch Branch) FetchRef {
	return FetchRef{Kind: RefKindBranch, Branch: branch}
}

// Source is the remote side of the refspec.
func (r FetchRef) Source() string {
	if r.Kind == RefKindMergeResult {
		return fmt.Sprintf("pull/%d/merge", r.ProposalNumber)
	}
	return string(r.Branch)
}

// Destination is the local branch created by the fetch and checked out.
func (r FetchRef) Destination() string {
	if r.Kind == RefKindMergeResult {
		return fmt.Sprintf("pr%d-%s-merge", r.ProposalNumber, r.SourceBranch)
	}
	return string(r.Branch) + "-pr-build"
}

func (r FetchRef) Refspec() string {
	return r.Source() + ":" + r.Destination()
}

func (r FetchRef) String() string {
	return r.Refspec()
}

type FetchSpec struct {
	Repo RepositoryID
	Ref  FetchRef
}

// PlanVariant selects which partition of the catalog is built.
type PlanVariant string

const (
	UpstreamOfTarget   PlanVariant = "upstream"
	DownstreamOfTarget PlanVariant = "downstream"
)

func ParsePlanVariant(value string) (PlanVariant, bool) {
	switch PlanVariant(strings.ToLower(strings.TrimSpace(value))) {
	case UpstreamOfTarget:
		return UpstreamOfTarget, true
	case DownstreamOfTarget:
		return DownstreamOfTarget, true
	default:
		return "", false
	}
}

// BuildPlan is ordered; the target repository is never part of it.
// Only the partition selected by Variant is resolved into fetch specs.
type BuildPlan struct {
	Target     RepositoryID
	Variant    PlanVariant
	Upstream   []FetchSpec
	Downstream []FetchSpec
	Excluded   []CatalogEntry
}

func (p BuildPlan) Selected() []FetchSpec {
	if p.Variant == DownstreamOfTarget {
		return p.Downstream
	}
	return p.Upstream
}
