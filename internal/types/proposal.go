package types

// ChangeProposal is a pull request summarized for resolution.
// Mergeable is nil while the host has not computed it yet.
type ChangeProposal struct {
	Number       int
	TargetRepo   RepositoryID
	TargetBranch Branch
	SourceRepo   RepositoryID
	SourceBranch Branch
	Mergeable    *bool
}

// Trigger describes the change that started the cascade build.
type Trigger struct {
	TargetRepo     RepositoryID
	TargetBranch   Branch
	SourceBranch   Branch
	Author         string
	ProposalNumber int
}
