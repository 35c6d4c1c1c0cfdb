package ports

import (
	"context"

	"cascade-builds/internal/types"
)

// SourceHostPort queries the code host for branches and proposals.
type SourceHostPort interface {
	ListOpenProposals(ctx context.Context, repo types.RepositoryID) ([]types.ChangeProposal, error)
	BranchExists(ctx context.Context, repo types.RepositoryID, branch types.Branch) (bool, error)
	// GetProposal fetches one proposal fresh, including its current
	// mergeable state.
	GetProposal(ctx context.Context, repo types.RepositoryID, number int) (types.ChangeProposal, error)
}
