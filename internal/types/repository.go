package types

import "strings"

// RepositoryID identifies a hosted repository by owner and name.
type RepositoryID struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

// ParseRepositoryID accepts "owner/name" or a bare "name". A bare name
// follows the single-word convention where the owner equals the name.
func ParseRepositoryID(value string) RepositoryID {
	trimmed := strings.TrimSpace(value)
	if owner, name, ok := strings.Cut(trimmed, "/"); ok {
		return RepositoryID{Owner: strings.TrimSpace(owner), Name: strings.TrimSpace(name)}
	}
	return RepositoryID{Owner: trimmed, Name: trimmed}
}

func (r RepositoryID) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r RepositoryID) String() string {
	return r.FullName()
}

func (r RepositoryID) IsZero() bool {
	return r.Owner == "" && r.Name == ""
}

// Branch is a branch name. DefaultBranch names the primary line.
type Branch string

const DefaultBranch Branch = "master"

func (b Branch) String() string {
	return string(b)
}

// CatalogEntry is one scheduled build unit.
type CatalogEntry struct {
	Repo   RepositoryID
	Branch Branch
}

// Catalog is ordered by build dependency order and unique by repository.
type Catalog []CatalogEntry

func (c Catalog) IndexOf(repo RepositoryID) int {
	for i, entry := range c {
		if entry.Repo == repo {
			return i
		}
	}
	return -1
}

func (c Catalog) Repositories() []RepositoryID {
	out := make([]RepositoryID, 0, len(c))
	for _, entry := range c {
		out = append(out, entry.Repo)
	}
	return out
}
