package core

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

// ParseInventory reads a newline-delimited list of bare repository names.
// Names owned outside defaultOwner are looked up in crossOrg.
func ParseInventory(content []byte, defaultOwner string, crossOrg map[string]string) []types.RepositoryID {
	var repos []types.RepositoryID
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		owner := defaultOwner
		if other, ok := crossOrg[line]; ok && other != "" {
			owner = other
		}
		repos = append(repos, types.RepositoryID{Owner: owner, Name: line})
	}
	return repos
}

type CatalogBuilder struct {
	Documents     ports.ConfigDocumentPort
	InventoryPath string
	DefaultOwner  string
	CrossOrg      map[string]string
}

func NewCatalogBuilder(documents ports.ConfigDocumentPort, cfg types.Config) CatalogBuilder {
	return CatalogBuilder{
		Documents:     documents,
		InventoryPath: cfg.InventoryPath,
		DefaultOwner:  cfg.DefaultOwner,
		CrossOrg:      cfg.CrossOrgOwners,
	}
}

// Build lists the mapping's upstream dependencies on their own branches,
// followed by the inventory at location on the release branch. Inventory
// order is kept exactly.
func (b CatalogBuilder) Build(ctx context.Context, location types.ConfigLocation, mapping types.DependencyMapping) (types.Catalog, error) {
	content, err := b.Documents.FetchDocument(ctx, location, b.InventoryPath)
	if err != nil {
		return nil, err
	}
	inventory := ParseInventory(content, b.DefaultOwner, b.CrossOrg)
	log.Ctx(ctx).Debug().
		Str("location", location.String()).
		Int("repositories", len(inventory)).
		Msg("loaded repository inventory")
	return AssembleCatalog(mapping, inventory), nil
}

func AssembleCatalog(mapping types.DependencyMapping, inventory []types.RepositoryID) types.Catalog {
	catalog := make(types.Catalog, 0, len(mapping.UpstreamDeps)+len(inventory))
	seen := make(map[types.RepositoryID]struct{}, cap(catalog))
	for _, dep := range mapping.UpstreamDeps {
		if _, ok := seen[dep.Repo]; ok {
			continue
		}
		seen[dep.Repo] = struct{}{}
		catalog = append(catalog, types.CatalogEntry{Repo: dep.Repo, Branch: dep.Branch})
	}
	for _, repo := range inventory {
		if _, ok := seen[repo]; ok {
			continue
		}
		seen[repo] = struct{}{}
		catalog = append(catalog, types.CatalogEntry{Repo: repo, Branch: mapping.PrimaryBranch})
	}
	return catalog
}

// ConfigLocator decides where the mapping and inventory documents are read
// from. A related proposal against the bootstrap repository redirects both,
// so edits to those documents are exercised before they are merged.
type ConfigLocator struct {
	Resolver      ChangeResolver
	Bootstrap     types.RepositoryID
	DefaultBranch types.Branch
}

func NewConfigLocator(resolver ChangeResolver, cfg types.Config) ConfigLocator {
	return ConfigLocator{
		Resolver:      resolver,
		Bootstrap:     cfg.BootstrapRepo,
		DefaultBranch: cfg.DefaultBranch,
	}
}

// Locate resolves the mapping location. When no bootstrap proposal exists the
// inventory branch is left pending until the release branch is known.
func (l ConfigLocator) Locate(ctx context.Context, trigger types.Trigger) (types.ConfigLocations, error) {
	pr, err := l.Resolver.FindRelated(ctx, l.Bootstrap, trigger.SourceBranch, trigger.Author)
	if err != nil {
		return types.ConfigLocations{}, err
	}
	locations := types.ConfigLocations{
		Mapping:     types.ConfigLocation{Repo: l.Bootstrap, Branch: l.DefaultBranch},
		BootstrapPR: pr,
	}
	if pr == nil {
		locations.Inventory = types.ConfigLocation{Repo: l.Bootstrap}
		locations.InventoryPending = true
		return locations, nil
	}
	if trigger.TargetBranch == l.DefaultBranch {
		locations.Mapping = types.ConfigLocation{Repo: pr.SourceRepo, Branch: trigger.SourceBranch}
	}
	locations.Inventory = types.ConfigLocation{
		Repo:   types.RepositoryID{Owner: pr.SourceRepo.Owner, Name: l.Bootstrap.Name},
		Branch: trigger.SourceBranch,
	}
	log.Ctx(ctx).Info().
		Int("proposal", pr.Number).
		Str("mapping", locations.Mapping.String()).
		Str("inventory", locations.Inventory.String()).
		Msg("using config documents from bootstrap proposal")
	return locations, nil
}

// InventoryFor completes a pending inventory location with the release branch.
func (l ConfigLocator) InventoryFor(locations types.ConfigLocations, mapping types.DependencyMapping) types.ConfigLocation {
	if !locations.InventoryPending {
		return locations.Inventory
	}
	return types.ConfigLocation{Repo: locations.Inventory.Repo, Branch: mapping.PrimaryBranch}
}

// LoadMappings fetches and parses the branch mapping document.
func LoadMappings(ctx context.Context, documents ports.ConfigDocumentPort, location types.ConfigLocation, path string) ([]types.DependencyMapping, error) {
	content, err := documents.FetchDocument(ctx, location, path)
	if err != nil {
		return nil, err
	}
	mappings, err := ParseBranchMapping(content)
	if err != nil {
		return nil, shared.KindError(shared.KindConfigParse,
			fmt.Sprintf("branch mapping from %s", location), err)
	}
	return mappings, nil
}
