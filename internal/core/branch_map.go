package core

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

// ParseBranchMapping reads a branch-mapping document of the form
//
//	master:
//	  - errai: master
//	  - AppFormer/uberfire: master
//
// Mappings and their upstream dependencies are returned in document order.
func ParseBranchMapping(content []byte) ([]types.DependencyMapping, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, shared.KindError(shared.KindConfigParse, "invalid branch mapping yaml", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, shared.KindError(shared.KindConfigParse, "branch mapping document is empty", nil)
	}
	root := deref(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, shared.KindError(shared.KindConfigParse,
			fmt.Sprintf("branch mapping must be a map of branch to dependency list (line %d)", root.Line), nil)
	}

	seen := make(map[types.Branch]struct{}, len(root.Content)/2)
	mappings := make([]types.DependencyMapping, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		branch, err := scalarValue(root.Content[i], "primary branch")
		if err != nil {
			return nil, err
		}
		primary := types.Branch(branch)
		if _, dup := seen[primary]; dup {
			return nil, shared.KindError(shared.KindConfigParse,
				fmt.Sprintf("primary branch %q is mapped more than once", primary), nil)
		}
		seen[primary] = struct{}{}

		deps, err := parseUpstreamDeps(primary, deref(root.Content[i+1]))
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, types.DependencyMapping{
			PrimaryBranch: primary,
			UpstreamDeps:  deps,
		})
	}
	return mappings, nil
}

func parseUpstreamDeps(primary types.Branch, node *yaml.Node) ([]types.UpstreamDependency, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, shared.KindError(shared.KindConfigParse,
			fmt.Sprintf("dependencies of branch %q must be a list (line %d)", primary, node.Line), nil)
	}
	var deps []types.UpstreamDependency
	seen := make(map[types.RepositoryID]struct{})
	for _, item := range node.Content {
		item = deref(item)
		if item.Kind != yaml.MappingNode {
			return nil, shared.KindError(shared.KindConfigParse,
				fmt.Sprintf("dependency of branch %q must be a repo: branch map (line %d)", primary, item.Line), nil)
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			repoRef, err := scalarValue(item.Content[j], "repository")
			if err != nil {
				return nil, err
			}
			branch, err := scalarValue(item.Content[j+1], "dependency branch")
			if err != nil {
				return nil, err
			}
			repo := types.ParseRepositoryID(repoRef)
			if repo.Owner == "" || repo.Name == "" {
				return nil, shared.KindError(shared.KindConfigParse,
					fmt.Sprintf("invalid repository reference %q under branch %q", repoRef, primary), nil)
			}
			if _, dup := seen[repo]; dup {
				return nil, shared.KindError(shared.KindConfigParse,
					fmt.Sprintf("repository %s listed twice under branch %q", repo, primary), nil)
			}
			seen[repo] = struct{}{}
			deps = append(deps, types.UpstreamDependency{Repo: repo, Branch: types.Branch(branch)})
		}
	}
	return deps, nil
}

func scalarValue(node *yaml.Node, what string) (string, error) {
	node = deref(node)
	if node.Kind != yaml.ScalarNode {
		return "", shared.KindError(shared.KindConfigParse,
			fmt.Sprintf("%s must be a string (line %d)", what, node.Line), nil)
	}
	value := strings.TrimSpace(node.Value)
	if value == "" || node.Tag == "!!null" {
		return "", shared.KindError(shared.KindConfigParse,
			fmt.Sprintf("%s is empty (line %d)", what, node.Line), nil)
	}
	return value, nil
}

func deref(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// ResolveMapping finds the mapping that governs repo at branch. A mapping
// listing (repo, branch) among its upstream dependencies wins over one
// whose primary branch equals branch.
func ResolveMapping(mappings []types.DependencyMapping, repo types.RepositoryID, branch types.Branch) (types.DependencyMapping, error) {
	for _, mapping := range mappings {
		if mapping.Contains(repo, branch) {
			return mapping, nil
		}
	}
	for _, mapping := range mappings {
		if mapping.PrimaryBranch == branch {
			return mapping, nil
		}
	}
	return types.DependencyMapping{}, shared.KindError(shared.KindMappingNotFound,
		fmt.Sprintf("repo %s, branch %s", repo, branch), nil)
}

// BaseBranch returns the stable branch repo is built from on the release
// line described by mapping.
func BaseBranch(mapping types.DependencyMapping, repo types.RepositoryID, families []string) types.Branch {
	if branch, ok := mapping.BranchOf(repo); ok {
		return branch
	}
	if family := familyOf(repo.Name, families); family != "" {
		for _, dep := range mapping.UpstreamDeps {
			if familyOf(dep.Repo.Name, families) == family {
				return dep.Branch
			}
		}
	}
	return mapping.PrimaryBranch
}

func familyOf(name string, families []string) string {
	for _, family := range families {
		if family != "" && strings.HasPrefix(name, family) {
			return family
		}
	}
	return ""
}
