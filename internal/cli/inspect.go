package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cascade-builds/internal/app"
	"cascade-builds/internal/types"
)

type inspectOptions struct {
	MappingRepo   string
	MappingBranch string
	Release       string
	CheckBranches bool
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show release lines from the branch mapping and their upstream branches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.MappingRepo, "mapping-repo", "", "Repository holding the branch mapping (default bootstrap repository)")
	cmd.Flags().StringVar(&opts.MappingBranch, "mapping-branch", "", "Branch the branch mapping is read from (default branch)")
	cmd.Flags().StringVar(&opts.Release, "release", "", "Also list the repository catalog of this release branch")
	cmd.Flags().BoolVar(&opts.CheckBranches, "check-branches", false, "Check every upstream branch exists on the host")
	_ = viper.BindPFlag("mapping_repo", cmd.Flags().Lookup("mapping-repo"))
	_ = viper.BindPFlag("mapping_branch", cmd.Flags().Lookup("mapping-branch"))
	_ = viper.BindPFlag("release", cmd.Flags().Lookup("release"))
	_ = viper.BindPFlag("check_branches", cmd.Flags().Lookup("check-branches"))
	return cmd
}

func runInspect(ctx context.Context, cmd *cobra.Command, opts inspectOptions) error {
	service, err := newAppService(cmd)
	if err != nil {
		return err
	}
	location := types.ConfigLocation{
		Branch: types.Branch(resolveString(cmd, opts.MappingBranch, "mapping_branch", "mapping-branch")),
	}
	if repo := strings.TrimSpace(resolveString(cmd, opts.MappingRepo, "mapping_repo", "mapping-repo")); repo != "" {
		location.Repo = types.ParseRepositoryID(repo)
	}
	result, err := service.Inspect(ctx, app.InspectRequest{
		Location:      location,
		ReleaseBranch: types.Branch(resolveString(cmd, opts.Release, "release", "release")),
		CheckBranches: resolveBool(cmd, opts.CheckBranches, "check_branches", "check-branches"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("branch mapping: %s\n", result.Location)
	for _, release := range result.Releases {
		fmt.Printf("- %s: %d upstream repositories\n", release.Branch, len(release.UpstreamDeps))
		for _, dep := range release.UpstreamDeps {
			fmt.Printf("  %s@%s\n", dep.Repo, dep.Branch)
		}
		for _, dep := range release.Missing {
			fmt.Printf("  missing branch: %s@%s\n", dep.Repo, dep.Branch)
		}
	}
	if len(result.Catalog) > 0 {
		fmt.Printf("catalog: %d repositories\n", len(result.Catalog))
		for _, entry := range result.Catalog {
			fmt.Printf("- %s@%s\n", entry.Repo, entry.Branch)
		}
	}
	return nil
}
