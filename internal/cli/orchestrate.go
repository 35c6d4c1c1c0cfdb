package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cascade-builds/internal/app"
	"cascade-builds/internal/types"
)

const (
	variantUpstream   = types.UpstreamOfTarget
	variantDownstream = types.DownstreamOfTarget
)

type orchestrateOptions struct {
	ReposDir string
	DryRun   bool
}

func newOrchestrateCommand(variant types.PlanVariant) *cobra.Command {
	opts := orchestrateOptions{}
	short := "Build the repositories the triggering change depends on, then the change itself"
	if variant == variantDownstream {
		short = "Build the triggering change, then every repository that depends on it"
	}
	cmd := &cobra.Command{
		Use:   string(variant),
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOrchestrate(cmd.Context(), cmd, variant, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ReposDir, "repos-dir", "", "Directory the repositories are cloned into (default <variant>-repos)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the plan without cloning or building")
	_ = viper.BindPFlag("repos_dir", cmd.Flags().Lookup("repos-dir"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
	return cmd
}

func runOrchestrate(ctx context.Context, cmd *cobra.Command, variant types.PlanVariant, opts orchestrateOptions) error {
	service, err := newAppService(cmd)
	if err != nil {
		return err
	}
	result, err := service.Orchestrate(ctx, app.OrchestrateRequest{
		Variant:  variant,
		ReposDir: resolveString(cmd, opts.ReposDir, "repos_dir", "repos-dir"),
		DryRun:   resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("plan fingerprint: %s\n", result.Fingerprint)
	if len(result.Sequence.Steps) > 0 {
		fmt.Printf("built %d repositories in %s\n", len(result.Sequence.Steps), result.Sequence.ReposDir)
	}
	return nil
}
