package cli

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cascade-builds/internal/app"
	"cascade-builds/internal/types"
)

type planOptions struct {
	Variant string
	Both    bool
}

func newPlanCommand() *cobra.Command {
	opts := planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Resolve and print the build plan without cloning or building",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Variant, "variant", string(variantUpstream), "Partition to plan (upstream or downstream)")
	cmd.Flags().BoolVar(&opts.Both, "both", false, "Resolve and print both partitions")
	_ = viper.BindPFlag("variant", cmd.Flags().Lookup("variant"))
	_ = viper.BindPFlag("both", cmd.Flags().Lookup("both"))
	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, opts planOptions) error {
	variant, ok := types.ParsePlanVariant(resolveString(cmd, opts.Variant, "variant", "variant"))
	if !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("variant must be upstream or downstream")
	}
	service, err := newAppService(cmd)
	if err != nil {
		return err
	}
	both := resolveBool(cmd, opts.Both, "both", "both")
	result, err := service.Plan(ctx, app.PlanRequest{Variant: variant, Both: both})
	if err != nil {
		return err
	}

	fmt.Printf("release branch: %s\n", result.Mapping.PrimaryBranch)
	fmt.Printf("branch mapping: %s\n", result.Locations.Mapping)
	fmt.Printf("repository list: %s\n", result.Locations.Inventory)
	if both || variant == types.UpstreamOfTarget {
		fmt.Println("upstream:")
		if err := service.PlanLog.WritePlan(result.Plan.Upstream); err != nil {
			return err
		}
	}
	if both || variant == types.DownstreamOfTarget {
		fmt.Println("downstream:")
		if err := service.PlanLog.WritePlan(result.Plan.Downstream); err != nil {
			return err
		}
	}
	for _, entry := range result.Plan.Excluded {
		fmt.Printf("excluded: %s@%s\n", entry.Repo, entry.Branch)
	}
	fmt.Printf("plan fingerprint: %s\n", result.Fingerprint)
	return nil
}
