package cli

import (
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cascade-builds/internal/app"
	"cascade-builds/internal/types"
)

type triggerOptions struct {
	Mode         string
	PullLink     string
	TargetRepo   string
	TargetBranch string
	SourceBranch string
	Author       string
}

var triggerFlags = triggerOptions{}

type buildOptions struct {
	Args              []string
	MergeableAttempts int
}

var buildFlags = buildOptions{}

func addTriggerFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&triggerFlags.Mode, "trigger", string(types.TriggerModeEnv), "Trigger source (env or manual)")
	flags.StringVar(&triggerFlags.PullLink, "pr-link", "", "Triggering pull request link, overrides ghprbPullLink")
	flags.StringVar(&triggerFlags.TargetRepo, "target-repo", "", "Manual trigger target repository (owner/name)")
	flags.StringVar(&triggerFlags.TargetBranch, "target-branch", "", "Manual trigger target branch")
	flags.StringVar(&triggerFlags.SourceBranch, "source-branch", "", "Manual trigger source branch")
	flags.StringVar(&triggerFlags.Author, "author", "", "Manual trigger author")

	_ = viper.BindPFlag("trigger", flags.Lookup("trigger"))
	_ = viper.BindPFlag("pr_link", flags.Lookup("pr-link"))
	_ = viper.BindPFlag("target_repo", flags.Lookup("target-repo"))
	_ = viper.BindPFlag("target_branch", flags.Lookup("target-branch"))
	_ = viper.BindPFlag("source_branch", flags.Lookup("source-branch"))
	_ = viper.BindPFlag("author", flags.Lookup("author"))
}

func addBuildFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringSliceVar(&buildFlags.Args, "build-arg", nil, "Build tool argument, repeatable (default clean install)")
	flags.IntVar(&buildFlags.MergeableAttempts, "mergeable-attempts", 0, "Host calls made to learn a proposal's mergeable status")
	_ = viper.BindPFlag("build_args", flags.Lookup("build-arg"))
	_ = viper.BindPFlag("mergeable_attempts", flags.Lookup("mergeable-attempts"))
}

// loadConfig assembles the explicit service configuration from flags,
// environment and config file. Unset values are defaulted by the service.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	cfg := types.Config{
		GitHubToken:     viper.GetString("github_token"),
		GitHubAPIURL:    viper.GetString("github_api_url"),
		RawBaseURL:      viper.GetString("raw_base_url"),
		CloneBaseURL:    viper.GetString("clone_base_url"),
		DefaultOwner:    viper.GetString("default_owner"),
		DefaultBranch:   types.Branch(viper.GetString("default_branch")),
		MappingPath:     viper.GetString("mapping_path"),
		InventoryPath:   viper.GetString("inventory_path"),
		ConfigMirrorDir: viper.GetString("config_mirror_dir"),
		CacheURL:        viper.GetString("cache_url"),
		MetricsTextfile: viper.GetString("metrics_textfile"),

		MergeableAttempts: resolveInt(cmd, buildFlags.MergeableAttempts, "mergeable_attempts", "mergeable-attempts"),
		MergeableDelay:    time.Duration(viper.GetInt("mergeable_delay_ms")) * time.Millisecond,
		HTTPTimeout:       time.Duration(viper.GetInt("http_timeout_sec")) * time.Second,

		Build: types.BuildToolConfig{
			Command:   viper.GetString("build_command"),
			Args:      resolveStrings(cmd, buildFlags.Args, "build_args", "build-arg"),
			Env:       viper.GetStringSlice("build_env"),
			MavenOpts: viper.GetString("maven_opts"),
			LocalRepo: viper.GetString("local_repo"),
		},
		Trigger: types.TriggerConfig{
			Mode:         types.TriggerMode(resolveString(cmd, triggerFlags.Mode, "trigger", "trigger")),
			PullLink:     resolveString(cmd, triggerFlags.PullLink, "pr_link", "pr-link"),
			TargetRepo:   resolveString(cmd, triggerFlags.TargetRepo, "target_repo", "target-repo"),
			TargetBranch: resolveString(cmd, triggerFlags.TargetBranch, "target_branch", "target-branch"),
			SourceBranch: resolveString(cmd, triggerFlags.SourceBranch, "source_branch", "source-branch"),
			Author:       resolveString(cmd, triggerFlags.Author, "author", "author"),
		},
	}
	if bootstrap := strings.TrimSpace(viper.GetString("bootstrap_repo")); bootstrap != "" {
		cfg.BootstrapRepo = types.ParseRepositoryID(bootstrap)
	}
	if viper.IsSet("families") {
		cfg.Families = viper.GetStringSlice("families")
	}
	if viper.IsSet("cross_org_owners") {
		cfg.CrossOrgOwners = viper.GetStringMapString("cross_org_owners")
	}
	if viper.IsSet("exclusions") {
		rules := []types.ExclusionRule{}
		if err := viper.UnmarshalKey("exclusions", &rules); err != nil {
			return types.Config{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid exclusions config").
				WithCause(err)
		}
		cfg.Exclusions = rules
	}
	switch cfg.Trigger.Mode {
	case "", types.TriggerModeEnv, types.TriggerModeManual:
	default:
		return types.Config{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("trigger must be env or manual, got " + string(cfg.Trigger.Mode))
	}
	return cfg, nil
}

func newAppService(cmd *cobra.Command) (app.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return app.Service{}, err
	}
	return app.NewService(cfg)
}
