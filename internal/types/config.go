package types

import "time"

// Config carries every operator setting for one invocation. It is built
// once by the CLI and passed into the service.
type Config struct {
	GitHubToken   string
	GitHubAPIURL  string
	RawBaseURL    string
	CloneBaseURL  string
	BootstrapRepo RepositoryID
	DefaultOwner  string
	DefaultBranch Branch
	MappingPath   string
	InventoryPath string

	// CrossOrgOwners maps inventory names to an owner other than DefaultOwner.
	CrossOrgOwners map[string]string
	// Families are repository name prefixes sharing one upstream branch.
	Families   []string
	Exclusions []ExclusionRule

	MergeableAttempts int
	MergeableDelay    time.Duration
	HTTPTimeout       time.Duration

	Build   BuildToolConfig
	Trigger TriggerConfig

	ConfigMirrorDir string
	CacheURL        string
	MetricsTextfile string
}

type TriggerMode string

const (
	TriggerModeEnv    TriggerMode = "env"
	TriggerModeManual TriggerMode = "manual"
)

// TriggerConfig selects where the triggering change is read from. PullLink
// overrides the environment in env mode.
type TriggerConfig struct {
	Mode         TriggerMode
	PullLink     string
	TargetRepo   string
	TargetBranch string
	SourceBranch string
	Author       string
}

type BuildToolConfig struct {
	Command   string
	Args      []string
	Env       []string
	MavenOpts string
	LocalRepo string
}

// ExclusionRule removes matching repositories from a plan. An empty When
// always applies.
type ExclusionRule struct {
	Name         string   `yaml:"name" mapstructure:"name"`
	When         string   `yaml:"when,omitempty" mapstructure:"when"`
	Repositories []string `yaml:"repositories" mapstructure:"repositories"`
}

const (
	DefaultGitHubAPIURL   = "https://api.github.com/"
	DefaultRawBaseURL     = "https://raw.githubusercontent.com"
	DefaultCloneBaseURL   = "https://github.com"
	DefaultOwner          = "kiegroup"
	DefaultBootstrapRepo  = "kiegroup/droolsjbpm-build-bootstrap"
	DefaultMappingPath    = "script/branch-mapping.yaml"
	DefaultInventoryPath  = "script/repository-list.txt"
	DefaultBuildCommand   = "mvn"
	DefaultMergeableTries = 5
	DefaultMergeableDelay = 3 * time.Second
	DefaultHTTPTimeout    = 60 * time.Second
)

func DefaultCrossOrgOwners() map[string]string {
	return map[string]string{"kie-eap-modules": "jboss-integration"}
}

func DefaultBuildArgs() []string {
	return []string{"clean", "install"}
}

func DefaultFamilies() []string {
	return []string{"errai", "uberfire", "dashbuilder"}
}

func DefaultExclusions() []ExclusionRule {
	return []ExclusionRule{
		{
			Name:         "no-consumers",
			Repositories: []string{"kiegroup/droolsjbpm-tools", "kiegroup/kie-docs"},
		},
		{
			Name: "docs-target",
			When: `target.name == "kie-docs"`,
			Repositories: []string{
				"kiegroup/kie-wb-playground",
				"kiegroup/kie-wb-common",
				"kiegroup/jbpm-form-modeler",
				"kiegroup/drools-wb",
				"kiegroup/optaplanner-wb",
				"kiegroup/jbpm-designer",
				"kiegroup/jbpm-wb",
				"kiegroup/kie-wb-distributions",
			},
		},
	}
}

// WithDefaults fills every unset field.
func (c Config) WithDefaults() Config {
	if c.GitHubAPIURL == "" {
		c.GitHubAPIURL = DefaultGitHubAPIURL
	}
	if c.RawBaseURL == "" {
		c.RawBaseURL = DefaultRawBaseURL
	}
	if c.CloneBaseURL == "" {
		c.CloneBaseURL = DefaultCloneBaseURL
	}
	if c.BootstrapRepo.IsZero() {
		c.BootstrapRepo = ParseRepositoryID(DefaultBootstrapRepo)
	}
	if c.DefaultOwner == "" {
		c.DefaultOwner = DefaultOwner
	}
	if c.DefaultBranch == "" {
		c.DefaultBranch = DefaultBranch
	}
	if c.MappingPath == "" {
		c.MappingPath = DefaultMappingPath
	}
	if c.InventoryPath == "" {
		c.InventoryPath = DefaultInventoryPath
	}
	if c.CrossOrgOwners == nil {
		c.CrossOrgOwners = DefaultCrossOrgOwners()
	}
	if c.Families == nil {
		c.Families = DefaultFamilies()
	}
	if c.Exclusions == nil {
		c.Exclusions = DefaultExclusions()
	}
	if c.MergeableAttempts <= 0 {
		c.MergeableAttempts = DefaultMergeableTries
	}
	if c.MergeableDelay <= 0 {
		c.MergeableDelay = DefaultMergeableDelay
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Build.Command == "" {
		c.Build.Command = DefaultBuildCommand
	}
	if len(c.Build.Args) == 0 {
		c.Build.Args = DefaultBuildArgs()
	}
	if c.Trigger.Mode == "" {
		c.Trigger.Mode = TriggerModeEnv
	}
	return c
}
