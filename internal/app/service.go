package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"cascade-builds/internal/adapters"
	"cascade-builds/internal/core"
	"cascade-builds/internal/policies"
	"cascade-builds/internal/ports"
	"cascade-builds/internal/types"
)

type Service struct {
	Config    types.Config
	Host      ports.SourceHostPort
	Documents ports.ConfigDocumentPort
	Trigger   ports.TriggerContextPort
	VCS       ports.VCSPort
	Build     ports.BuildToolPort
	Workspace ports.WorkspacePort
	PlanLog   ports.PlanLogPort
	Metrics   ports.MetricsPort
	Cache     ports.ArtifactCachePort
	Sleep     core.Sleeper
	Clock     func() time.Time
}

func NewService(cfg types.Config) (Service, error) {
	cfg = cfg.WithDefaults()
	host, err := adapters.NewGitHubSourceHost(cfg)
	if err != nil {
		return Service{}, err
	}
	var documents ports.ConfigDocumentPort = adapters.NewHTTPConfigDocuments(cfg)
	if dir := strings.TrimSpace(cfg.ConfigMirrorDir); dir != "" {
		documents = adapters.FallbackConfigDocuments{
			Primary:  documents,
			Fallback: adapters.NewDirConfigDocuments(dir),
		}
	}
	return Service{
		Config:    cfg,
		Host:      host,
		Documents: documents,
		Trigger:   newTrigger(cfg.Trigger, host),
		VCS:       adapters.NewGitMaterializer(cfg),
		Build:     adapters.NewExecBuildTool(cfg),
		Workspace: adapters.NewWorkspaceAdapter(),
		PlanLog:   adapters.NewPlanLogWriter(cfg),
		Metrics:   adapters.NewPrometheusMetrics(cfg.MetricsTextfile),
		Cache:     adapters.NewArtifactCache(cfg, cacheArchiveDir()),
		Sleep:     core.SleepContext,
		Clock:     time.Now,
	}, nil
}

func newTrigger(cfg types.TriggerConfig, host ports.SourceHostPort) ports.TriggerContextPort {
	if cfg.Mode == types.TriggerModeManual {
		return adapters.ManualTrigger{
			TargetRepo:   types.ParseRepositoryID(cfg.TargetRepo),
			TargetBranch: types.Branch(strings.TrimSpace(cfg.TargetBranch)),
			SourceBranch: types.Branch(strings.TrimSpace(cfg.SourceBranch)),
			Author:       cfg.Author,
		}
	}
	trigger := adapters.NewEnvTrigger(host)
	if link := strings.TrimSpace(cfg.PullLink); link != "" {
		base := trigger.Lookup
		trigger.Lookup = func(key string) (string, bool) {
			if key == adapters.EnvPullLink {
				return link, true
			}
			return base(key)
		}
	}
	return trigger
}

func cacheArchiveDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "cascade-builds")
	}
	return filepath.Join(os.TempDir(), "cascade-builds")
}

func (s Service) changeResolver() core.ChangeResolver {
	resolver := core.NewChangeResolver(s.Host, s.Config.WithDefaults())
	resolver.Metrics = s.Metrics
	if s.Sleep != nil {
		resolver.Sleep = s.Sleep
	}
	return resolver
}

func (s Service) exclusionPolicy() (policies.ExclusionPolicy, error) {
	return policies.NewExclusionPolicy(s.Config.WithDefaults().Exclusions)
}
