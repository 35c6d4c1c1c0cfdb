package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cascade-builds/internal/adapters"
	"cascade-builds/internal/types"
)

func TestNewServiceWiresMirrorFallback(t *testing.T) {
	service, err := NewService(types.Config{ConfigMirrorDir: t.TempDir()})
	require.NoError(t, err)
	_, ok := service.Documents.(adapters.FallbackConfigDocuments)
	assert.True(t, ok)
	assert.Equal(t, types.DefaultBootstrapRepo, service.Config.BootstrapRepo.FullName())

	service, err = NewService(types.Config{})
	require.NoError(t, err)
	_, ok = service.Documents.(adapters.HTTPConfigDocuments)
	assert.True(t, ok)
}

func TestNewTriggerModes(t *testing.T) {
	manual := newTrigger(types.TriggerConfig{
		Mode:         types.TriggerModeManual,
		TargetRepo:   "kiegroup/drools",
		TargetBranch: "master",
		SourceBranch: "feature-1",
		Author:       "jdoe",
	}, nil)
	trigger, err := manual.Trigger(t.Context())
	require.NoError(t, err)
	assert.Equal(t, types.RepositoryID{Owner: "kiegroup", Name: "drools"}, trigger.TargetRepo)

	env, ok := newTrigger(types.TriggerConfig{PullLink: "https://github.com/kiegroup/drools/pull/42"}, nil).(adapters.EnvTrigger)
	require.True(t, ok)
	link, found := env.Lookup(adapters.EnvPullLink)
	assert.True(t, found)
	assert.Equal(t, "https://github.com/kiegroup/drools/pull/42", link)
}
