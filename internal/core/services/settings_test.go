package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/linkcheck/internal/adapters/driven/config/file"
	"github.com/custodia-labs/linkcheck/internal/core/domain"
)

func newTestSettings(t *testing.T) (*SettingsService, *file.ConfigStore) {
	t.Helper()
	store, err := file.NewConfigStore(filepath.Join(t.TempDir(), file.DefaultFileName))
	require.NoError(t, err)
	return NewSettingsService(store), store
}

func TestSettingsService_Get_Defaults(t *testing.T) {
	svc, _ := newTestSettings(t)

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_Configured(t *testing.T) {
	svc, store := newTestSettings(t)
	require.NoError(t, store.Set("root", "handbook"))
	require.NoError(t, store.Set("external.enabled", true))
	require.NoError(t, store.Set("external.concurrency", 0))
	require.NoError(t, store.Set("external.timeout", 5))
	require.NoError(t, store.Set("external.rate_limit", 2.5))
	require.NoError(t, store.Set("external.follow_redirects", false))
	require.NoError(t, store.Set("external.fail_on_exit", true))
	require.NoError(t, store.Set("analysis.workers", 8))
	require.NoError(t, store.Set("diagnostics.references", "warning"))
	require.NoError(t, store.Set("diagnostics.unused_link_definitions", "error"))
	require.NoError(t, store.Set("diagnostics.ignore_links", []string{"drafts/*"}))
	require.NoError(t, store.Set("history.path", "/var/lib/linkcheck"))
	require.NoError(t, store.Set("watch.debounce_ms", 50))

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, "handbook", settings.Root)
	assert.True(t, settings.External.Enabled)
	assert.Equal(t, 0, settings.External.Concurrency)
	assert.Equal(t, 5*time.Second, settings.External.Timeout)
	assert.InDelta(t, 2.5, settings.External.RateLimit, 0.0001)
	assert.False(t, settings.External.FollowRedirects)
	assert.True(t, settings.External.FailOnBroken)
	assert.Equal(t, 8, settings.Analysis.Workers)
	assert.Equal(t, domain.LevelWarning, settings.Diagnostics.ValidateReferences)
	assert.Equal(t, domain.LevelError, settings.Diagnostics.ValidateUnusedLinkDefinitions)
	assert.Equal(t, domain.LevelError, settings.Diagnostics.ValidateFileLinks)
	assert.Equal(t, []string{"drafts/*"}, settings.Diagnostics.IgnoreLinks)
	assert.Equal(t, "/var/lib/linkcheck", settings.History.Path)
	assert.Equal(t, 50*time.Millisecond, settings.Watch.Debounce)
}

func TestSettingsService_Get_InvalidValuesFallBack(t *testing.T) {
	svc, store := newTestSettings(t)
	require.NoError(t, store.Set("external.enabled", "yes"))
	require.NoError(t, store.Set("external.concurrency", "many"))
	require.NoError(t, store.Set("external.timeout", 0))
	require.NoError(t, store.Set("external.rate_limit", "fast"))
	require.NoError(t, store.Set("analysis.workers", 0))
	require.NoError(t, store.Set("diagnostics.file_links", "fatal"))

	settings, err := svc.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.External.Enabled, settings.External.Enabled)
	assert.Equal(t, defaults.External.Concurrency, settings.External.Concurrency)
	assert.Equal(t, defaults.External.Timeout, settings.External.Timeout)
	assert.Zero(t, settings.External.RateLimit)
	assert.Equal(t, defaults.Analysis.Workers, settings.Analysis.Workers)
	assert.Equal(t, domain.LevelError, settings.Diagnostics.ValidateFileLinks)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  any
	}{
		{"root", "handbook", "handbook"},
		{"external.enabled", "true", true},
		{"external.concurrency", " 4 ", 4},
		{"external.rate_limit", "0.5", 0.5},
		{"diagnostics.fragment_links", "ignore", "ignore"},
		{"diagnostics.ignore_links", "a/*, ,b/*", []string{"a/*", "b/*"}},
		{"diagnostics.ignore_links", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			svc, _ := newTestSettings(t)

			require.NoError(t, svc.Set(tt.key, tt.value))

			got, ok := svc.Value(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsService_Set_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"bad bool", "external.enabled", "maybe"},
		{"bad int", "analysis.workers", "four"},
		{"negative int", "external.timeout", "-1"},
		{"negative float", "external.rate_limit", "-0.5"},
		{"bad level", "diagnostics.references", "fatal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestSettings(t)

			err := svc.Set(tt.key, tt.value)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, ok := svc.Value(tt.key)
			assert.False(t, ok)
		})
	}
}

func TestSettingsService_SetThenGet(t *testing.T) {
	svc, _ := newTestSettings(t)

	require.NoError(t, svc.Set("external.timeout", "12"))
	require.NoError(t, svc.Set("diagnostics.ignore_links", "https://localhost/*"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, settings.External.Timeout)
	assert.True(t, settings.Diagnostics.Ignores("https://localhost/admin"))
}

func TestSettingsService_Keys(t *testing.T) {
	svc, _ := newTestSettings(t)

	keys := svc.Keys()

	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "external.fail_on_exit")
	assert.Contains(t, keys, "diagnostics.ignore_links")
	assert.Len(t, keys, len(settingKinds))
}

func TestSettingsService_Path(t *testing.T) {
	svc, store := newTestSettings(t)

	assert.Equal(t, store.Path(), svc.Path())
}
