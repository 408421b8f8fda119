package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyRoot                    = "root"
	keyExternalEnabled         = "external.enabled"
	keyExternalConcurrency     = "external.concurrency"
	keyExternalTimeout         = "external.timeout"
	keyExternalRateLimit       = "external.rate_limit"
	keyExternalFollowRedirects = "external.follow_redirects"
	keyExternalFailOnExit      = "external.fail_on_exit"
	keyAnalysisWorkers         = "analysis.workers"
	keyIgnoreLinks             = "diagnostics.ignore_links"
	keyDuplicateDefinitions    = "diagnostics.duplicate_link_definitions"
	keyFileLinks               = "diagnostics.file_links"
	keyFragmentLinks           = "diagnostics.fragment_links"
	keyFileLinkFragments       = "diagnostics.markdown_file_link_fragments"
	keyReferences              = "diagnostics.references"
	keyUnusedDefinitions       = "diagnostics.unused_link_definitions"
	keyHistoryPath             = "history.path"
	keyWatchDebounce           = "watch.debounce_ms"
)

// settingKind is how a setting's text form is parsed.
type settingKind int

const (
	kindString settingKind = iota
	kindBool
	kindInt
	kindFloat
	kindLevel
	kindList
)

var settingKinds = map[string]settingKind{
	keyRoot:                    kindString,
	keyExternalEnabled:         kindBool,
	keyExternalConcurrency:     kindInt,
	keyExternalTimeout:         kindInt,
	keyExternalRateLimit:       kindFloat,
	keyExternalFollowRedirects: kindBool,
	keyExternalFailOnExit:      kindBool,
	keyAnalysisWorkers:         kindInt,
	keyIgnoreLinks:             kindList,
	keyDuplicateDefinitions:    kindLevel,
	keyFileLinks:               kindLevel,
	keyFragmentLinks:           kindLevel,
	keyFileLinkFragments:       kindLevel,
	keyReferences:              kindLevel,
	keyUnusedDefinitions:       kindLevel,
	keyHistoryPath:             kindString,
	keyWatchDebounce:           kindInt,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Values of the wrong type or out of range fall back to the default.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Root: s.getString(keyRoot, defaults.Root),
		External: domain.ExternalSettings{
			Enabled:         s.getBool(keyExternalEnabled, defaults.External.Enabled),
			Concurrency:     s.getInt(keyExternalConcurrency, defaults.External.Concurrency),
			Timeout:         s.getSeconds(keyExternalTimeout, defaults.External.Timeout),
			RateLimit:       s.getFloat(keyExternalRateLimit, defaults.External.RateLimit),
			FollowRedirects: s.getBool(keyExternalFollowRedirects, defaults.External.FollowRedirects),
			FailOnBroken:    s.getBool(keyExternalFailOnExit, defaults.External.FailOnBroken),
		},
		Analysis: domain.AnalysisSettings{
			Workers: s.getInt(keyAnalysisWorkers, defaults.Analysis.Workers),
		},
		Diagnostics: domain.DiagnosticOptions{
			IgnoreLinks:                       s.getList(keyIgnoreLinks, defaults.Diagnostics.IgnoreLinks),
			ValidateDuplicateLinkDefinitions:  s.getLevel(keyDuplicateDefinitions, defaults.Diagnostics.ValidateDuplicateLinkDefinitions),
			ValidateFileLinks:                 s.getLevel(keyFileLinks, defaults.Diagnostics.ValidateFileLinks),
			ValidateFragmentLinks:             s.getLevel(keyFragmentLinks, defaults.Diagnostics.ValidateFragmentLinks),
			ValidateMarkdownFileLinkFragments: s.getLevel(keyFileLinkFragments, defaults.Diagnostics.ValidateMarkdownFileLinkFragments),
			ValidateReferences:                s.getLevel(keyReferences, defaults.Diagnostics.ValidateReferences),
			ValidateUnusedLinkDefinitions:     s.getLevel(keyUnusedDefinitions, defaults.Diagnostics.ValidateUnusedLinkDefinitions),
		},
		History: domain.HistorySettings{
			Path: s.configStore.GetString(keyHistoryPath),
		},
		Watch: domain.WatchSettings{
			Debounce: s.getMillis(keyWatchDebounce, defaults.Watch.Debounce),
		},
	}

	// The worker pool needs at least one goroutine.
	if settings.Analysis.Workers < 1 {
		settings.Analysis.Workers = defaults.Analysis.Workers
	}

	return settings, nil
}

// Value returns the raw configured value for key.
func (s *SettingsService) Value(key string) (any, bool) {
	return s.configStore.Get(key)
}

// Set parses value according to the type of key and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every recognised setting key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)

	switch kind {
	case kindBool:
		return strconv.ParseBool(value)
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative: %d", n)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, fmt.Errorf("must not be negative: %g", f)
		}
		return f, nil
	case kindLevel:
		level, err := domain.ParseDiagnosticLevel(value)
		if err != nil {
			return nil, fmt.Errorf("expected ignore, warning or error, got %q", value)
		}
		return string(level), nil
	case kindList:
		items := []string{}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch val.(type) {
	case int, int64:
	default:
		return defaultVal
	}
	n := s.configStore.GetInt(key)
	if n < 0 {
		return defaultVal
	}
	return n
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case int64:
		f = float64(v)
	case int:
		f = float64(v)
	default:
		return defaultVal
	}
	if f < 0 {
		return defaultVal
	}
	return f
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	if _, ok := val.(bool); !ok {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	n := s.getInt(key, -1)
	if n <= 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Second
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	n := s.getInt(key, -1)
	if n < 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Millisecond
}

func (s *SettingsService) getList(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetStringSlice(key)
}

func (s *SettingsService) getLevel(key string, defaultVal domain.DiagnosticLevel) domain.DiagnosticLevel {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	level, err := domain.ParseDiagnosticLevel(val)
	if err != nil {
		return defaultVal
	}
	return level
}
