// Package extension provides the Forge extension adapter for the accounts
// session engine.
//
// It implements the forge.Extension interface to integrate the engine into
// a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions or
// via YAML configuration files under "extensions.accounts" or "accounts"
// keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	accounts "github.com/blacklink/accounts"
	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/docstore/memory"
	"github.com/blacklink/accounts/username"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "accounts"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Identity session and entitlement core"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the accounts engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	engine      *accounts.Session
	store       docstore.Store
	sessionOpts []accounts.Option
}

// New creates a new accounts Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying session engine.
// This is nil until Register is called.
func (e *Extension) Engine() *accounts.Session { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the session engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts := e.buildSessionOpts()

	e.engine = accounts.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*accounts.Session, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("accounts: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("accounts: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildSessionOpts constructs accounts.Option values from resolved config.
func (e *Extension) buildSessionOpts() []accounts.Option {
	opts := make([]accounts.Option, 0, len(e.sessionOpts)+3)

	if e.config.EntitlementCacheTTL > 0 {
		opts = append(opts, accounts.WithEntitlementCacheTTL(e.config.EntitlementCacheTTL))
	}
	if e.config.CohortMarker != "" && e.config.CohortSuffix != "" {
		opts = append(opts, accounts.WithCohortPolicy(username.CohortPolicy{
			Marker: e.config.CohortMarker,
			Suffix: e.config.CohortSuffix,
		}))
	}
	if e.config.OrgLimit > 0 {
		opts = append(opts, accounts.WithOrgLimit(e.config.OrgLimit))
	}

	// Append any pass-through session options.
	opts = append(opts, e.sessionOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("accounts: configuration is required but not found in config files; " +
				"ensure 'extensions.accounts' or 'accounts' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("accounts: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("entitlement_cache_ttl", e.config.EntitlementCacheTTL),
		forge.F("cohort_marker", e.config.CohortMarker),
		forge.F("cohort_suffix", e.config.CohortSuffix),
		forge.F("org_limit", e.config.OrgLimit),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.accounts" first (namespaced pattern).
	if cm.IsSet("extensions.accounts") {
		if err := cm.Bind("extensions.accounts", &cfg); err == nil {
			e.Logger().Debug("accounts: loaded config from file",
				forge.F("key", "extensions.accounts"),
			)
			return cfg, true
		}
		e.Logger().Warn("accounts: failed to bind extensions.accounts config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "accounts" key.
	if cm.IsSet("accounts") {
		if err := cm.Bind("accounts", &cfg); err == nil {
			e.Logger().Debug("accounts: loaded config from file",
				forge.F("key", "accounts"),
			)
			return cfg, true
		}
		e.Logger().Warn("accounts: failed to bind accounts config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.EntitlementCacheTTL == 0 {
		cfg.EntitlementCacheTTL = defaults.EntitlementCacheTTL
	}
	if cfg.CohortMarker == "" {
		cfg.CohortMarker = defaults.CohortMarker
	}
	if cfg.CohortSuffix == "" {
		cfg.CohortSuffix = defaults.CohortSuffix
	}
	if cfg.OrgLimit == 0 {
		cfg.OrgLimit = defaults.OrgLimit
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.CohortMarker == "" && programmaticConfig.CohortMarker != "" {
		yamlConfig.CohortMarker = programmaticConfig.CohortMarker
	}
	if yamlConfig.CohortSuffix == "" && programmaticConfig.CohortSuffix != "" {
		yamlConfig.CohortSuffix = programmaticConfig.CohortSuffix
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.EntitlementCacheTTL == 0 && programmaticConfig.EntitlementCacheTTL != 0 {
		yamlConfig.EntitlementCacheTTL = programmaticConfig.EntitlementCacheTTL
	}
	if yamlConfig.OrgLimit == 0 && programmaticConfig.OrgLimit != 0 {
		yamlConfig.OrgLimit = programmaticConfig.OrgLimit
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
