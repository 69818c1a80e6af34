// Package config loads swarmcore's configuration: built-in defaults,
// overridden by a YAML file, overridden by environment variables, overridden
// last by CLI flags (SPEC_FULL.md 2 "Configuration").
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConsoleConfig controls terminal output formatting and features.
type ConsoleConfig struct {
	EnableColor       bool `yaml:"enable_color"`
	EnableProgressBar bool `yaml:"enable_progress_bar"`
	EnableTaskDetails bool `yaml:"enable_task_details"`
	CompactMode       bool `yaml:"compact_mode"`
	ShowAgentNames    bool `yaml:"show_agent_names"`
	ShowFileCounts    bool `yaml:"show_file_counts"`
	ShowDurations     bool `yaml:"show_durations"`
}

// SwarmConfig mirrors swarm.Config: the wave orchestrator's dispatch and
// adaptive-termination tunables (spec.md 4.I, SPEC_FULL.md 2 "swarm
// orchestrator tunables").
type SwarmConfig struct {
	MaxConcurrency                 int           `yaml:"max_concurrency"`
	DispatchStagger                time.Duration `yaml:"dispatch_stagger"`
	MaxRetries                     int           `yaml:"max_retries"`
	ExpendableFraction             float64       `yaml:"expendable_fraction"`
	EnableHollowTermination        bool          `yaml:"enable_hollow_termination"`
	HollowTerminationMinDispatches int           `yaml:"hollow_termination_min_dispatches"`
	HollowTerminationRatio         float64       `yaml:"hollow_termination_ratio"`
	HollowStreakThreshold          int           `yaml:"hollow_streak_threshold"`
}

// EconomicsConfig mirrors economics.PhaseBudgetConfig: the exploration and
// verification phase-budget thresholds (spec.md 4.C item 8).
type EconomicsConfig struct {
	MaxExplorationPercent       float64 `yaml:"max_exploration_percent"`
	ReservedVerificationPercent float64 `yaml:"reserved_verification_percent"`
}

// PersistenceConfig locates the session-state database internal/store opens
// (spec.md 6 "Persisted state layout") and the lock file internal/filelock
// guards it with.
type PersistenceConfig struct {
	DBPath   string `yaml:"db_path"`
	LockPath string `yaml:"lock_path"`
}

// Config is swarmcore's resolved configuration.
type Config struct {
	// MaxConcurrency is the maximum number of concurrent tasks (0 = unlimited)
	MaxConcurrency int `yaml:"max_concurrency"`

	// Timeout is the maximum execution time for a run
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where logs will be written
	LogDir string `yaml:"log_dir"`

	// DryRun enables validation-only mode without execution
	DryRun bool `yaml:"dry_run"`

	// SkipCompleted skips tasks that have already been completed
	SkipCompleted bool `yaml:"skip_completed"`

	// RetryFailed retries tasks that failed
	RetryFailed bool `yaml:"retry_failed"`

	// DefaultBudgetPreset names the models.BudgetPreset applied to a task
	// that doesn't request one explicitly.
	DefaultBudgetPreset string `yaml:"default_budget_preset"`

	// DefaultPolicyProfile names the policy profile applied when neither an
	// explicit profile, a worker capability, nor a task type resolves one.
	DefaultPolicyProfile string `yaml:"default_policy_profile"`

	Console     ConsoleConfig     `yaml:"console"`
	Swarm       SwarmConfig       `yaml:"swarm"`
	Economics   EconomicsConfig   `yaml:"economics"`
	Persistence PersistenceConfig `yaml:"persistence"`
}

// DefaultConsoleConfig returns ConsoleConfig with sensible default values.
func DefaultConsoleConfig() ConsoleConfig {
	return ConsoleConfig{
		EnableColor:       true,
		EnableProgressBar: true,
		EnableTaskDetails: true,
		CompactMode:       false,
		ShowAgentNames:    true,
		ShowFileCounts:    true,
		ShowDurations:     true,
	}
}

// DefaultSwarmConfig returns SwarmConfig with the orchestrator's defaults.
func DefaultSwarmConfig() SwarmConfig {
	return SwarmConfig{
		MaxConcurrency:                 4,
		DispatchStagger:                250 * time.Millisecond,
		MaxRetries:                     2,
		ExpendableFraction:             0.2,
		EnableHollowTermination:        false,
		HollowTerminationMinDispatches: 5,
		HollowTerminationRatio:         0.6,
		HollowStreakThreshold:          3,
	}
}

// DefaultEconomicsConfig returns the Open Question resolution recorded in
// DESIGN.md: 40% exploration ceiling, 15% reserved for verification.
func DefaultEconomicsConfig() EconomicsConfig {
	return EconomicsConfig{MaxExplorationPercent: 0.40, ReservedVerificationPercent: 0.15}
}

// DefaultPersistenceConfig returns the default session-state locations under
// the swarmcore home directory.
func DefaultPersistenceConfig() PersistenceConfig {
	return PersistenceConfig{
		DBPath:   ".swarmcore/state/swarmcore.db",
		LockPath: ".swarmcore/state/swarmcore.lock",
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrency:       0, // Unlimited
		Timeout:              10 * time.Hour,
		LogLevel:             "info",
		LogDir:               ".swarmcore/logs",
		DryRun:               false,
		SkipCompleted:        false,
		RetryFailed:          false,
		DefaultBudgetPreset:  "standard",
		DefaultPolicyProfile: "research-safe",
		Console:              DefaultConsoleConfig(),
		Swarm:                DefaultSwarmConfig(),
		Economics:            DefaultEconomicsConfig(),
		Persistence:          DefaultPersistenceConfig(),
	}
}

// applyConsoleEnvOverrides applies environment variable overrides to console
// configuration. Only "true" (lowercase) or "1" are recognized as true; all
// other values are false.
func applyConsoleEnvOverrides(cfg *ConsoleConfig) {
	if val := os.Getenv("SWARMCORE_CONSOLE_COLOR"); val != "" {
		cfg.EnableColor = val == "true" || val == "1"
	}
	if val := os.Getenv("SWARMCORE_CONSOLE_PROGRESS_BAR"); val != "" {
		cfg.EnableProgressBar = val == "true" || val == "1"
	}
	if val := os.Getenv("SWARMCORE_CONSOLE_TASK_DETAILS"); val != "" {
		cfg.EnableTaskDetails = val == "true" || val == "1"
	}
	if val := os.Getenv("SWARMCORE_CONSOLE_COMPACT"); val != "" {
		cfg.CompactMode = val == "true" || val == "1"
	}
	if val := os.Getenv("SWARMCORE_CONSOLE_AGENT_NAMES"); val != "" {
		cfg.ShowAgentNames = val == "true" || val == "1"
	}
	if val := os.Getenv("SWARMCORE_CONSOLE_FILE_COUNTS"); val != "" {
		cfg.ShowFileCounts = val == "true" || val == "1"
	}
	if val := os.Getenv("SWARMCORE_CONSOLE_DURATIONS"); val != "" {
		cfg.ShowDurations = val == "true" || val == "1"
	}
}

func applyLogEnvOverrides(cfg *Config) {
	if val := os.Getenv("SWARMCORE_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := os.Getenv("SWARMCORE_LOG_DIR"); val != "" {
		cfg.LogDir = val
	}
}

// LoadConfig loads configuration from the specified file path. If the file
// doesn't exist, returns default configuration without error. If the file
// exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyConsoleEnvOverrides(&cfg.Console)
		applyLogEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	type yamlConfig struct {
		MaxConcurrency       int               `yaml:"max_concurrency"`
		Timeout              string            `yaml:"timeout"`
		LogLevel             string            `yaml:"log_level"`
		LogDir               string            `yaml:"log_dir"`
		DryRun               bool              `yaml:"dry_run"`
		SkipCompleted        bool              `yaml:"skip_completed"`
		RetryFailed          bool              `yaml:"retry_failed"`
		DefaultBudgetPreset  string            `yaml:"default_budget_preset"`
		DefaultPolicyProfile string            `yaml:"default_policy_profile"`
		Console              ConsoleConfig     `yaml:"console"`
		Swarm                SwarmConfig       `yaml:"swarm"`
		Economics            EconomicsConfig   `yaml:"economics"`
		Persistence          PersistenceConfig `yaml:"persistence"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.MaxConcurrency != 0 {
		cfg.MaxConcurrency = yamlCfg.MaxConcurrency
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.DryRun {
		cfg.DryRun = yamlCfg.DryRun
	}
	if yamlCfg.SkipCompleted {
		cfg.SkipCompleted = yamlCfg.SkipCompleted
	}
	if yamlCfg.RetryFailed {
		cfg.RetryFailed = yamlCfg.RetryFailed
	}
	if yamlCfg.DefaultBudgetPreset != "" {
		cfg.DefaultBudgetPreset = yamlCfg.DefaultBudgetPreset
	}
	if yamlCfg.DefaultPolicyProfile != "" {
		cfg.DefaultPolicyProfile = yamlCfg.DefaultPolicyProfile
	}

	// Section presence, not zero-ness, decides whether a nested block
	// overrides its defaults: a YAML "swarm: {}" should not zero every
	// tunable just because the struct's zero value is also valid.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if section, exists := rawMap["console"]; exists && section != nil {
			mergeConsoleSection(&cfg.Console, yamlCfg.Console, section)
		}
		if section, exists := rawMap["swarm"]; exists && section != nil {
			mergeSwarmSection(&cfg.Swarm, yamlCfg.Swarm, section)
		}
		if section, exists := rawMap["economics"]; exists && section != nil {
			mergeEconomicsSection(&cfg.Economics, yamlCfg.Economics, section)
		}
		if section, exists := rawMap["persistence"]; exists && section != nil {
			mergePersistenceSection(&cfg.Persistence, yamlCfg.Persistence, section)
		}
	}

	applyConsoleEnvOverrides(&cfg.Console)
	applyLogEnvOverrides(cfg)

	return cfg, nil
}

func mergeConsoleSection(dst *ConsoleConfig, parsed ConsoleConfig, raw interface{}) {
	m, _ := raw.(map[string]interface{})
	if _, ok := m["enable_color"]; ok {
		dst.EnableColor = parsed.EnableColor
	}
	if _, ok := m["enable_progress_bar"]; ok {
		dst.EnableProgressBar = parsed.EnableProgressBar
	}
	if _, ok := m["enable_task_details"]; ok {
		dst.EnableTaskDetails = parsed.EnableTaskDetails
	}
	if _, ok := m["compact_mode"]; ok {
		dst.CompactMode = parsed.CompactMode
	}
	if _, ok := m["show_agent_names"]; ok {
		dst.ShowAgentNames = parsed.ShowAgentNames
	}
	if _, ok := m["show_file_counts"]; ok {
		dst.ShowFileCounts = parsed.ShowFileCounts
	}
	if _, ok := m["show_durations"]; ok {
		dst.ShowDurations = parsed.ShowDurations
	}
}

func mergeSwarmSection(dst *SwarmConfig, parsed SwarmConfig, raw interface{}) {
	m, _ := raw.(map[string]interface{})
	if _, ok := m["max_concurrency"]; ok {
		dst.MaxConcurrency = parsed.MaxConcurrency
	}
	if _, ok := m["dispatch_stagger"]; ok {
		dst.DispatchStagger = parsed.DispatchStagger
	}
	if _, ok := m["max_retries"]; ok {
		dst.MaxRetries = parsed.MaxRetries
	}
	if _, ok := m["expendable_fraction"]; ok {
		dst.ExpendableFraction = parsed.ExpendableFraction
	}
	if _, ok := m["enable_hollow_termination"]; ok {
		dst.EnableHollowTermination = parsed.EnableHollowTermination
	}
	if _, ok := m["hollow_termination_min_dispatches"]; ok {
		dst.HollowTerminationMinDispatches = parsed.HollowTerminationMinDispatches
	}
	if _, ok := m["hollow_termination_ratio"]; ok {
		dst.HollowTerminationRatio = parsed.HollowTerminationRatio
	}
	if _, ok := m["hollow_streak_threshold"]; ok {
		dst.HollowStreakThreshold = parsed.HollowStreakThreshold
	}
}

func mergeEconomicsSection(dst *EconomicsConfig, parsed EconomicsConfig, raw interface{}) {
	m, _ := raw.(map[string]interface{})
	if _, ok := m["max_exploration_percent"]; ok {
		dst.MaxExplorationPercent = parsed.MaxExplorationPercent
	}
	if _, ok := m["reserved_verification_percent"]; ok {
		dst.ReservedVerificationPercent = parsed.ReservedVerificationPercent
	}
}

func mergePersistenceSection(dst *PersistenceConfig, parsed PersistenceConfig, raw interface{}) {
	m, _ := raw.(map[string]interface{})
	if _, ok := m["db_path"]; ok {
		dst.DBPath = parsed.DBPath
	}
	if _, ok := m["lock_path"]; ok {
		dst.LockPath = parsed.LockPath
	}
}

// LoadFromHome loads configuration from config.yaml in the swarmcore home
// directory (GetSwarmcoreHome), returning defaults if neither the directory
// nor the file can be resolved.
func LoadFromHome() (*Config, error) {
	home, err := GetSwarmcoreHome()
	if err != nil {
		cfg := DefaultConfig()
		applyConsoleEnvOverrides(&cfg.Console)
		applyLogEnvOverrides(cfg)
		return cfg, nil
	}
	return LoadConfig(filepath.Join(home, "config.yaml"))
}

// MergeWithFlags merges CLI flags into the configuration. Non-nil flag
// values override configuration values, so CLI flags take precedence over
// both the config file and environment variables.
func (c *Config) MergeWithFlags(maxConcurrency *int, timeout *time.Duration, logDir *string, dryRun *bool, skipCompleted *bool, retryFailed *bool) {
	if maxConcurrency != nil {
		c.MaxConcurrency = *maxConcurrency
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if dryRun != nil {
		c.DryRun = *dryRun
	}
	if skipCompleted != nil {
		c.SkipCompleted = *skipCompleted
	}
	if retryFailed != nil {
		c.RetryFailed = *retryFailed
	}
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be >= 0, got %d", c.MaxConcurrency)
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if c.Swarm.MaxConcurrency < 0 {
		return fmt.Errorf("swarm.max_concurrency must be >= 0, got %d", c.Swarm.MaxConcurrency)
	}
	if c.Swarm.DispatchStagger < 0 {
		return fmt.Errorf("swarm.dispatch_stagger must be >= 0, got %v", c.Swarm.DispatchStagger)
	}
	if c.Swarm.ExpendableFraction < 0 || c.Swarm.ExpendableFraction > 1 {
		return fmt.Errorf("swarm.expendable_fraction must be in [0,1], got %v", c.Swarm.ExpendableFraction)
	}

	if c.Economics.MaxExplorationPercent <= 0 || c.Economics.MaxExplorationPercent > 1 {
		return fmt.Errorf("economics.max_exploration_percent must be in (0,1], got %v", c.Economics.MaxExplorationPercent)
	}
	if c.Economics.ReservedVerificationPercent < 0 || c.Economics.ReservedVerificationPercent > 1 {
		return fmt.Errorf("economics.reserved_verification_percent must be in [0,1], got %v", c.Economics.ReservedVerificationPercent)
	}

	if c.Persistence.DBPath == "" {
		return fmt.Errorf("persistence.db_path cannot be empty")
	}

	return nil
}
