package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"github.com/ygrebnov/errorc"

	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/util"
)

const (
	defaultConfigName = ".procpool"
	defaultConfigDir  = ".procpool"

	// DefaultTimeout bounds a batch when nothing else is configured
	DefaultTimeout = 600 * time.Second

	// DefaultStartTimeout bounds the worker handshake when nothing else is configured
	DefaultStartTimeout = 10 * time.Second

	// DefaultOutputFormat is used when no format is configured
	DefaultOutputFormat = "table"
)

// envBindings maps configuration keys to environment variables
var envBindings = map[string]string{
	"defaults.workers":      "PROCPOOL_WORKERS",
	"defaults.timeout":      "PROCPOOL_TIMEOUT",
	"defaults.starttimeout": "PROCPOOL_START_TIMEOUT",
	"defaults.policy":       "PROCPOOL_POLICY",
	"defaults.outputformat": "PROCPOOL_OUTPUT",
	"defaults.nocolor":      "PROCPOOL_NO_COLOR",
}

// Manager handles procpool configuration
type Manager struct {
	configPath string
	config     *File
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &File{},
	}
}

// Load loads the configuration from file and environment
func (m *Manager) Load() (*File, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// Check ~/.procpool/.procpool.yaml, then ~/.procpool.yaml
		m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		m.viper.AddConfigPath(home)
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	for key, env := range envBindings {
		if err := m.viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	m.config = &File{}

	if err := m.viper.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and environment still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.applyDefaults()

	if err := m.config.Defaults.Validate(); err != nil {
		return nil, err
	}

	return m.config, nil
}

// Save saves the current configuration to file
func (m *Manager) Save() error {
	if m.configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		m.configPath = filepath.Join(home, defaultConfigName+".yaml")
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := m.viper.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *File {
	return m.config
}

// GetProfile returns a named profile
func (m *Manager) GetProfile(name string) (*Profile, bool) {
	if m.config.Profiles == nil {
		return nil, false
	}

	profile, ok := m.config.Profiles[name]
	return &profile, ok
}

// SetProfile sets or updates a named profile
func (m *Manager) SetProfile(name string, profile Profile) {
	if m.config.Profiles == nil {
		m.config.Profiles = make(map[string]Profile)
	}

	m.config.Profiles[name] = profile
	m.viper.Set("profiles", m.config.Profiles)
}

// RemoveProfile removes a named profile
func (m *Manager) RemoveProfile(name string) {
	if m.config.Profiles == nil {
		return
	}

	delete(m.config.Profiles, name)
	m.viper.Set("profiles", m.config.Profiles)
}

// ProfileNames returns the profile names in sorted order
func (m *Manager) ProfileNames() []string {
	names := make([]string, 0, len(m.config.Profiles))
	for name := range m.config.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the defaults with the named profile laid over them.
// An empty name resolves to the defaults.
func (m *Manager) Resolve(profile string) (Settings, error) {
	settings := m.config.Defaults
	if profile == "" {
		return settings, nil
	}

	p, ok := m.GetProfile(profile)
	if !ok {
		return Settings{}, errorc.With(util.ErrInvalidConfig, errorc.String("profile", profile))
	}

	settings = settings.Merge(p.Settings)
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// applyDefaults sets default values for configuration
func (m *Manager) applyDefaults() {
	if m.config == nil {
		return
	}

	if m.config.Defaults.Timeout == 0 {
		m.config.Defaults.Timeout = DefaultTimeout
	}

	if m.config.Defaults.StartTimeout == 0 {
		m.config.Defaults.StartTimeout = DefaultStartTimeout
	}

	if m.config.Defaults.Policy == "" {
		m.config.Defaults.Policy = string(protocol.Propagate)
	}

	if m.config.Defaults.OutputFormat == "" {
		m.config.Defaults.OutputFormat = DefaultOutputFormat
	}
}

// Merge returns s with every non-zero field of override applied
func (s Settings) Merge(override Settings) Settings {
	if override.Workers != 0 {
		s.Workers = override.Workers
	}
	if override.Timeout != 0 {
		s.Timeout = override.Timeout
	}
	if override.StartTimeout != 0 {
		s.StartTimeout = override.StartTimeout
	}
	if override.Policy != "" {
		s.Policy = override.Policy
	}
	if override.OutputFormat != "" {
		s.OutputFormat = override.OutputFormat
	}
	if override.NoColor {
		s.NoColor = true
	}
	return s
}

// Validate checks the settings
func (s Settings) Validate() error {
	if s.Workers < 0 {
		return errorc.With(util.ErrInvalidConfig, errorc.String("workers", strconv.Itoa(s.Workers)))
	}
	if s.Timeout < 0 {
		return errorc.With(util.ErrInvalidConfig, errorc.String("timeout", s.Timeout.String()))
	}
	if s.StartTimeout < 0 {
		return errorc.With(util.ErrInvalidConfig, errorc.String("startTimeout", s.StartTimeout.String()))
	}
	if _, err := protocol.ParsePolicy(s.Policy); err != nil {
		return errorc.With(util.ErrInvalidConfig, errorc.String("policy", s.Policy))
	}
	switch s.OutputFormat {
	case "", "table", "json", "yaml":
	default:
		return errorc.With(util.ErrInvalidConfig, errorc.String("outputFormat", s.OutputFormat))
	}
	return nil
}

// FailurePolicy returns the parsed failure policy
func (s Settings) FailurePolicy() protocol.Policy {
	p, err := protocol.ParsePolicy(s.Policy)
	if err != nil {
		return protocol.Propagate
	}
	return p
}
