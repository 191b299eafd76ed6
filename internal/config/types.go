package config

import "time"

// File represents the procpool configuration file structure
type File struct {
	// Defaults apply to every run
	Defaults Settings `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// Profiles are named sets of overrides selected with --profile
	Profiles map[string]Profile `yaml:"profiles,omitempty" json:"profiles,omitempty"`
}

// Settings are the knobs of a batch run. Zero values mean "use the default".
type Settings struct {
	// Workers is the number of worker processes (0 = number of CPUs)
	Workers int `yaml:"workers,omitempty" json:"workers,omitempty"`

	// Timeout bounds the wait for a whole batch
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// StartTimeout bounds the worker handshake
	StartTimeout time.Duration `yaml:"startTimeout,omitempty" json:"startTimeout,omitempty"`

	// Policy is the failure policy (propagate, log-and-continue)
	Policy string `yaml:"policy,omitempty" json:"policy,omitempty"`

	// OutputFormat is the default output format (table, json, yaml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty"`
}

// Profile is a named override of the defaults
type Profile struct {
	Settings `yaml:",inline" json:",inline" mapstructure:",squash"`

	// Description is shown by 'procpool config profiles'
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}
