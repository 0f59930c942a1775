package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides are the TSLOC_* environment variables. They sit between the
// config file and the command-line flags: file < env < flag.
type EnvOverrides struct {
	Provider           string `env:"TSLOC_PROVIDER"`
	Model              string `env:"TSLOC_MODEL"`
	APIKey             string `env:"TSLOC_API_KEY"`
	BaseURL            string `env:"TSLOC_BASE_URL"`
	BatchSize          int    `env:"TSLOC_BATCH_SIZE"`
	MaxConcurrentFiles int    `env:"TSLOC_MAX_CONCURRENT_FILES"`
	ForceSerial        bool   `env:"TSLOC_FORCE_SERIAL"`
	Proxy              string `env:"TSLOC_PROXY"`
}

// LoadEnv parses the TSLOC_* environment variables.
func LoadEnv() (*EnvOverrides, error) {
	var ov EnvOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parsing TSLOC_* environment: %w", err)
	}
	return &ov, nil
}

// Apply folds the overrides into a pipeline config, leaving unset variables
// alone.
func (ov *EnvOverrides) Apply(pc *PipelineConfig) {
	if ov.Provider != "" {
		pc.Provider = ov.Provider
	}
	if ov.Model != "" {
		pc.Model = ov.Model
	}
	if ov.BaseURL != "" {
		pc.BaseURL = ov.BaseURL
	}
	if ov.BatchSize > 0 {
		pc.BatchSize = ov.BatchSize
	}
	if ov.MaxConcurrentFiles > 0 {
		pc.MaxConcurrentFiles = ov.MaxConcurrentFiles
	}
	if ov.ForceSerial {
		pc.ForceSerial = true
	}
}
