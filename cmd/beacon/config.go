package main

import (
	"mercator-hq/beacon/pkg/cli"
	"mercator-hq/beacon/pkg/config"
)

// loadConfig loads the file named by --config with environment overrides
// applied. Failures are reported as configuration errors.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError(path, err.Error())
	}
	return cfg, nil
}
