package app

import (
	"fmt"

	"github.com/vk/stagewalk/internal/workspace"
)

// Config holds everything an App needs to run.
type Config struct {
	// DefsPath points at a .hcl file or a directory of stage definition
	// files.
	DefsPath string
	// WorkspacePath points at the YAML workspace configuration.
	WorkspacePath string
	// Targets are the stage paths to resolve.
	Targets []string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DefsPath == "" {
		cfg.DefsPath = "stages"
	}
	if cfg.WorkspacePath == "" {
		cfg.WorkspacePath = workspace.DefaultFile
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no target paths given")
	}
	return &cfg, nil
}
