package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// solveConfig mirrors the solve flags. A YAML file supplies defaults that
// explicitly set flags override.
type solveConfig struct {
	MaxIterations int    `yaml:"max_iterations"`
	Restarts      int    `yaml:"restarts"`
	Runs          int    `yaml:"runs"`
	Workers       int    `yaml:"workers"`
	Seed          int64  `yaml:"seed"`
	Store         string `yaml:"store"`
	DBPath        string `yaml:"db_path"`
	Words         string `yaml:"words"`
	Bigrams       string `yaml:"bigrams"`
	Upper         bool   `yaml:"upper"`
	LogLevel      string `yaml:"log_level"`
}

func loadSolveConfig(path string, base solveConfig) (solveConfig, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return solveConfig{}, err
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return solveConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func overrideFromFlags(cfg *solveConfig, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "iterations":
			cfg.MaxIterations = v.(int)
		case "restarts":
			cfg.Restarts = v.(int)
		case "runs":
			cfg.Runs = v.(int)
		case "workers":
			cfg.Workers = v.(int)
		case "seed":
			cfg.Seed = v.(int64)
		case "store":
			cfg.Store = v.(string)
		case "db-path":
			cfg.DBPath = v.(string)
		case "words":
			cfg.Words = v.(string)
		case "bigrams":
			cfg.Bigrams = v.(string)
		case "upper":
			cfg.Upper = v.(bool)
		case "log-level":
			cfg.LogLevel = v.(string)
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	return nil
}
