package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kitextech/ESPNanopb/internal/config"
	"github.com/spf13/viper"
)

func workDir() (string, error) {
	if dir := viper.GetString("dir"); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("resolve --dir: %w", err)
		}
		return abs, nil
	}
	return os.Getwd()
}

func resolveConfigPath(repoRoot, path string) string {
	if path == "" {
		path = config.DefaultPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, path)
	}
	return path
}

func loadConfig(repoRoot string) (config.Config, error) {
	opts := config.LoadOptions{
		Path: resolveConfigPath(repoRoot, viper.GetString("config")),
	}
	if envFile := viper.GetString("env-file"); envFile != "" {
		if !filepath.IsAbs(envFile) {
			envFile = filepath.Join(repoRoot, envFile)
		}
		opts.EnvFile = envFile
	}
	if mode := viper.GetString("mode"); mode != "" {
		opts.Overrides = map[string]any{"mode": mode}
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return config.Config{}, err
	}
	return cfg.ResolvePaths(repoRoot), nil
}
