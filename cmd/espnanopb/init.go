package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kitextech/ESPNanopb/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func initCmd() *cobra.Command {
	var (
		destination string
		repository  string
		force       bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long:  "Write a default config file pointing at the artifact destination and the library repository.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := workDir()
			if err != nil {
				return err
			}
			configPath := resolveConfigPath(repoRoot, viper.GetString("config"))
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
			}

			cfg := config.Default()
			cfg.Artifacts.Destination = destination
			cfg.Repository.Dir = repository
			if err := config.Validate(cfg); err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}

			log.Info().Str("path", configPath).Msg("installing default config")
			if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				return fmt.Errorf("write default config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&destination, "destination", "", "directory the artifacts are copied into")
	cmd.Flags().StringVar(&repository, "repository", "", "git working tree that receives the tag")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("repository")
	return cmd
}
