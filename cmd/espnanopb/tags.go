package main

import (
	"fmt"

	"github.com/kitextech/ESPNanopb/internal/git"
	"github.com/kitextech/ESPNanopb/internal/release"
	"github.com/spf13/cobra"
)

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags of the library repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := workDir()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(repoRoot)
			if err != nil {
				return err
			}
			repo := git.Open(cfg.Repository.Dir, gitRunner(cmd))
			if !repo.Available(cmd.Context()) {
				return &release.StageError{Kind: release.ListTagsFailed, Target: cfg.Repository.Dir, Err: git.ErrNotRepository}
			}
			tags, err := repo.Tags(cmd.Context())
			if err != nil {
				return &release.StageError{Kind: release.ListTagsFailed, Target: cfg.Repository.Dir, Err: err}
			}
			for _, tag := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	}
}
