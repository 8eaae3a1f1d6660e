package main

import (
	"github.com/kitextech/ESPNanopb/internal/command"
	"github.com/kitextech/ESPNanopb/internal/config"
	"github.com/kitextech/ESPNanopb/internal/journal"
	"github.com/kitextech/ESPNanopb/internal/logging"
	"github.com/kitextech/ESPNanopb/internal/prompt"
	"github.com/kitextech/ESPNanopb/internal/release"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// tagFlags are the non-interactive answers for the tag prompts.
type tagFlags struct {
	name    string
	message string
}

func (f *tagFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "tag", "", "tag name answer, skips the interactive prompt")
	cmd.Flags().StringVar(&f.message, "message", "", "tag message answer used together with --tag")
}

func (f *tagFlags) asker(cmd *cobra.Command) prompt.Asker {
	if cmd.Flags().Changed("tag") {
		return prompt.NewScripted(f.name, f.message)
	}
	return prompt.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
}

func openPipeline(cmd *cobra.Command, asker prompt.Asker) (*release.Pipeline, func(), error) {
	repoRoot, err := workDir()
	if err != nil {
		return nil, func() {}, err
	}
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, func() {}, err
	}
	recorder, closeFn := openRecorder(cfg)
	pipeline := release.New(cfg, release.Deps{
		Runner:    command.ExecRunner{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()},
		GitRunner: gitRunner(cmd),
		Asker:     asker,
		Out:       cmd.OutOrStdout(),
		Recorder:  recorder,
	})
	return pipeline, closeFn, nil
}

// gitRunner mirrors git output to stderr only in debug mode.
func gitRunner(cmd *cobra.Command) command.ExecRunner {
	if !logging.DebugEnabled() {
		return command.ExecRunner{}
	}
	return command.ExecRunner{Stdout: cmd.ErrOrStderr(), Stderr: cmd.ErrOrStderr()}
}

// openRecorder returns the journal store, or a no-op recorder when the
// journal is disabled or cannot be opened.
func openRecorder(cfg config.Config) (release.Recorder, func()) {
	if !cfg.Journal.Enabled {
		return release.NopRecorder{}, func() {}
	}
	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Journal.Path).Msg("journal unavailable, run will not be recorded")
		return release.NopRecorder{}, func() {}
	}
	return journal.NewStore(db), func() { _ = db.Close() }
}

func runStages(cmd *cobra.Command, asker prompt.Asker, stages ...release.Stage) (release.Report, error) {
	pipeline, closeFn, err := openPipeline(cmd, asker)
	if err != nil {
		return release.Report{}, err
	}
	defer closeFn()
	return pipeline.Run(cmd.Context(), stages...)
}
