package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/kitextech/ESPNanopb/internal/command"
	"github.com/kitextech/ESPNanopb/internal/config"
	"github.com/kitextech/ESPNanopb/internal/distribute"
	"github.com/kitextech/ESPNanopb/internal/generate"
	"github.com/kitextech/ESPNanopb/internal/git"
	"github.com/kitextech/ESPNanopb/internal/prompt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Stage names a pipeline step.
type Stage string

const (
	StageGenerate   Stage = "generate"
	StageDistribute Stage = "distribute"
	StagePublish    Stage = "publish"
)

// AllStages is the full pipeline in execution order.
var AllStages = []Stage{StageGenerate, StageDistribute, StagePublish}

// Recorder receives run and stage outcomes, typically the journal store.
type Recorder interface {
	StartRun(ctx context.Context, runID, mode string) error
	RecordStage(ctx context.Context, runID, stage, status, detail string) error
	FinishRun(ctx context.Context, runID, status, tag string) error
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) StartRun(context.Context, string, string) error                    { return nil }
func (NopRecorder) RecordStage(context.Context, string, string, string, string) error { return nil }
func (NopRecorder) FinishRun(context.Context, string, string, string) error           { return nil }

// Deps are the collaborators of a Pipeline. Zero values get defaults.
type Deps struct {
	// Runner executes the generator script.
	Runner command.Runner
	// GitRunner executes git; Runner is used when nil.
	GitRunner command.Runner
	FS        afero.Fs
	Asker     prompt.Asker
	Out       io.Writer
	Recorder  Recorder
}

// Report summarizes a pipeline run.
type Report struct {
	RunID     string
	Generated *command.Result
	Copied    []distribute.Copied
	Tag       *Outcome
}

// Pipeline runs the release stages with the configured failure mode.
type Pipeline struct {
	mode        config.Mode
	artifacts   config.Artifacts
	generator   *generate.Generator
	distributor *distribute.Distributor
	publisher   *Publisher
	recorder    Recorder
	newRunID    func() string
}

// New wires a Pipeline from cfg.
func New(cfg config.Config, deps Deps) *Pipeline {
	if deps.Runner == nil {
		deps.Runner = command.ExecRunner{}
	}
	if deps.GitRunner == nil {
		deps.GitRunner = deps.Runner
	}
	if deps.FS == nil {
		deps.FS = afero.NewOsFs()
	}
	if deps.Asker == nil {
		deps.Asker = prompt.NewScripted()
	}
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}
	repo := git.Open(cfg.Repository.Dir, deps.GitRunner)
	return &Pipeline{
		mode:        cfg.Mode,
		artifacts:   cfg.Artifacts,
		generator:   generate.New(deps.Runner, cfg.Generator),
		distributor: distribute.New(deps.FS, cfg.Artifacts),
		publisher:   NewPublisher(repo, deps.Asker, deps.Out, cfg),
		recorder:    deps.Recorder,
		newRunID:    uuid.NewString,
	}
}

// Run executes stages in order, all of them when none are given. Strict
// mode stops at the first failed stage; best-effort mode runs every stage
// and returns the joined failures.
func (p *Pipeline) Run(ctx context.Context, stages ...Stage) (Report, error) {
	if len(stages) == 0 {
		stages = AllStages
	}
	report := Report{RunID: p.newRunID()}
	startedAt := time.Now()
	logger := log.With().Str("run_id", report.RunID).Str("mode", string(p.mode)).Logger()

	if err := p.recorder.StartRun(ctx, report.RunID, string(p.mode)); err != nil {
		logger.Warn().Err(err).Msg("journal: start run")
	}

	var errs []error
	for _, stage := range stages {
		logger.Info().Str("stage", string(stage)).Msg("stage started")
		detail, err := p.runStage(ctx, stage, &report)
		status := "ok"
		if err != nil {
			status = "failed"
			detail = err.Error()
			errs = append(errs, err)
		}
		if recErr := p.recorder.RecordStage(ctx, report.RunID, string(stage), status, detail); recErr != nil {
			logger.Warn().Err(recErr).Msg("journal: record stage")
		}
		if err != nil {
			if p.mode.Strict() {
				logger.Error().Err(err).Str("stage", string(stage)).Msg("stage failed, stopping")
				break
			}
			logger.Warn().Err(err).Str("stage", string(stage)).Msg("stage failed, continuing")
		}
	}

	err := errors.Join(errs...)
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	var tag string
	if report.Tag != nil && report.Tag.Created && report.Tag.Pushed {
		tag = report.Tag.Request.Name
	}
	if recErr := p.recorder.FinishRun(ctx, report.RunID, status, tag); recErr != nil {
		logger.Warn().Err(recErr).Msg("journal: finish run")
	}

	event := logger.Info().Str("status", status).Dur("duration", time.Since(startedAt))
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("run finished")
	return report, err
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, report *Report) (string, error) {
	switch stage {
	case StageGenerate:
		res, err := p.generator.Run(ctx)
		report.Generated = &res
		if err != nil {
			return "", &StageError{Kind: GeneratorFailed, Target: p.generator.Command().String(), Err: err}
		}
		log.Debug().Strs("expected", generate.Outputs(p.artifacts)).Msg("generator finished")
		return fmt.Sprintf("%s in %s", p.generator.Command(), res.Duration.Round(time.Millisecond)), nil

	case StageDistribute:
		copied, err := p.distribute(ctx)
		report.Copied = copied
		return fmt.Sprintf("%d of %d files", len(copied), len(p.distributor.Files())), err

	case StagePublish:
		outcome, err := p.publisher.Publish(ctx)
		report.Tag = &outcome
		switch {
		case outcome.Pushed:
			return "pushed " + outcome.Request.Name, err
		case outcome.Request.Action == prompt.ActionSkip && err == nil:
			return "skipped", nil
		default:
			return "", err
		}

	default:
		return "", fmt.Errorf("unknown stage %q", stage)
	}
}

func (p *Pipeline) distribute(ctx context.Context) ([]distribute.Copied, error) {
	var (
		copied []distribute.Copied
		errs   []error
	)
	for _, name := range p.distributor.Files() {
		c, err := p.distributor.Copy(ctx, name)
		if err != nil {
			errs = append(errs, &StageError{Kind: CopyFailed, Target: name, Err: err})
			if p.mode.Strict() {
				break
			}
			continue
		}
		log.Info().Str("file", name).Str("dst", c.Destination).Msg("artifact distributed")
		copied = append(copied, c)
	}
	return copied, errors.Join(errs...)
}
