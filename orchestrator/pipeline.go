package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/dialogue-arena/audio"
	cfg "github.com/maastricht-university/dialogue-arena/config"
)

type Pipeline struct {
	cfg     *cfg.Root
	llm     Completer
	policy  TranscriptPolicy
	mos     *MOSEvaluator
	scorers []ScoreProvider
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewPipeline expects c to be validated. Scoring runs the rubric first and
// then MOS against c.Paths.GroundTruth.
func NewPipeline(c *cfg.Root, llm Completer, mos WaveformScorer, log logrus.FieldLogger) (*Pipeline, error) {
	policy, err := ParseTranscriptPolicy(c.Dialogue.TranscriptPolicy)
	if err != nil {
		return nil, err
	}
	m := NewMOSEvaluator(mos, c.Paths.GroundTruth, log)
	return &Pipeline{
		cfg:    c,
		llm:    llm,
		policy: policy,
		mos:    m,
		scorers: []ScoreProvider{
			NewRubricEvaluator(llm, c.Models.Audio, c.Dialogue.AudioFormat),
			m,
		},
		log: log,
		now: time.Now,
	}, nil
}

// Run executes topic, dialogue, archive, scoring and persistence in that
// order. Topic, dialogue and scoring failures abort the run; the returned
// Run still holds whatever was produced. Archive and persistence failures
// are only logged.
func (p *Pipeline) Run(ctx context.Context) (*Run, error) {
	run, err := NewRun(p.cfg.Paths.Outputs, p.now())
	if err != nil {
		return nil, err
	}
	for i, s := range p.cfg.Dialogue.Speakers {
		run.Personas[i] = s.Persona
	}
	p.log.WithFields(logrus.Fields{"run": run.ID, "dir": run.Dir}).Info("run started")

	if run.Topic, err = p.GenerateTopic(ctx); err != nil {
		return run, err
	}
	p.log.Infof("Generated Topic: %s", run.Topic)

	if err := p.Dialogue(ctx, run); err != nil {
		return run, fmt.Errorf("dialogue: %w", err)
	}

	// archived before scoring so run.json can carry per-turn frame counts
	p.archive(run)

	for _, s := range p.scorers {
		report, err := s.Score(ctx, run)
		if err != nil {
			return run, err
		}
		run.Reports = append(run.Reports, *report)
		if report.Text != "" {
			p.log.Infof("Evaluation (%s):\n%s", report.Provider, report.Text)
		}
	}

	if err := p.persist(run); err != nil {
		p.log.WithError(err).Warn("run finished with missing result files")
	} else {
		p.log.WithField("dir", run.Dir).Info("run finished")
	}
	return run, nil
}

// archive writes total_conversation.wav from the in-memory history.
func (p *Pipeline) archive(run *Run) {
	path := run.Path(CombinedFile)
	frames, err := audio.ConcatFile(path, run.AudioHistory())
	if err != nil {
		p.log.WithError(err).WithField("file", path).Error("failed to save combined audio")
		return
	}
	run.Frames = frames
	p.log.WithField("file", path).Info("saved combined audio")
}

// ScoreDir recomputes MOS for an existing run directory and rewrites its
// evaluation_results.json. The dialogue is not touched. The turn count comes
// from the run's run.json, or from the config for runs without one.
func (p *Pipeline) ScoreDir(ctx context.Context, dir string) (map[string]*float64, error) {
	turns := p.cfg.Dialogue.Turns
	m, err := readManifest(filepath.Join(dir, ManifestFile))
	switch {
	case err == nil:
		turns = len(m.Turns)
	case errors.Is(err, fs.ErrNotExist):
		p.log.WithField("turns", turns).Warn("run has no manifest, using configured turn count")
	default:
		return nil, err
	}

	scores := p.mos.ScoreDir(ctx, dir, turns)
	report := ScoreReport{Provider: p.mos.Name(), Speakers: scores}
	run := &Run{Dir: dir}
	if err := writeJSON(run.Path(ResultsFile), speakerResults([]ScoreReport{report})); err != nil {
		return scores, fmt.Errorf("write results: %w", err)
	}
	return scores, nil
}
