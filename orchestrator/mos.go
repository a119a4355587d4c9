package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/dialogue-arena/audio"
)

var ErrSampleRateMismatch = errors.New("sampling rate mismatch")

// AudioPair is a synthesized turn and its ground-truth recording.
type AudioPair struct {
	Pred string
	Ref  string
}

// SpeakerAudioMapping pairs each speaker's turns with reference files, in
// turn order. Every speaker has an entry, possibly empty.
type SpeakerAudioMapping map[string][]AudioPair

// BuildSpeakerAudioMapping expects ground-truth files named exactly like the
// per-turn outputs (speaker{S}_turn{N}.wav).
func BuildSpeakerAudioMapping(runDir, groundTruthDir string, turns int) SpeakerAudioMapping {
	m := make(SpeakerAudioMapping, len(Speakers))
	for _, s := range Speakers {
		m[s.Key()] = nil
	}
	for i := 1; i <= turns; i++ {
		s := SpeakerForTurn(i)
		name := TurnFileName(s, i)
		m[s.Key()] = append(m[s.Key()], AudioPair{
			Pred: filepath.Join(runDir, name),
			Ref:  filepath.Join(groundTruthDir, name),
		})
	}
	return m
}

// EvaluateMOS scores every pair and averages per speaker. A pair that cannot
// be read, whose sample rates differ, or that the scorer rejects is logged
// and skipped. The result has one entry per speaker; nil means no pair of
// that speaker produced a score.
func EvaluateMOS(ctx context.Context, scorer WaveformScorer, mapping SpeakerAudioMapping, log logrus.FieldLogger) map[string]*float64 {
	out := make(map[string]*float64, len(mapping))
	for speaker, pairs := range mapping {
		var scores []float64
		for _, pair := range pairs {
			score, err := scorePair(ctx, scorer, pair)
			if err != nil {
				log.WithFields(logrus.Fields{
					"speaker": speaker,
					"pred":    pair.Pred,
					"ref":     pair.Ref,
				}).WithError(err).Warn("skipping MOS evaluation for audio pair")
				continue
			}
			scores = append(scores, score)
		}
		out[speaker] = Average(scores)
	}
	return out
}

func scorePair(ctx context.Context, scorer WaveformScorer, pair AudioPair) (float64, error) {
	pred, predRate, err := audio.LoadMono(pair.Pred)
	if err != nil {
		return 0, fmt.Errorf("reading predicted audio: %w", err)
	}
	ref, refRate, err := audio.LoadMono(pair.Ref)
	if err != nil {
		return 0, fmt.Errorf("reading reference audio: %w", err)
	}
	if predRate != refRate {
		return 0, fmt.Errorf("%w: %d Hz vs %d Hz", ErrSampleRateMismatch, predRate, refRate)
	}
	score, err := scorer.Score(ctx, pred, ref, predRate)
	if err != nil {
		return 0, fmt.Errorf("scoring: %w", err)
	}
	return score, nil
}

// MOSEvaluator is the ScoreProvider over the run's per-turn files and the
// ground-truth directory.
type MOSEvaluator struct {
	scorer         WaveformScorer
	groundTruthDir string
	log            logrus.FieldLogger
}

func NewMOSEvaluator(scorer WaveformScorer, groundTruthDir string, log logrus.FieldLogger) *MOSEvaluator {
	return &MOSEvaluator{scorer: scorer, groundTruthDir: groundTruthDir, log: log}
}

func (m *MOSEvaluator) Name() string { return "mos" }

// Score never fails; pair failures only leave speakers without a score.
func (m *MOSEvaluator) Score(ctx context.Context, run *Run) (*ScoreReport, error) {
	return &ScoreReport{Provider: m.Name(), Speakers: m.ScoreDir(ctx, run.Dir, len(run.History()))}, nil
}

// ScoreDir evaluates the first turns per-turn files found in dir.
func (m *MOSEvaluator) ScoreDir(ctx context.Context, dir string, turns int) map[string]*float64 {
	mapping := BuildSpeakerAudioMapping(dir, m.groundTruthDir, turns)
	results := EvaluateMOS(ctx, m.scorer, mapping, m.log)

	m.log.Info("MOS evaluation results:")
	for _, speaker := range sortedKeys(results) {
		if s := results[speaker]; s != nil {
			m.log.Infof("  %s: %.3f", speaker, *s)
		} else {
			m.log.Infof("  %s: No valid MOS score computed", speaker)
		}
	}
	return results
}
