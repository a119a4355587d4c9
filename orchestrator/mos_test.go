package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/dialogue-arena/audio/audiotest"
)

func TestBuildSpeakerAudioMapping(t *testing.T) {
	m := BuildSpeakerAudioMapping("run", "gt", 3)
	assert.Equal(t, SpeakerAudioMapping{
		"speaker1": {
			{Pred: filepath.Join("run", "speaker1_turn1.wav"), Ref: filepath.Join("gt", "speaker1_turn1.wav")},
			{Pred: filepath.Join("run", "speaker1_turn3.wav"), Ref: filepath.Join("gt", "speaker1_turn3.wav")},
		},
		"speaker2": {
			{Pred: filepath.Join("run", "speaker2_turn2.wav"), Ref: filepath.Join("gt", "speaker2_turn2.wav")},
		},
	}, m)

	one := BuildSpeakerAudioMapping("run", "gt", 1)
	assert.Contains(t, one, "speaker2")
	assert.Empty(t, one["speaker2"])
}

// rateScorer scores a pair by its first predicted sample so averages are
// easy to check.
type rateScorer struct{}

func (rateScorer) Score(_ context.Context, pred, _ []float64, _ int) (float64, error) {
	return pred[0] * 32768, nil
}

func TestEvaluateMOSSkipsSampleRateMismatch(t *testing.T) {
	run, gt := t.TempDir(), t.TempDir()
	mapping := BuildSpeakerAudioMapping(run, gt, 4)

	// speaker1: turns 1 and 3 score 2 and 4; speaker2: turn 2 mismatched, turn 4 scores 8
	preds := map[int]int{1: 2, 2: 6, 3: 4, 4: 8}
	for turn, first := range preds {
		name := TurnFileName(SpeakerForTurn(turn), turn)
		audiotest.WriteFile(t, filepath.Join(run, name), 16000, []int{first, 0, 0})
		rate := 16000
		if turn == 2 {
			rate = 8000
		}
		audiotest.WriteFile(t, filepath.Join(gt, name), rate, []int{0, 0, 0})
	}

	log, hook := test.NewNullLogger()
	got := EvaluateMOS(context.Background(), rateScorer{}, mapping, log)

	require.NotNil(t, got["speaker1"])
	require.NotNil(t, got["speaker2"])
	assert.InDelta(t, 3.0, *got["speaker1"], 1e-9)
	assert.InDelta(t, 8.0, *got["speaker2"], 1e-9)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "speaker2", entry.Data["speaker"])
	assert.ErrorIs(t, entry.Data[logrus.ErrorKey].(error), ErrSampleRateMismatch)
}

func TestEvaluateMOSMissingReferences(t *testing.T) {
	run, gt := t.TempDir(), t.TempDir()
	for i := 1; i <= 6; i++ {
		audiotest.WriteFile(t, filepath.Join(run, TurnFileName(SpeakerForTurn(i), i)), 16000, []int{1, 2, 3})
	}

	log, hook := test.NewNullLogger()
	scorer := &fixedScorer{score: 4}
	got := EvaluateMOS(context.Background(), scorer, BuildSpeakerAudioMapping(run, gt, 6), log)

	assert.Equal(t, map[string]*float64{"speaker1": nil, "speaker2": nil}, got)
	assert.Zero(t, scorer.calls)
	assert.Len(t, hook.AllEntries(), 6)
	for _, e := range hook.AllEntries() {
		assert.Equal(t, logrus.WarnLevel, e.Level)
	}
}

func TestEvaluateMOSScorerError(t *testing.T) {
	run, gt := t.TempDir(), t.TempDir()
	for _, dir := range []string{run, gt} {
		audiotest.WriteFile(t, filepath.Join(dir, "speaker1_turn1.wav"), 16000, []int{1, 2, 3})
	}

	log, hook := test.NewNullLogger()
	scorer := &fixedScorer{err: errors.New("service down")}
	got := EvaluateMOS(context.Background(), scorer, BuildSpeakerAudioMapping(run, gt, 1), log)

	assert.Nil(t, got["speaker1"])
	assert.Nil(t, got["speaker2"])
	assert.Equal(t, 1, scorer.calls)
	assert.Len(t, hook.AllEntries(), 1)
}

func TestMOSEvaluatorScoreNeverFails(t *testing.T) {
	log, _ := test.NewNullLogger()
	e := NewMOSEvaluator(&fixedScorer{score: 4}, t.TempDir(), log)

	report, err := e.Score(context.Background(), &Run{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "mos", report.Provider)
	assert.Empty(t, report.Text)
	assert.Equal(t, map[string]*float64{"speaker1": nil, "speaker2": nil}, report.Speakers)
}

func TestEvaluateMOSSpeakerWithoutPairs(t *testing.T) {
	run, gt := t.TempDir(), t.TempDir()
	for _, dir := range []string{run, gt} {
		audiotest.WriteFile(t, filepath.Join(dir, "speaker1_turn1.wav"), 16000, []int{1, 2, 3})
	}
	mapping := SpeakerAudioMapping{
		"speaker1": {{Pred: filepath.Join(run, "speaker1_turn1.wav"), Ref: filepath.Join(gt, "speaker1_turn1.wav")}},
		"speaker2": nil,
	}

	log, hook := test.NewNullLogger()
	got := EvaluateMOS(context.Background(), &fixedScorer{score: 4.0}, mapping, log)

	require.Len(t, got, 2)
	require.NotNil(t, got["speaker1"])
	assert.Equal(t, 4.0, *got["speaker1"])
	assert.Nil(t, got["speaker2"])
	assert.Empty(t, hook.AllEntries())
}
