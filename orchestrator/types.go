package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/maastricht-university/dialogue-arena/clients"
)

// Completer is the remote text/audio generation service.
type Completer interface {
	Complete(ctx context.Context, req *clients.ChatRequest) (*clients.ChatResponse, error)
}

// WaveformScorer estimates a mean opinion score for a predicted waveform
// against its reference. Both are mono and share sampleRate.
type WaveformScorer interface {
	Score(ctx context.Context, pred, ref []float64, sampleRate int) (float64, error)
}

// Speaker is 1 or 2.
type Speaker int

// Speakers in the order they take turns.
var Speakers = []Speaker{1, 2}

// SpeakerForTurn alternates strictly, speaker 1 on odd turns.
func SpeakerForTurn(turn int) Speaker {
	if turn%2 == 1 {
		return 1
	}
	return 2
}

func (s Speaker) Key() string   { return fmt.Sprintf("speaker%d", int(s)) }
func (s Speaker) Label() string { return fmt.Sprintf("Speaker %d", int(s)) }

// TurnFileName is shared by the run directory and the ground-truth directory.
func TurnFileName(s Speaker, turn int) string {
	return fmt.Sprintf("%s_turn%d.wav", s.Key(), turn)
}

// Turn is one utterance. It is never modified after it joins the history.
type Turn struct {
	Index      int
	Speaker    Speaker
	Voice      string
	Transcript string
	Audio      []byte
}

// Line is the transcript as it appears in conversation_details.txt.
func (t Turn) Line() string { return t.Speaker.Label() + ": " + t.Transcript }

func (t Turn) FileName() string { return TurnFileName(t.Speaker, t.Index) }

// Run carries the state of one arena run through every stage.
type Run struct {
	ID        string
	StartedAt time.Time
	Dir       string

	Topic    string
	Personas [2]string

	history []Turn
	// Frames holds each turn's frame count in total_conversation.wav.
	Frames  []int
	Reports []ScoreReport
}

const runDirPrefix = "audio_"

// NewRun creates the run directory audio_<YYYYMMDD_HHMMSS> under root.
func NewRun(root string, startedAt time.Time) (*Run, error) {
	dir := filepath.Join(root, runDirPrefix+startedAt.Format("20060102_150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Run{ID: uuid.NewString(), StartedAt: startedAt, Dir: dir}, nil
}

// Persona returns the optional persona of s, "" when unset.
func (r *Run) Persona(s Speaker) string { return r.Personas[s-1] }

// Append adds a finished turn to the history.
func (r *Run) Append(t Turn) { r.history = append(r.history, t) }

// History returns the turns so far, oldest first.
func (r *Run) History() []Turn { return r.history }

// AudioHistory returns every turn's audio in order.
func (r *Run) AudioHistory() [][]byte {
	out := make([][]byte, len(r.history))
	for i, t := range r.history {
		out[i] = t.Audio
	}
	return out
}

// Path joins name onto the run directory.
func (r *Run) Path(name string) string { return filepath.Join(r.Dir, name) }
