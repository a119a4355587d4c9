package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/maastricht-university/dialogue-arena/audio/audiotest"
	"github.com/maastricht-university/dialogue-arena/clients"
)

const (
	testTopic      = "Two neighbours argue over a shared garden."
	testEvaluation = "Speaker 1 – Rhythm Control: steady. Score: 7/10"
	turnFrames     = 10
	testRate       = 24000
)

// scriptedLLM answers topic, turn and rubric requests the way the real
// services do. Turn n returns a mono ramp starting at n*1000 and the content
// "line n".
type scriptedLLM struct {
	t          testing.TB
	failAt     int // turn number that errors, 0 for none
	failTopic  bool
	failRubric bool

	mu       sync.Mutex
	requests []*clients.ChatRequest
	turn     int
}

var errBoom = errors.New("boom")

func (s *scriptedLLM) Complete(_ context.Context, req *clients.ChatRequest) (*clients.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	var msg clients.ReplyMessage
	switch {
	case req.Audio != nil:
		s.turn++
		if s.turn == s.failAt {
			return nil, errBoom
		}
		wav := audiotest.WAV(s.t, testRate, 1, 16, audiotest.Ramp(s.turn*1000, turnFrames))
		msg = clients.ReplyMessage{
			Content: fmt.Sprintf("line %d", s.turn),
			Audio: &clients.AudioReply{
				Data:       base64.StdEncoding.EncodeToString(wav),
				Transcript: fmt.Sprintf("transcript %d", s.turn),
			},
		}
	case s.turn == 0:
		if s.failTopic {
			return nil, errBoom
		}
		msg = clients.ReplyMessage{Content: "  " + testTopic + "\n"}
	default:
		if s.failRubric {
			return nil, errBoom
		}
		msg = clients.ReplyMessage{Content: testEvaluation + "\n"}
	}
	return &clients.ChatResponse{Choices: []clients.Choice{{Message: msg}}}, nil
}

func (s *scriptedLLM) turnRequests() []*clients.ChatRequest {
	var out []*clients.ChatRequest
	for _, r := range s.requests {
		if r.Audio != nil {
			out = append(out, r)
		}
	}
	return out
}

// fixedScorer returns score for every pair, or err when set.
type fixedScorer struct {
	score float64
	err   error
	calls int
}

func (f *fixedScorer) Score(_ context.Context, pred, ref []float64, sampleRate int) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.score, nil
}
