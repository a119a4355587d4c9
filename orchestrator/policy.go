package orchestrator

import (
	"fmt"

	"github.com/maastricht-university/dialogue-arena/clients"
)

// TranscriptPolicy decides which text of an audio reply becomes the turn's
// transcript when the reply carries both direct content and an audio
// transcript.
type TranscriptPolicy string

const (
	// PreferContent uses the message content and falls back to the audio
	// transcript when the content is empty.
	PreferContent TranscriptPolicy = "prefer_content"
	// PreferTranscript uses the audio transcript and falls back to content.
	PreferTranscript TranscriptPolicy = "prefer_transcript"
)

func ParseTranscriptPolicy(s string) (TranscriptPolicy, error) {
	switch p := TranscriptPolicy(s); p {
	case PreferContent, PreferTranscript:
		return p, nil
	case "":
		return PreferContent, nil
	default:
		return "", fmt.Errorf("unknown transcript policy %q", s)
	}
}

// Pick returns the transcript chosen by the policy, possibly "".
func (p TranscriptPolicy) Pick(msg *clients.ReplyMessage) string {
	var transcript string
	if msg.Audio != nil {
		transcript = msg.Audio.Transcript
	}
	first, second := msg.Content, transcript
	if p == PreferTranscript {
		first, second = transcript, msg.Content
	}
	if first != "" {
		return first
	}
	return second
}
