package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/dialogue-arena/audio"
	"github.com/maastricht-university/dialogue-arena/clients"
)

var ErrNoAudio = errors.New("reply has no audio")

// GenerateTopic asks the text model for the scenario both speakers share.
func (p *Pipeline) GenerateTopic(ctx context.Context) (string, error) {
	resp, err := p.llm.Complete(ctx, &clients.ChatRequest{
		Model: p.cfg.Models.Text,
		Messages: []clients.Message{
			clients.SystemMessage(topicSystemPrompt),
			clients.UserMessage(clients.TextPart(topicUserPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("topic: %w", err)
	}
	msg, err := resp.Reply()
	if err != nil {
		return "", fmt.Errorf("topic: %w", err)
	}
	return strings.TrimSpace(msg.Content), nil
}

// Dialogue runs the configured number of turns. Each turn depends on every
// earlier one, so the first failed request ends the dialogue.
func (p *Pipeline) Dialogue(ctx context.Context, run *Run) error {
	for i := 1; i <= p.cfg.Dialogue.Turns; i++ {
		turn, err := p.runTurn(ctx, run, i)
		if err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
		run.Append(turn)

		log := p.log.WithFields(logrus.Fields{"turn": i, "speaker": turn.Speaker.Key()})
		if clip, err := audio.Decode(turn.Audio); err != nil {
			log.WithError(err).Warn("turn audio is not a readable wav")
		} else {
			log = log.WithField("seconds", clip.Duration())
		}
		path := run.Path(turn.FileName())
		if err := os.WriteFile(path, turn.Audio, 0o644); err != nil {
			log.WithError(err).Error("failed to save turn audio")
		} else {
			log.WithField("file", path).Debug("saved turn audio")
		}
		log.Infof("%s (turn %d): %s", turn.Speaker.Label(), i, turn.Transcript)
	}
	p.log.Info("dialogue completed, proceeding to evaluation")
	return nil
}

func (p *Pipeline) runTurn(ctx context.Context, run *Run, index int) (Turn, error) {
	spk := SpeakerForTurn(index)
	voice := p.cfg.Dialogue.Speakers[spk-1].Voice
	format := p.cfg.Dialogue.AudioFormat

	resp, err := p.llm.Complete(ctx, &clients.ChatRequest{
		Model: p.cfg.Models.Audio,
		Messages: []clients.Message{
			clients.SystemMessage(turnSystemPrompt(run.Topic, spk, run.Persona(spk))),
			clients.UserMessage(turnUserParts(p.cfg.Dialogue.MaxWords, run.AudioHistory(), format)...),
		},
		Modalities: []string{clients.ModalityText, clients.ModalityAudio},
		Audio:      &clients.AudioOutput{Voice: voice, Format: format},
	})
	if err != nil {
		return Turn{}, err
	}
	msg, err := resp.Reply()
	if err != nil {
		return Turn{}, err
	}
	if msg.Audio == nil {
		return Turn{}, ErrNoAudio
	}
	data, err := msg.Audio.Bytes()
	if err != nil {
		return Turn{}, err
	}
	return Turn{
		Index:      index,
		Speaker:    spk,
		Voice:      voice,
		Transcript: p.policy.Pick(msg),
		Audio:      data,
	}, nil
}
