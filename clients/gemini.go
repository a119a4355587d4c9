package clients

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini serves the chat request shape with Gemini for text and Cloud
// Text-to-Speech for the spoken reply. Audio input parts are passed to Gemini
// as inline blobs; audio output is the reply text synthesized as LINEAR16 WAV
// in the requested voice, so the transcript is always exactly the content.
type Gemini struct {
	client       *genai.Client
	tts          *texttospeech.Client
	languageCode string
	sampleRate   int
}

// NewGemini dials Gemini with apiKey. Text-to-Speech uses application
// default credentials.
func NewGemini(ctx context.Context, apiKey, languageCode string, sampleRate int) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	tts, err := texttospeech.NewClient(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("text-to-speech client: %w", err)
	}
	return &Gemini{client: client, tts: tts, languageCode: languageCode, sampleRate: sampleRate}, nil
}

func (g *Gemini) Close() error {
	return errors.Join(g.client.Close(), g.tts.Close())
}

func (g *Gemini) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := g.client.GenerativeModel(req.Model)
	system, parts, err := toGenai(req.Messages)
	if err != nil {
		return nil, err
	}
	model.SystemInstruction = system

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	msg := ReplyMessage{Role: RoleAssistant, Content: text}
	if req.Audio != nil {
		wav, err := g.synthesize(ctx, text, req.Audio.Voice)
		if err != nil {
			return nil, err
		}
		msg.Audio = &AudioReply{Data: base64.StdEncoding.EncodeToString(wav), Transcript: text}
	}
	return &ChatResponse{Model: req.Model, Choices: []Choice{{Message: msg, FinishReason: "stop"}}}, nil
}

// synthesize returns WAV bytes; LINEAR16 responses carry their own header.
func (g *Gemini) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := g.tts.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.languageCode,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: int32(g.sampleRate),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("text-to-speech: %w", err)
	}
	return resp.AudioContent, nil
}

// toGenai folds system messages into a system instruction and flattens the
// remaining messages into one prompt.
func toGenai(msgs []Message) (*genai.Content, []genai.Part, error) {
	var system *genai.Content
	var parts []genai.Part
	for _, m := range msgs {
		if m.Role == RoleSystem {
			// system instructions are text only; other parts are dropped
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.Text(m.Text()))
			continue
		}
		converted, err := toGenaiParts(m.Parts)
		if err != nil {
			return nil, nil, err
		}
		parts = append(parts, converted...)
	}
	if len(parts) == 0 {
		return nil, nil, errors.New("gemini: request has no user content")
	}
	return system, parts, nil
}

func toGenaiParts(in []ContentPart) ([]genai.Part, error) {
	out := make([]genai.Part, 0, len(in))
	for _, p := range in {
		switch p.Type {
		case PartText:
			out = append(out, genai.Text(p.Text))
		case PartInputAudio:
			data, err := base64.StdEncoding.DecodeString(p.InputAudio.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini: input audio: %w", err)
			}
			out = append(out, genai.Blob{MIMEType: "audio/" + p.InputAudio.Format, Data: data})
		default:
			return nil, fmt.Errorf("gemini: unsupported content part %q", p.Type)
		}
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}
