package clients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// --- Chat completions (/chat/completions) ---

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	PartText       = "text"
	PartInputAudio = "input_audio"

	ModalityText  = "text"
	ModalityAudio = "audio"
)

type InputAudio struct {
	Data   string `json:"data"` // base64
	Format string `json:"format"`
}

type ContentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	InputAudio *InputAudio `json:"input_audio,omitempty"`
}

func TextPart(text string) ContentPart { return ContentPart{Type: PartText, Text: text} }

// AudioPart inlines raw audio bytes as a base64 block.
func AudioPart(data []byte, format string) ContentPart {
	return ContentPart{
		Type:       PartInputAudio,
		InputAudio: &InputAudio{Data: base64.StdEncoding.EncodeToString(data), Format: format},
	}
}

// Message is one role-tagged request message. A message made of a single
// text part is sent with plain string content.
type Message struct {
	Role  string
	Parts []ContentPart
}

func SystemMessage(text string) Message { return Message{Role: RoleSystem, Parts: []ContentPart{TextPart(text)}} }
func UserMessage(parts ...ContentPart) Message {
	return Message{Role: RoleUser, Parts: parts}
}

func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Parts) == 1 && m.Parts[0].Type == PartText {
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{m.Role, m.Parts[0].Text})
	}
	return json.Marshal(struct {
		Role    string        `json:"role"`
		Content []ContentPart `json:"content"`
	}{m.Role, m.Parts})
}

// Text joins the message's text parts.
func (m Message) Text() string {
	var out []string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out = append(out, p.Text)
		}
	}
	return strings.Join(out, "\n")
}

type AudioOutput struct {
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

type ChatRequest struct {
	Model      string       `json:"model"`
	Messages   []Message    `json:"messages"`
	Modalities []string     `json:"modalities,omitempty"`
	Audio      *AudioOutput `json:"audio,omitempty"`
}

type AudioReply struct {
	ID         string `json:"id,omitempty"`
	Data       string `json:"data"` // base64
	Transcript string `json:"transcript"`
}

// Bytes decodes the base64 audio payload.
func (a *AudioReply) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("audio decode: %w", err)
	}
	return b, nil
}

type ReplyMessage struct {
	Role    string      `json:"role"`
	Content string      `json:"content"`
	Audio   *AudioReply `json:"audio,omitempty"`
}

type Choice struct {
	Index        int          `json:"index"`
	Message      ReplyMessage `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

var ErrNoChoices = errors.New("chat: response has no choices")

// Reply returns the first choice's message.
func (r *ChatResponse) Reply() (*ReplyMessage, error) {
	if len(r.Choices) == 0 {
		return nil, ErrNoChoices
	}
	return &r.Choices[0].Message, nil
}

func (h *HTTP) ChatCompletion(ctx context.Context, url, apiKey string, req *ChatRequest) (*ChatResponse, error) {
	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}
	var out ChatResponse
	if err := h.postJSON(ctx, "chat", strings.TrimRight(url, "/")+"/chat/completions", header, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenAI binds the chat completions endpoint and credential of an
// OpenAI-compatible service.
type OpenAI struct {
	http   *HTTP
	url    string
	apiKey string
}

func NewOpenAI(h *HTTP, url, apiKey string) *OpenAI {
	return &OpenAI{http: h, url: url, apiKey: apiKey}
}

func (o *OpenAI) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return o.http.ChatCompletion(ctx, o.url, o.apiKey, req)
}
