package clients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageMarshal(t *testing.T) {
	b, err := json.Marshal(SystemMessage("You are Speaker 1."))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"system","content":"You are Speaker 1."}`, string(b))

	b, err = json.Marshal(UserMessage(TextPart("Speak now."), AudioPart([]byte("RIFF"), "wav")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":[
		{"type":"text","text":"Speak now."},
		{"type":"input_audio","input_audio":{"data":"UklGRg==","format":"wav"}}
	]}`, string(b))
}

func TestChatCompletion(t *testing.T) {
	wav := []byte("RIFF....WAVE")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-audio-preview", body["model"])
		assert.Equal(t, []any{"text", "audio"}, body["modalities"])
		assert.Equal(t, map[string]any{"voice": "alloy", "format": "wav"}, body["audio"])

		io.WriteString(w, `{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":null,
			"audio":{"id":"a1","data":"`+base64.StdEncoding.EncodeToString(wav)+`","transcript":"Hello there."}}}]}`)
	}))
	defer srv.Close()

	chat := NewOpenAI(NewHTTP(), srv.URL+"/v1/", "sk-test")
	resp, err := chat.Complete(context.Background(), &ChatRequest{
		Model:      "gpt-4o-audio-preview",
		Messages:   []Message{SystemMessage("sys"), UserMessage(TextPart("Speak now."))},
		Modalities: []string{ModalityText, ModalityAudio},
		Audio:      &AudioOutput{Voice: "alloy", Format: "wav"},
	})
	require.NoError(t, err)

	msg, err := resp.Reply()
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
	require.NotNil(t, msg.Audio)
	assert.Equal(t, "Hello there.", msg.Audio.Transcript)
	got, err := msg.Audio.Bytes()
	require.NoError(t, err)
	assert.Equal(t, wav, got)
}

func TestChatCompletionStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewOpenAI(NewHTTP(), srv.URL, "bad").Complete(context.Background(), &ChatRequest{Model: "gpt-4o"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Contains(t, se.Error(), "invalid api key")
}

func TestReplyNoChoices(t *testing.T) {
	_, err := (&ChatResponse{}).Reply()
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestAudioReplyBadBase64(t *testing.T) {
	_, err := (&AudioReply{Data: "%%%"}).Bytes()
	assert.Error(t, err)
}

func TestDNSMOS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dnsmos", r.URL.Path)
		var req MOSReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 24000, req.SampleRate)
		assert.Equal(t, []float64{0.5, -0.5}, req.Pred)
		assert.Equal(t, []float64{0.25}, req.Ref)
		io.WriteString(w, `{"mos": 3.75}`)
	}))
	defer srv.Close()

	score, err := NewMOS(NewHTTP(), srv.URL).Score(context.Background(), []float64{0.5, -0.5}, []float64{0.25}, 24000)
	require.NoError(t, err)
	assert.InDelta(t, 3.75, score, 1e-9)
}

func TestToGenai(t *testing.T) {
	system, parts, err := toGenai([]Message{
		SystemMessage("Conversation Topic:\nA debate."),
		UserMessage(TextPart("Speak now."), AudioPart([]byte{1, 2, 3}, "wav")),
	})
	require.NoError(t, err)
	require.NotNil(t, system)
	assert.Equal(t, []genai.Part{genai.Text("Conversation Topic:\nA debate.")}, system.Parts)
	assert.Equal(t, []genai.Part{
		genai.Text("Speak now."),
		genai.Blob{MIMEType: "audio/wav", Data: []byte{1, 2, 3}},
	}, parts)

	system, _, err = toGenai([]Message{
		{Role: RoleSystem, Parts: []ContentPart{TextPart("Be brief."), AudioPart([]byte{9}, "wav"), TextPart("Stay in character.")}},
		UserMessage(TextPart("Go.")),
	})
	require.NoError(t, err)
	assert.Equal(t, []genai.Part{genai.Text("Be brief.\nStay in character.")}, system.Parts)

	_, _, err = toGenai([]Message{SystemMessage("only system")})
	assert.Error(t, err)

	_, _, err = toGenai([]Message{UserMessage(ContentPart{Type: "image_url"})})
	assert.Error(t, err)
}

func TestResponseText(t *testing.T) {
	text, err := responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Two "), genai.Text("rivals.")}},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "Two rivals.", text)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}
