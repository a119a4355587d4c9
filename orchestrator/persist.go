package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// File names inside a run directory.
const (
	CombinedFile = "total_conversation.wav"
	DetailsFile  = "conversation_details.txt"
	ReportFile   = "evaluation_report.txt"
	ResultsFile  = "evaluation_results.json"
	ManifestFile = "run.json"
)

type ManifestTurn struct {
	Index      int    `json:"index"`
	Speaker    string `json:"speaker"`
	Voice      string `json:"voice"`
	File       string `json:"file"`
	Frames     int    `json:"frames,omitempty"`
	Transcript string `json:"transcript"`
}

// Manifest describes a run for machines; the text files are for people.
type Manifest struct {
	RunID      string         `json:"run_id"`
	Dir        string         `json:"dir"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Provider   string         `json:"provider"`
	TextModel  string         `json:"text_model"`
	AudioModel string         `json:"audio_model"`
	Topic      string         `json:"topic"`
	Personas   []string       `json:"personas"`
	Turns      []ManifestTurn `json:"turns"`
	Combined   string         `json:"combined,omitempty"`
	Providers  []string       `json:"score_providers"`
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &m, nil
}

func writeText(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func detailsText(run *Run) string {
	var b strings.Builder
	b.WriteString("=== Conversation Details ===\n\n")
	b.WriteString("Topic:\n")
	b.WriteString(run.Topic + "\n\n")
	b.WriteString("Speaker Settings:\n")
	for _, s := range Speakers {
		persona := run.Persona(s)
		if persona == "" {
			persona = "(none)"
		}
		fmt.Fprintf(&b, "%s: %s\n", s.Label(), persona)
	}
	b.WriteString("\nTranscript:\n")
	for _, t := range run.History() {
		b.WriteString(t.Line() + "\n")
	}
	return b.String()
}

func reportText(run *Run) string {
	var texts []string
	for _, r := range run.Reports {
		if r.Text != "" {
			texts = append(texts, r.Text)
		}
	}
	return "=== Evaluation Report ===\n\n" + strings.Join(texts, "\n\n") + "\n"
}

func (p *Pipeline) manifest(run *Run, finished time.Time) Manifest {
	m := Manifest{
		RunID:      run.ID,
		Dir:        run.Dir,
		StartedAt:  run.StartedAt,
		FinishedAt: finished,
		Provider:   p.cfg.Provider,
		TextModel:  p.cfg.Models.Text,
		AudioModel: p.cfg.Models.Audio,
		Topic:      run.Topic,
		Personas:   run.Personas[:],
	}
	for i, t := range run.History() {
		mt := ManifestTurn{
			Index:      t.Index,
			Speaker:    t.Speaker.Key(),
			Voice:      t.Voice,
			File:       t.FileName(),
			Transcript: t.Transcript,
		}
		if i < len(run.Frames) {
			mt.Frames = run.Frames[i]
		}
		m.Turns = append(m.Turns, mt)
	}
	if len(run.Frames) == len(run.History()) && len(run.Frames) > 0 {
		m.Combined = CombinedFile
	}
	for _, r := range run.Reports {
		m.Providers = append(m.Providers, r.Provider)
	}
	return m
}

// persist writes the run's text and JSON artifacts. Every file is attempted;
// failures are logged and returned joined, and nothing already written is
// rolled back.
func (p *Pipeline) persist(run *Run) error {
	writes := []struct {
		name  string
		write func(path string) error
	}{
		{DetailsFile, func(path string) error { return writeText(path, detailsText(run)) }},
		{ReportFile, func(path string) error { return writeText(path, reportText(run)) }},
		{ResultsFile, func(path string) error { return writeJSON(path, speakerResults(run.Reports)) }},
		{ManifestFile, func(path string) error { return writeJSON(path, p.manifest(run, p.now())) }},
	}

	var errs []error
	for _, w := range writes {
		path := run.Path(w.name)
		if err := w.write(path); err != nil {
			p.log.WithError(err).WithField("file", path).Error("failed to save result file")
			errs = append(errs, fmt.Errorf("%s: %w", w.name, err))
			continue
		}
		p.log.WithField("file", path).Info("saved result file")
	}
	return errors.Join(errs...)
}
