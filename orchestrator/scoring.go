package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/maastricht-university/dialogue-arena/clients"
)

// ScoreProvider scores a finished run. Providers are independent of each
// other and can be swapped or run alone.
type ScoreProvider interface {
	Name() string
	Score(ctx context.Context, run *Run) (*ScoreReport, error)
}

// ScoreReport is what one provider produced. Text is free-form feedback;
// Speakers maps speaker keys to a score, nil meaning no score could be
// computed (distinct from a score of zero).
type ScoreReport struct {
	Provider string
	Text     string
	Speakers map[string]*float64
}

// RubricEvaluator asks the audio model to critique the dialogue against a
// fixed rubric. The reply is kept verbatim; scores inside it are not parsed.
type RubricEvaluator struct {
	llm    Completer
	model  string
	format string
}

func NewRubricEvaluator(llm Completer, model, format string) *RubricEvaluator {
	return &RubricEvaluator{llm: llm, model: model, format: format}
}

func (r *RubricEvaluator) Name() string { return "rubric" }

func (r *RubricEvaluator) Score(ctx context.Context, run *Run) (*ScoreReport, error) {
	resp, err := r.llm.Complete(ctx, &clients.ChatRequest{
		Model: r.model,
		Messages: []clients.Message{
			clients.SystemMessage(evaluationSystemPrompt),
			clients.UserMessage(rubricUserParts(run.History(), r.format)...),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rubric: %w", err)
	}
	msg, err := resp.Reply()
	if err != nil {
		return nil, fmt.Errorf("rubric: %w", err)
	}
	return &ScoreReport{Provider: r.Name(), Text: strings.TrimSpace(msg.Content)}, nil
}
