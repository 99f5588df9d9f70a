// Package summary produces short call summaries from transcripts.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Completer is the model-facing interface. The real implementation is an
// openai.Client; tests supply a fake.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var (
	ErrEmptyTranscript = errors.New("summary: empty transcript")
	ErrSummaryFailed   = errors.New("summary: generation failed")
)

// TranscriptLine is one utterance of a finished call.
type TranscriptLine struct {
	Speaker string `json:"speaker"` // "agent" or "caller"
	Text    string `json:"text"`
}

// Service turns a transcript into a two-to-three sentence summary for the
// call log.
type Service struct {
	client Completer
	model  string
}

func NewService(client Completer, model string) *Service {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Service{client: client, model: model}
}

const systemPrompt = "You summarize property-management phone calls for a back-office " +
	"call log. Write two to three sentences covering who called, what they needed, " +
	"and any follow-up agreed. Plain prose, no headings."

// Summarize returns a short textual summary of the call.
func (s *Service) Summarize(ctx context.Context, lines []TranscriptLine) (string, error) {
	if len(lines) == 0 {
		return "", ErrEmptyTranscript
	}

	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%s: %s\n", l.Speaker, l.Text)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
		MaxTokens:   200,
		Temperature: 0.2,
	})
	if err != nil {
		return "", errors.Join(ErrSummaryFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrSummaryFailed
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
