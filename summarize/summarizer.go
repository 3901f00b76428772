package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"go-vigia/types"
)

const maxLocalitiesForPrompt = 20

// Summarizer writes the short notes paragraph stored on a monthly report.
type Summarizer struct {
	client *openai.Client
}

func New(apiKey string) *Summarizer {
	return &Summarizer{client: openai.NewClient(apiKey)}
}

// MonthlyNotes asks the model for a 2-3 sentence overview of the month's
// report figures.
func (s *Summarizer) MonthlyNotes(ctx context.Context, report types.MonthlyReport) (string, error) {
	prompt := buildPrompt(report)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4oMini,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an assistant that summarizes monthly citizen incident-report statistics concisely for city officials.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   150,
			N:           1,
			Temperature: 0.5,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned empty response or choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(report types.MonthlyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Incident report statistics for %s:\n", report.Month)
	fmt.Fprintf(&b, "Total: %d incidents, %d confirmations, %d comments.\n",
		report.Totals.Incidents, report.Totals.Confirmations, report.Totals.Comments)

	for i, loc := range report.ByLocality {
		if i >= maxLocalitiesForPrompt {
			fmt.Fprintf(&b, "(%d more localities omitted)\n", len(report.ByLocality)-i)
			break
		}
		name := loc.Locality
		if name == "" {
			name = "unspecified locality"
		}
		var parts []string
		for _, g := range loc.Groups {
			parts = append(parts, fmt.Sprintf("%s: %d", g.CategoryGroup, g.Totals.Incidents))
		}
		fmt.Fprintf(&b, "- %s (%s)\n", name, strings.Join(parts, ", "))
	}

	b.WriteString("\nWrite a concise overview (2-3 sentences maximum) highlighting the most affected localities and categories:")
	return b.String()
}
