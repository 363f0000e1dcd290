package strategist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"apyhub/internal/domain"
)

const composerSystemPrompt = "You are a DeFi yield strategist. You receive " +
	"machine-generated strategy proposals plus background notes and write a " +
	"short advisory summary for the user. Be concrete about APY, risk and " +
	"capital requirements. Never invent pools or numbers that are not in the " +
	"input. Answer in plain prose, at most three paragraphs."

// Composer turns generated strategies into a narrative summary with the
// Claude API.
type Composer struct {
	client anthropic.Client
	model  string
}

// NewComposer creates a composer. Returns nil when no API key is configured;
// callers treat a nil composer as "rule-based output only".
func NewComposer(apiKey, model string) *Composer {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	return &Composer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Model returns the configured model name.
func (c *Composer) Model() string { return c.model }

// Compose writes the advisory summary for the given proposals.
func (c *Composer) Compose(ctx context.Context, strategies []domain.Strategy, notes []string) (string, error) {
	payload, err := json.Marshal(strategies)
	if err != nil {
		return "", fmt.Errorf("marshal strategies: %w", err)
	}

	var prompt strings.Builder
	prompt.WriteString("Strategy proposals:\n")
	prompt.Write(payload)
	if len(notes) > 0 {
		prompt.WriteString("\n\nBackground notes:\n")
		for _, note := range notes {
			prompt.WriteString("- ")
			prompt.WriteString(note)
			prompt.WriteString("\n")
		}
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: composerSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.String())),
		},
	})
	if err != nil {
		return "", fmt.Errorf("compose summary: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(out.String()), nil
}
