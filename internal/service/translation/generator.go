package translation

import (
	"context"
	"fmt"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"
)

// Generator produces one text completion for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// providerGenerator sends single-turn requests through an LLM provider
type providerGenerator struct {
	provider  llmprovider.Provider
	model     string
	maxTokens int
}

// NewProviderGenerator wraps an LLM provider as a Generator.
// maxTokens caps each response; zero leaves the provider default.
func NewProviderGenerator(provider llmprovider.Provider, model string, maxTokens int) Generator {
	return &providerGenerator{provider: provider, model: model, maxTokens: maxTokens}
}

func (g *providerGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	text := prompt
	req := &llmprovider.GenerateRequest{
		Model: g.model,
		Messages: []llmprovider.Message{
			{
				Role: "user",
				Blocks: []*llmprovider.Block{
					{BlockType: "text", Sequence: 0, TextContent: &text},
				},
			},
		},
	}
	if g.maxTokens > 0 {
		maxTokens := g.maxTokens
		req.Params = &llmprovider.RequestParams{MaxTokens: &maxTokens}
	}

	resp, err := g.provider.GenerateResponse(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", g.model, err)
	}

	var out strings.Builder
	for _, block := range resp.Blocks {
		if block.BlockType == "text" && block.TextContent != nil {
			out.WriteString(*block.TextContent)
		}
	}
	return out.String(), nil
}
