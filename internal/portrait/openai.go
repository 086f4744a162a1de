package portrait

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pairup-labs/pairup/internal/domain"
)

// ErrEmptyResponse indicates the image API returned no data.
var ErrEmptyResponse = errors.New("image api returned no data")

// OpenAIGenerator renders couple portraits with the OpenAI Images API.
type OpenAIGenerator struct {
	client openai.Client
	model  openai.ImageModel
}

// NewOpenAIGenerator builds a generator with the given API key.
func NewOpenAIGenerator(apiKey string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.ImageModelDallE3,
	}
}

// Generate renders a portrait from the prompt. The selfies gate when a
// request may start; the rendered scene comes from the prompt built out of
// the couple's quiz answers.
func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (*domain.Artwork, error) {
	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         req.Prompt,
		Model:          g.model,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		Size:           openai.ImageGenerateParamsSize1024x1024,
	})
	if err != nil {
		return nil, fmt.Errorf("generate portrait: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrEmptyResponse
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode portrait payload: %w", err)
	}
	return &domain.Artwork{Data: raw, MIME: "image/png"}, nil
}
