package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// ContentGenerator is the part of *genai.GenerativeModel the backend uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type GeminiGenerator struct {
	client      *genai.Client
	modelName   string
	temperature float32
	newModel    func(prompt Prompt) ContentGenerator
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName string, temperature float32) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("GOOGLE_AI_STUDIO_API_KEY is not set")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	g := &GeminiGenerator{
		client:      client,
		modelName:   modelName,
		temperature: temperature,
	}
	g.newModel = g.generativeModel
	return g, nil
}

func (g *GeminiGenerator) generativeModel(prompt Prompt) ContentGenerator {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(g.temperature)
	if prompt.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(prompt.System))
	}
	if prompt.JSON {
		model.ResponseMIMEType = "application/json"
	}
	return model
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := g.newModel(prompt).GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

func (g *GeminiGenerator) Provider() string { return "gemini" }

func (g *GeminiGenerator) Model() string { return g.modelName }

func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyOutput
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: finish reason %s", ErrEmptyOutput, candidate.FinishReason)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}
