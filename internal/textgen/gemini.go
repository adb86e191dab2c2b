package textgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-3-flash-preview"

func init() {
	RegisterProvider("gemini", Registration{
		DefaultModel: defaultGeminiModel,
		EnvKey:       "GEMINI_API_KEY",
		Constructor: func(s Settings) (Generator, error) {
			return NewGemini(s.APIKey, s.Model), nil
		},
	})
}

// Gemini calls the Google Generative Language API.
type Gemini struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

// NewGemini creates a Gemini provider. The SDK client is created on first use.
func NewGemini(apiKey, model string) *Gemini {
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	return &Gemini{apiKey: strings.TrimSpace(apiKey), model: model}
}

func (g *Gemini) ensureClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	g.client = client
	return client, nil
}

// Generate sends one prompt with the system instruction.
func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	client, err := g.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	model := client.GenerativeModel(g.model)
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemInstruction)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}

	slog.Debug("gemini response",
		"model", g.model,
		"output_chars", sb.Len(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return nonEmpty(sb.String(), g.model)
}

// Close releases the SDK client.
func (g *Gemini) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}
