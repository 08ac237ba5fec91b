// Package gemini implements the generation endpoint against the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/brightpath/brainstorm/internal/config"
	"github.com/brightpath/brainstorm/internal/conversation"
	"github.com/brightpath/brainstorm/internal/generation"
)

// Endpoint streams replies from a Gemini model. It implements
// generation.Endpoint.
type Endpoint struct {
	client      *genai.Client
	logger      *slog.Logger
	model       string
	temperature float32
	maxTokens   int32
	timeout     time.Duration
}

// New creates an Endpoint from the application configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Endpoint, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &Endpoint{
		client:      client,
		logger:      logger,
		model:       cfg.ModelName,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens),
		timeout:     cfg.RequestTimeout,
	}, nil
}

// Generate implements generation.Endpoint. The returned sequence yields text
// deltas as the model produces them; any transport or model error terminates
// the sequence after being yielded once.
func (e *Endpoint) Generate(ctx context.Context, turns []generation.Turn) iter.Seq2[string, error] {
	contents, system := buildContents(turns)

	temp := e.temperature
	gcfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: e.maxTokens,
	}
	if system != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		e.logger.Debug("gemini request", "model", e.model, "turns", len(turns))
		for resp, err := range e.client.Models.GenerateContentStream(ctx, e.model, contents, gcfg) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// buildContents converts the prompt context to genai contents, splitting off
// the system instruction. Gemini has no system role in the content list;
// system turns are concatenated into the SystemInstruction field.
func buildContents(turns []generation.Turn) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system string

	for _, t := range turns {
		switch t.Role {
		case conversation.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += t.Content
		case conversation.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		}
	}
	return contents, system
}
