// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/NoteGraph/pkg/logging"
	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// systemPrompt pins the model to JSON output over the closed type sets.
const systemPrompt = `You are a knowledge-graph extraction engine. Given a markdown note,
identify the entities it discusses and the relationships between them.

Respond with ONLY a JSON object, no prose, in this shape:
{
  "entities": [{"name": "...", "type": "...", "description": "..."}],
  "relationships": [{"source": "...", "relation": "...", "target": "..."}],
  "summary": "one or two sentences"
}

Entity types must be one of: Topic, Technology, Concept, Tool, Process,
Person, Organization, Document, Question.
Relations should be one of: REFERENCES, APPEARS_IN, ANSWERED_BY,
RELATES_TO, DEPENDS_ON, PART_OF, AUTHORED_BY.
Use the literal string "this" as source or target to mean the note itself.`

// maxContentChars bounds the document text sent per request.
const maxContentChars = 24000

// OpenAIConfig holds settings for the OpenAI-compatible extractor.
type OpenAIConfig struct {
	// APIKey authenticates the requests. Local servers often accept
	// any non-empty value.
	APIKey string

	// BaseURL overrides the API endpoint so llama.cpp, Ollama, vLLM
	// and friends work. Empty means api.openai.com.
	BaseURL string

	// Model is the chat model name.
	Model string

	// MinInterval is the minimum time between two extraction calls.
	// Zero disables rate limiting.
	MinInterval time.Duration

	// Temperature for the chat call. Extraction wants near-greedy.
	Temperature float32
}

// applyDefaults fills unset fields.
func (c *OpenAIConfig) applyDefaults() {
	if c.Model == "" {
		c.Model = openai.GPT4oMini
	}
}

// OpenAIExtractor implements Extractor against any OpenAI-compatible
// chat completion endpoint.
//
// Thread Safety: Safe for concurrent use; the rate gate serializes the
// request budget, not the requests.
type OpenAIExtractor struct {
	client  *openai.Client
	cfg     OpenAIConfig
	limiter *rate.Limiter
	logger  *logging.Logger
}

// OpenAIOption is a functional option for configuring the extractor.
type OpenAIOption func(*OpenAIExtractor)

// WithLogger sets the extractor's logger.
func WithLogger(logger *logging.Logger) OpenAIOption {
	return func(e *OpenAIExtractor) {
		e.logger = logger
	}
}

// NewOpenAIExtractor creates an extractor for the configured endpoint.
func NewOpenAIExtractor(cfg OpenAIConfig, opts ...OpenAIOption) *OpenAIExtractor {
	cfg.applyDefaults()

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	e := &OpenAIExtractor{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logging.Default(),
	}
	if cfg.MinInterval > 0 {
		e.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract analyzes one document. Never returns a Go error; failures
// come back as Success=false.
func (e *OpenAIExtractor) Extract(ctx context.Context, doc *datatypes.ParsedDocument) ExtractionResult {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return failure(fmt.Sprintf("rate gate: %v", err))
		}
	}

	content := doc.Body
	if len(content) > maxContentChars {
		content = content[:maxContentChars]
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(doc, content)},
		},
	})
	if err != nil {
		e.logger.Warn("extraction call failed", "path", doc.Path, "error", err)
		return failure(fmt.Sprintf("chat completion: %v", err))
	}
	if len(resp.Choices) == 0 {
		return failure("model returned no choices")
	}

	result, err := parseResponse(resp.Choices[0].Message.Content, e.logger)
	if err != nil {
		e.logger.Warn("unparseable extraction response", "path", doc.Path, "error", err)
		return failure(err.Error())
	}

	e.logger.Debug("extraction complete",
		"path", doc.Path,
		"entities", len(result.Entities),
		"relationships", len(result.Relationships))
	return result
}

// userPrompt frames the document for the model.
func userPrompt(doc *datatypes.ParsedDocument, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Note title: %s\n", doc.Title)
	if len(doc.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(doc.Tags, ", "))
	}
	b.WriteString("\n--- NOTE CONTENT ---\n")
	b.WriteString(content)
	return b.String()
}

var _ Extractor = (*OpenAIExtractor)(nil)
