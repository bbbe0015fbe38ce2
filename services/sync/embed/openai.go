// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embed

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds settings for the OpenAI-compatible embedder.
type OpenAIConfig struct {
	// APIKey authenticates the requests.
	APIKey string

	// BaseURL overrides the API endpoint for OpenAI-compatible local
	// servers. Empty means api.openai.com.
	BaseURL string

	// Model is the embedding model name.
	Model string

	// Dimensions is the vector length the model produces.
	Dimensions int
}

// applyDefaults fills unset fields. text-embedding-3-small at its
// native 1536 dimensions is the cheap sensible default.
func (c *OpenAIConfig) applyDefaults() {
	if c.Model == "" {
		c.Model = string(openai.SmallEmbedding3)
	}
	if c.Dimensions == 0 {
		c.Dimensions = 1536
	}
}

// OpenAIClient implements Embedder against an OpenAI-compatible
// embeddings endpoint.
//
// Thread Safety: Safe for concurrent use.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIClient creates an embedder for the configured endpoint.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	cfg.applyDefaults()

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// Embed converts text into a dense vector.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.cfg.Model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding in response", ErrUnavailable)
	}

	vec := resp.Data[0].Embedding
	if c.cfg.Dimensions > 0 && len(vec) != c.cfg.Dimensions {
		return nil, fmt.Errorf("model produced %d-dim vector, want %d", len(vec), c.cfg.Dimensions)
	}
	return vec, nil
}

// Dimensions returns the configured vector length.
func (c *OpenAIClient) Dimensions() int {
	return c.cfg.Dimensions
}

var _ Embedder = (*OpenAIClient)(nil)
