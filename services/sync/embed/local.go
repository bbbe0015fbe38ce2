// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultLocalTimeout bounds one embedding request to the local service.
const DefaultLocalTimeout = 30 * time.Second

// LocalClient calls a local HTTP embedding service, the kind that wraps
// a sentence-transformer model behind a small JSON API.
//
// Thread Safety: Safe for concurrent use.
type LocalClient struct {
	baseURL    string
	dimensions int
	httpClient *http.Client
}

// NewLocalClient creates a client for the embedding service at baseURL
// (e.g. "http://localhost:8000") producing vectors of the given
// dimensionality.
func NewLocalClient(baseURL string, dimensions int) *LocalClient {
	return &LocalClient{
		baseURL:    baseURL,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: DefaultLocalTimeout},
	}
}

// WithTimeout sets a custom request timeout.
func (c *LocalClient) WithTimeout(timeout time.Duration) *LocalClient {
	c.httpClient.Timeout = timeout
	return c
}

// embedRequest is the request body for the /embed endpoint.
type embedRequest struct {
	Texts []string `json:"texts"`
}

// embedResponse is the response from the /embed endpoint.
type embedResponse struct {
	Model   string      `json:"model"`
	Vectors [][]float32 `json:"vectors"`
	Dim     int         `json:"dim"`
}

// healthResponse is the response from the /health endpoint.
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Embed converts text into a dense vector.
func (c *LocalClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vectors, err := c.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: service returned no vectors", ErrUnavailable)
	}
	return vectors[0], nil
}

// BatchEmbed embeds multiple texts in one request.
func (c *LocalClient) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, msg)
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if c.dimensions > 0 {
		for _, v := range er.Vectors {
			if len(v) != c.dimensions {
				return nil, fmt.Errorf("service produced %d-dim vectors, want %d", len(v), c.dimensions)
			}
		}
	}
	return er.Vectors, nil
}

// Health verifies the service is up and its model is loaded.
func (c *LocalClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if h.Status != "ok" {
		return fmt.Errorf("%w: status %q", ErrUnavailable, h.Status)
	}
	return nil
}

// Dimensions returns the configured vector length.
func (c *LocalClient) Dimensions() int {
	return c.dimensions
}

var _ Embedder = (*LocalClient)(nil)
