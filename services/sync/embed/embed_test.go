// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newEmbedServer serves the local embedding protocol with fixed vectors.
func newEmbedServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embed":
			var req embedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			vectors := make([][]float32, len(req.Texts))
			for i := range req.Texts {
				vec := make([]float32, dim)
				vec[0] = float32(len(req.Texts[i]))
				vectors[i] = vec
			}
			json.NewEncoder(w).Encode(embedResponse{
				Model:   "test-model",
				Vectors: vectors,
				Dim:     dim,
			})
		case "/health":
			json.NewEncoder(w).Encode(healthResponse{Status: "ok", Model: "test-model"})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestLocalClient_Embed(t *testing.T) {
	srv := newEmbedServer(t, 4)
	defer srv.Close()

	client := NewLocalClient(srv.URL, 4)
	ctx := context.Background()

	t.Run("empty text rejected", func(t *testing.T) {
		if _, err := client.Embed(ctx, ""); !errors.Is(err, ErrEmptyText) {
			t.Errorf("err = %v, want ErrEmptyText", err)
		}
	})

	t.Run("returns configured dimensionality", func(t *testing.T) {
		vec, err := client.Embed(ctx, "hello")
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		if len(vec) != 4 {
			t.Errorf("len(vec) = %d", len(vec))
		}
		if client.Dimensions() != 4 {
			t.Errorf("Dimensions = %d", client.Dimensions())
		}
	})

	t.Run("batch preserves order", func(t *testing.T) {
		vectors, err := client.BatchEmbed(ctx, []string{"a", "bbb"})
		if err != nil {
			t.Fatalf("BatchEmbed: %v", err)
		}
		if len(vectors) != 2 {
			t.Fatalf("len = %d", len(vectors))
		}
		if vectors[0][0] != 1 || vectors[1][0] != 3 {
			t.Errorf("vectors = %v", vectors)
		}
	})

	t.Run("dimension disagreement rejected", func(t *testing.T) {
		strict := NewLocalClient(srv.URL, 8)
		if _, err := strict.Embed(ctx, "hello"); err == nil {
			t.Error("want error for dimension mismatch")
		}
	})
}

func TestLocalClient_Health(t *testing.T) {
	srv := newEmbedServer(t, 4)
	defer srv.Close()

	client := NewLocalClient(srv.URL, 4)
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}

func TestLocalClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading model", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewLocalClient(srv.URL, 4)
	ctx := context.Background()

	if err := client.Health(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Health err = %v, want ErrUnavailable", err)
	}
	if _, err := client.Embed(ctx, "text"); err == nil {
		t.Error("want error from unavailable service")
	}
}
