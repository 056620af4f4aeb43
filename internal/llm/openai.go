// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/geogate-ai/geogate/pkg/logging"
	"github.com/sashabaranov/go-openai"
)

const secretKeyPath = "/run/secrets/openai_api_key"

const defaultModel = "gpt-4o-mini"

// systemPrompt pins the model into the reviewer role; every stage prompt
// carries its own JSON-only schema instruction on top.
const systemPrompt = "You are a geo-regulation compliance analyst. Respond with JSON only, no prose, no markdown fences."

// OpenAIClient talks to an OpenAI-compatible chat-completions endpoint.
// Classification needs reproducibility, so temperature is pinned to zero.
type OpenAIClient struct {
	client *openai.Client
	model  string
	log    *logging.Logger
}

// NewOpenAIClient builds a client from the environment: OPENAI_API_KEY
// (with a secrets-file fallback), OPENAI_MODEL, and optional
// OPENAI_BASE_URL for compatible providers.
func NewOpenAIClient(log *logging.Logger) (*OpenAIClient, error) {
	if log == nil {
		log = logging.Default()
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		if content, err := os.ReadFile(secretKeyPath); err == nil {
			apiKey = strings.TrimSpace(string(content))
			log.Info("read OpenAI API key from secrets file", "path", secretKeyPath)
		}
	}
	if apiKey == "" {
		log.Error("OPENAI_API_KEY not set and secret not found", "path", secretKeyPath)
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultModel
		log.Warn("OPENAI_MODEL not set, defaulting", "model", model)
	}

	cfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}

	log.Info("initializing completion client", "model", model)
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    log,
	}, nil
}

// Generate implements the Client interface.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	o.log.Debug("generating completion", "model", o.model, "prompt_bytes", len(prompt))

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		o.log.Error("completion call failed", "error", err)
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		o.log.Warn("completion returned no choices")
		return "", fmt.Errorf("completion returned no choices")
	}
	o.log.Debug("received completion", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
