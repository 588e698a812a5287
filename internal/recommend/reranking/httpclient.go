// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package reranking

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes caps the collaborator response body. A valid
// ordering is a short ID list; anything larger is garbage.
const maxResponseBytes = 1 << 20

// HTTPClient posts rerank payloads to an external endpoint. The
// adapter's timeout arrives through the request context, so the
// underlying http.Client carries no timeout of its own.
type HTTPClient struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPClient builds a client for the given endpoint. An empty API
// key sends no Authorization header.
func NewHTTPClient(url, apiKey string) *HTTPClient {
	return &HTTPClient{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{},
	}
}

// Rerank implements Client.
func (c *HTTPClient) Rerank(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read rerank response: %w", err)
	}
	return body, nil
}
