// Copyright 2025 Coverdesk
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package docparse implements ai.DocumentParser against the hosted text
// extraction service's HTTP API.
package docparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/coverdesk/docpipe/ai"
)

// Client calls the extraction service. A single call uploads the file and
// blocks until the service returns markdown; the caller bounds the wait with
// a context deadline.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ai.DocumentParser = (*Client)(nil)

// parseResponse mirrors the service's JSON response body.
type parseResponse struct {
	Markdown  string `json:"markdown"`
	PageCount int    `json:"page_count"`
}

// errorResponse mirrors the service's JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// NewClient creates an extraction client from the AI config.
//
// Returns ai.DocumentParser interface to enforce abstraction.
func NewClient(config *ai.Config) (ai.DocumentParser, error) {
	if config.ParserURL == "" {
		return nil, fmt.Errorf("docparse: parser URL required")
	}
	return &Client{
		baseURL: config.ParserURL,
		apiKey:  config.ParserAPIKey,
		// Per-call deadlines come from the context; no client-level timeout
		// so the caller stays in control.
		httpClient: &http.Client{},
		logger:     slog.Default().With("component", "docparse"),
	}, nil
}

// Parse uploads the file and returns the extracted markdown with page
// markers derived from the service's page delimiters.
func (c *Client) Parse(ctx context.Context, file []byte, filename string, opts ai.ParseOptions) (*ai.ParseResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("docparse: build request: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return nil, fmt.Errorf("docparse: build request: %w", err)
	}
	if opts.DisableLayoutAnalysis {
		if err := writer.WriteField("disable_layout_analysis", "true"); err != nil {
			return nil, fmt.Errorf("docparse: build request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("docparse: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/parse", &body)
	if err != nil {
		return nil, fmt.Errorf("docparse: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("parse request", "filename", filename, "bytes", len(file),
		"disable_layout_analysis", opts.DisableLayoutAnalysis)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docparse: parse call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("docparse: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Surface the service's message so the adapter can classify it
		// (page-dimension signatures, unsupported formats, ...).
		var svcErr errorResponse
		if json.Unmarshal(raw, &svcErr) == nil && svcErr.Error != "" {
			return nil, fmt.Errorf("docparse: service returned %d: %s", resp.StatusCode, svcErr.Error)
		}
		return nil, fmt.Errorf("docparse: service returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed parseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("docparse: decode response: %w", err)
	}

	markers := ai.DerivePageMarkers(parsed.Markdown)
	pageCount := parsed.PageCount
	if pageCount <= 0 {
		pageCount = len(markers)
	}

	c.logger.Debug("parse response", "filename", filename,
		"markdown_bytes", len(parsed.Markdown), "pages", pageCount)

	return &ai.ParseResult{
		Markdown:    parsed.Markdown,
		PageMarkers: markers,
		PageCount:   pageCount,
	}, nil
}
