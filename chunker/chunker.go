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

// Package chunker splits extracted document text into retrieval-sized
// chunks. Markdown tables are detected first and kept atomic: a table is
// never split across chunks, never receives overlap from its neighbors,
// and carries a short rule-derived summary instead. Plain text is split
// recursively on progressively finer separators and adjacent text chunks
// share a small overlap so sentences cut at a boundary remain retrievable.
//
// The chunker is deterministic and performs no I/O: the same pages always
// produce byte-identical chunk boundaries.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/coverdesk/docpipe/core"
)

const (
	// defaultTargetChars approximates a 500-token chunk at 4 chars/token.
	defaultTargetChars = 2000
	// defaultOverlapChars is the overlap carried between adjacent text chunks.
	defaultOverlapChars = 200
)

// Config holds chunker tuning parameters.
type Config struct {
	// TargetChars is the character budget per chunk. Table chunks may
	// exceed it; tables are never split.
	TargetChars int

	// OverlapChars is the approximate overlap prepended to a text chunk
	// from its text predecessor.
	OverlapChars int

	// TrustPageNumbers keeps the page numbers supplied by the extraction
	// service. When false (the default), pages are renumbered by position,
	// which protects against services that emit missing or out-of-order
	// numbers.
	TrustPageNumbers bool
}

// Option configures a Chunker.
type Option func(*Config)

// WithTargetChars overrides the per-chunk character budget.
func WithTargetChars(n int) Option {
	return func(c *Config) { c.TargetChars = n }
}

// WithOverlapChars overrides the overlap size.
func WithOverlapChars(n int) Option {
	return func(c *Config) { c.OverlapChars = n }
}

// WithTrustPageNumbers keeps the extraction service's page numbers instead
// of renumbering by position.
func WithTrustPageNumbers() Option {
	return func(c *Config) { c.TrustPageNumbers = true }
}

// Chunker splits pages of document text into chunks.
type Chunker struct {
	config Config
}

// New creates a chunker with the given options applied over defaults.
func New(opts ...Option) *Chunker {
	config := Config{
		TargetChars:  defaultTargetChars,
		OverlapChars: defaultOverlapChars,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Chunker{config: config}
}

// rawChunk is a chunk before overlap application and indexing.
type rawChunk struct {
	content    string
	pageNumber int
	isTable    bool
	summary    string
}

// ChunkPages splits the document's pages into ordered chunks. ChunkIndex is
// a running counter across all pages; an empty page contributes nothing.
// Only Content, PageNumber, ChunkIndex, ChunkType, Summary and TokenCount
// are populated; identity and embedding fields are the caller's concern.
func (c *Chunker) ChunkPages(pages []core.Page) []*core.DocumentChunk {
	var raw []rawChunk
	for i, page := range pages {
		number := i + 1
		if c.config.TrustPageNumbers && page.Number > 0 {
			number = page.Number
		}
		raw = append(raw, c.chunkPage(page.Content, number)...)
	}

	chunks := make([]*core.DocumentChunk, 0, len(raw))
	for i, rc := range raw {
		content := rc.content

		// Overlap only flows between adjacent text chunks. Tables stay
		// self-contained on both sides.
		if i > 0 && !rc.isTable && !raw[i-1].isTable {
			tail := overlapTail(raw[i-1].content, c.config.OverlapChars)
			if tail != "" && !strings.HasPrefix(content, tail) {
				content = tail + "\n" + content
			}
		}

		chunkType := core.ChunkText
		if rc.isTable {
			chunkType = core.ChunkTable
		}

		chunks = append(chunks, &core.DocumentChunk{
			Content:    content,
			PageNumber: rc.pageNumber,
			ChunkIndex: i,
			ChunkType:  chunkType,
			Summary:    rc.summary,
			TokenCount: tokenCount(content),
		})
	}
	return chunks
}

// chunkPage splits one page's text into raw chunks: tables out first, then
// recursive splitting, then segment-by-segment emission around placeholders.
func (c *Chunker) chunkPage(text string, pageNumber int) []rawChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	substituted, tables := extractTables(text)
	byPlaceholder := make(map[string]tableBlock, len(tables))
	for _, table := range tables {
		byPlaceholder[table.placeholder] = table
	}

	var chunks []rawChunk
	emitText := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		chunks = append(chunks, rawChunk{content: s, pageNumber: pageNumber})
	}

	for _, segment := range splitRecursive(substituted, c.config.TargetChars, 0) {
		rest := segment
		for {
			placeholder, start := findPlaceholder(rest, byPlaceholder)
			if start < 0 {
				emitText(rest)
				break
			}

			emitText(rest[:start])
			table := byPlaceholder[placeholder]
			chunks = append(chunks, rawChunk{
				content:    table.content,
				pageNumber: pageNumber,
				isTable:    true,
				summary:    table.summary,
			})
			rest = rest[start+len(placeholder):]
		}
	}
	return chunks
}

// findPlaceholder locates the first known table placeholder in s, returning
// the placeholder and its byte offset, or -1 when none is present.
func findPlaceholder(s string, tables map[string]tableBlock) (string, int) {
	best := -1
	var found string
	for placeholder := range tables {
		if idx := strings.Index(s, placeholder); idx >= 0 && (best < 0 || idx < best) {
			best = idx
			found = placeholder
		}
	}
	return found, best
}

// tokenCount approximates the token length of content at 4 chars/token.
func tokenCount(content string) int {
	return (utf8.RuneCountInString(content) + 3) / 4
}
