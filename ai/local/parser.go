// Package local implements ai.DocumentParser with an in-process PDF text
// extractor. It exists for development and air-gapped test environments; the
// hosted extraction service (ai/docparse) produces far better markdown.
package local

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/coverdesk/docpipe/ai"
	"github.com/ledongthuc/pdf"
)

// Parser extracts plain text from PDF bytes page by page.
type Parser struct {
	logger *slog.Logger
}

var _ ai.DocumentParser = (*Parser)(nil)

// NewParser creates a local PDF parser.
//
// Returns ai.DocumentParser interface to enforce abstraction.
func NewParser() ai.DocumentParser {
	return &Parser{
		logger: slog.Default().With("component", "local-parser"),
	}
}

// Parse extracts text from a PDF. Non-PDF files are rejected as unsupported.
// Layout options are ignored; the local extractor has no layout pass.
func (p *Parser) Parse(ctx context.Context, file []byte, filename string, opts ai.ParseOptions) (*ai.ParseResult, error) {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".pdf" {
		return nil, fmt.Errorf("local parser: unsupported file type %q", ext)
	}

	reader, err := pdf.NewReader(bytes.NewReader(file), int64(len(file)))
	if err != nil {
		return nil, fmt.Errorf("local parser: open pdf: %w", err)
	}

	totalPages := reader.NumPage()
	pages := make([]string, 0, totalPages)
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("local parser: extract page %d: %w", pageIndex, err)
		}
		pages = append(pages, text)
	}

	markdown := strings.Join(pages, ai.PageDelimiter)
	markers := ai.DerivePageMarkers(markdown)

	p.logger.Debug("extracted pdf", "filename", filename, "pages", totalPages,
		"bytes", len(markdown))

	return &ai.ParseResult{
		Markdown:    markdown,
		PageMarkers: markers,
		PageCount:   totalPages,
	}, nil
}
