package chunker

import (
	"fmt"
	"strings"
)

// tableBlock is one markdown table lifted out of the page text and replaced
// by a placeholder token.
type tableBlock struct {
	placeholder string
	content     string
	summary     string
}

// makePlaceholder builds the substitution token for the nth table on a page.
// The token contains no whitespace or separators, so the splitter can never
// break it apart.
func makePlaceholder(n int) string {
	return fmt.Sprintf("<<TABLE_%d>>", n)
}

// isTableRow reports whether a line looks like a markdown table row.
func isTableRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") >= 2
}

// isSeparatorRow reports whether a line is the header/body divider of a
// markdown table (cells of dashes with optional alignment colons).
func isSeparatorRow(line string) bool {
	if !isTableRow(line) {
		return false
	}
	cells := splitTableRow(line)
	if len(cells) == 0 {
		return false
	}
	for _, cell := range cells {
		if !strings.Contains(cell, "-") {
			return false
		}
		for _, r := range cell {
			if r != '-' && r != ':' {
				return false
			}
		}
	}
	return true
}

// splitTableRow returns the trimmed cell values of a table row.
func splitTableRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")

	parts := strings.Split(trimmed, "|")
	cells := make([]string, 0, len(parts))
	for _, part := range parts {
		cells = append(cells, strings.TrimSpace(part))
	}
	return cells
}

// summarizeTable derives a short description from the table's header and
// body: column count, up to the first five column names, and row count.
func summarizeTable(headerCells []string, bodyRows int) string {
	names := headerCells
	if len(names) > 5 {
		names = names[:5]
	}
	return fmt.Sprintf("Table with %d columns (%s) and %d rows",
		len(headerCells), strings.Join(names, ", "), bodyRows)
}

// extractTables finds contiguous markdown-table blocks (header row, separator
// row, at least one body row) and replaces each with a placeholder token.
// It returns the substituted text and the lifted tables in document order.
func extractTables(text string) (string, []tableBlock) {
	lines := strings.Split(text, "\n")
	var out []string
	var tables []tableBlock

	for i := 0; i < len(lines); {
		if !isTableRow(lines[i]) || i+2 >= len(lines) ||
			!isSeparatorRow(lines[i+1]) || !isTableRow(lines[i+2]) || isSeparatorRow(lines[i+2]) {
			out = append(out, lines[i])
			i++
			continue
		}

		header := splitTableRow(lines[i])
		end := i + 2
		for end < len(lines) && isTableRow(lines[end]) {
			end++
		}

		block := tableBlock{
			placeholder: makePlaceholder(len(tables)),
			content:     strings.Join(lines[i:end], "\n"),
			summary:     summarizeTable(header, end-(i+2)),
		}
		tables = append(tables, block)
		out = append(out, block.placeholder)
		i = end
	}

	return strings.Join(out, "\n"), tables
}
