package ai

import "strings"

// PageDelimiter separates pages in extracted markdown. Both the remote
// extraction service and the local parser emit a form feed between pages,
// the same convention pdftotext uses.
const PageDelimiter = "\f"

// DerivePageMarkers scans markdown for page delimiters and builds markers
// that cover the entire text contiguously; each delimiter is attributed to
// the page it ends. When no delimiter is present the whole text is page 1.
func DerivePageMarkers(markdown string) []PageMarker {
	if markdown == "" {
		return []PageMarker{{PageNumber: 1, StartIndex: 0, EndIndex: 0}}
	}

	var markers []PageMarker
	start := 0
	page := 1
	for {
		rel := strings.Index(markdown[start:], PageDelimiter)
		if rel < 0 {
			break
		}
		end := start + rel + len(PageDelimiter)
		markers = append(markers, PageMarker{PageNumber: page, StartIndex: start, EndIndex: end})
		start = end
		page++
	}

	if start < len(markdown) || len(markers) == 0 {
		markers = append(markers, PageMarker{PageNumber: page, StartIndex: start, EndIndex: len(markdown)})
	}
	return markers
}

// PageText returns the page's text with the trailing delimiter removed.
func (m PageMarker) PageText(markdown string) string {
	if m.StartIndex < 0 || m.EndIndex > len(markdown) || m.StartIndex > m.EndIndex {
		return ""
	}
	return strings.TrimSuffix(markdown[m.StartIndex:m.EndIndex], PageDelimiter)
}
