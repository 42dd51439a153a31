package ai

// IndexedEmbedding pairs an embedding vector with the index of the input it
// was generated for. Services may return items in any order.
type IndexedEmbedding struct {
	Index  int
	Vector []float32
}

// ParseOptions controls a single parse call.
type ParseOptions struct {
	// DisableLayoutAnalysis turns off the parser's page-geometry heuristic.
	// Some PDF encoders emit page boxes the heuristic cannot resolve; this is
	// the documented escape hatch for those files.
	DisableLayoutAnalysis bool
}

// PageMarker locates one page's text within the extracted markdown.
// Markers cover the markdown contiguously: each page's range runs up to the
// start of the next page's range.
type PageMarker struct {
	PageNumber int
	StartIndex int
	EndIndex   int
}

// ParseResult is the output of a successful extraction call.
type ParseResult struct {
	Markdown    string
	PageMarkers []PageMarker
	PageCount   int
}

// TagResult is the output of document tagging.
type TagResult struct {
	DocumentType string
	Tags         []string
	Summary      string
}

// DocumentTypes lists the document categories the tagger may assign.
// Anything else is mapped to "other".
var DocumentTypes = []string{
	"policy",
	"quote",
	"application",
	"loss_run",
	"acord_form",
	"certificate",
	"endorsement",
	"invoice",
	"correspondence",
	"other",
}
