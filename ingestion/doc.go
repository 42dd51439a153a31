// Package ingestion orchestrates the document processing pipeline.
//
// The Pipeline type drives one document through its stages:
//   - Downloading the uploaded file from blob storage
//   - Parsing it into markdown with page markers
//   - Chunking the text with table-aware handling and overlap
//   - Tagging the document (optional, advisory)
//   - Generating embeddings in batches
//   - Persisting all chunks transactionally
//
// Stages run strictly sequentially; only embedding batches may be pipelined.
// A failure at any stage routes to a single handler that marks the document
// and job failed with a user-facing message, and the next queued job for the
// agency is always triggered so one bad file never blocks a tenant's queue.
package ingestion
