package postgres

// schema is the idempotent DDL for the pipeline's bookkeeping tables.
// Embeddings use the pgvector extension; the column is dimension-free so the
// embedding model can change without a migration.
const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
    id            UUID PRIMARY KEY,
    agency_id     UUID NOT NULL,
    storage_path  TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'uploaded',
    page_count    INTEGER NOT NULL DEFAULT 0,
    raw_text      TEXT NOT NULL DEFAULT '',
    document_type TEXT NOT NULL DEFAULT '',
    ai_tags       TEXT[] NOT NULL DEFAULT '{}',
    ai_summary    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS processing_jobs (
    id            UUID PRIMARY KEY,
    document_id   UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    agency_id     UUID NOT NULL,
    status        TEXT NOT NULL DEFAULT 'pending',
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ,
    error_message TEXT NOT NULL DEFAULT '',
    progress_data JSONB,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS processing_jobs_queue_idx
    ON processing_jobs (agency_id, status, created_at);

CREATE TABLE IF NOT EXISTS document_chunks (
    id                UUID PRIMARY KEY,
    document_id       UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    agency_id         UUID NOT NULL,
    content           TEXT NOT NULL,
    page_number       INTEGER NOT NULL,
    chunk_index       INTEGER NOT NULL,
    chunk_type        TEXT NOT NULL,
    summary           TEXT NOT NULL DEFAULT '',
    token_count       INTEGER NOT NULL DEFAULT 0,
    embedding         VECTOR,
    embedding_version TEXT NOT NULL DEFAULT '',
    UNIQUE (document_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS document_chunks_document_idx
    ON document_chunks (document_id);
`
