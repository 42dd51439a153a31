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

// Package server exposes the pipeline's trigger interface over HTTP and
// streams job progress over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/ingestion"
	"github.com/coverdesk/docpipe/storage"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server handles trigger requests and job/chunk lookups.
type Server struct {
	pipeline   *ingestion.Pipeline
	store      storage.Store
	hub        *Hub
	httpServer *http.Server
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewServer creates the HTTP server. The hub may be nil when progress
// streaming is disabled.
func NewServer(addr string, pipeline *ingestion.Pipeline, store storage.Store, hub *Hub) *Server {
	s := &Server{
		pipeline: pipeline,
		store:    store,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: slog.Default().With("component", "server"),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/ingest", s.handleIngest)
	mux.HandleFunc("GET /v1/jobs/{id}", s.handleJob)
	mux.HandleFunc("GET /v1/documents/{id}/chunks", s.handleChunks)
	if s.hub != nil {
		mux.HandleFunc("GET /v1/ws", s.handleWebSocket)
	}
	return mux
}

// ListenAndServe runs the server until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains the HTTP server and stops the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

// handleIngest accepts a trigger request and runs the agency's oldest
// pending job synchronously, returning the run outcome.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestion.TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AgencyID == uuid.Nil {
		http.Error(w, "agencyId is required", http.StatusBadRequest)
		return
	}

	result := s.pipeline.Trigger(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

// jobResponse is the wire representation of a processing job.
type jobResponse struct {
	ID           uuid.UUID          `json:"id"`
	DocumentID   uuid.UUID          `json:"documentId"`
	AgencyID     uuid.UUID          `json:"agencyId"`
	Status       core.JobStatus     `json:"status"`
	StartedAt    *time.Time         `json:"startedAt,omitempty"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	Progress     *core.ProgressData `json:"progress,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		s.logger.Error("job lookup failed", "job_id", id, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, jobResponse{
		ID:           job.ID,
		DocumentID:   job.DocumentID,
		AgencyID:     job.AgencyID,
		Status:       job.Status,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		ErrorMessage: job.ErrorMessage,
		Progress:     job.Progress,
		CreatedAt:    job.CreatedAt,
	})
}

// chunkResponse is the wire representation of a chunk; embeddings are
// internal and never returned.
type chunkResponse struct {
	ID         uuid.UUID      `json:"id"`
	Content    string         `json:"content"`
	PageNumber int            `json:"pageNumber"`
	ChunkIndex int            `json:"chunkIndex"`
	ChunkType  core.ChunkType `json:"chunkType"`
	Summary    string         `json:"summary,omitempty"`
	TokenCount int            `json:"tokenCount"`
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}

	chunks, err := s.store.ListChunks(r.Context(), id)
	if err != nil {
		s.logger.Error("chunk lookup failed", "document_id", id, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]chunkResponse, len(chunks))
	for i, chunk := range chunks {
		out[i] = chunkResponse{
			ID:         chunk.ID,
			Content:    chunk.Content,
			PageNumber: chunk.PageNumber,
			ChunkIndex: chunk.ChunkIndex,
			ChunkType:  chunk.ChunkType,
			Summary:    chunk.Summary,
			TokenCount: chunk.TokenCount,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleWebSocket upgrades the connection and attaches it to the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	s.hub.RegisterClient(conn)

	// Drain client reads; disconnect tears the registration down.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.UnregisterClient(conn)
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
