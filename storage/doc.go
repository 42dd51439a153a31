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


// Package storage provides the storage abstraction layer for docpipe.
//
// It defines the repository interfaces that decouple the pipeline from the
// backing store and lets backends be used interchangeably:
//
//   - storage/postgres: the production backend on pgx. The queue claim is a
//     single UPDATE over a SELECT ... FOR UPDATE SKIP LOCKED subquery, which
//     is the mutual-exclusion primitive giving one-job-per-tenant semantics
//     without an external lock service.
//   - storage/memory: an in-process backend for tests and single-process
//     development.
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.Store interface to enforce
// abstraction and keep callers swappable between backends:
//
//	store, err := postgres.Open(ctx, dsn)  // returns storage.Store
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access from
// multiple goroutines; the queue operations in particular must stay correct
// under concurrent claim attempts across processes.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
