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


// Package ai defines the external AI collaborator interfaces the ingestion
// pipeline depends on: text extraction, embedding generation and document
// tagging.
//
// The package itself contains no service calls, only the contracts and their
// shared types. Concrete implementations live in subpackages:
//
//   - ai/openai: embedder and tagger on OpenAI-compatible APIs
//   - ai/docparse: HTTP client for the hosted extraction service
//   - ai/local: offline PDF parser for development and tests
//   - ai/mock: configurable fakes for tests
//
// All implementations must be safe for concurrent use, and every call is
// bounded by the caller-supplied context deadline.
package ai
