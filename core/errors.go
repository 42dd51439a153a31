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


package core

import "errors"

// Domain validation errors
var (
	// ErrEmptyContent indicates a chunk with no content.
	ErrEmptyContent = errors.New("chunk content cannot be empty")

	// ErrInvalidChunkIndex indicates a negative chunk index.
	ErrInvalidChunkIndex = errors.New("chunk index cannot be negative")

	// ErrInvalidChunkType indicates an unrecognized chunk type.
	ErrInvalidChunkType = errors.New("invalid chunk type")

	// ErrMissingDocumentID indicates a chunk or job without a parent document.
	ErrMissingDocumentID = errors.New("document id is required")

	// ErrMissingAgencyID indicates a record without a tenant.
	ErrMissingAgencyID = errors.New("agency id is required")

	// ErrInvalidTransition indicates a disallowed job status transition.
	ErrInvalidTransition = errors.New("invalid job status transition")
)
