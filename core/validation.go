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

import (
	"fmt"

	"github.com/google/uuid"
)

// jobTransitions enumerates the allowed job status transitions.
// Pending jobs may only start or be administratively failed (reaper);
// terminal states never transition again.
var jobTransitions = map[JobStatus][]JobStatus{
	JobPending:    {JobProcessing, JobFailed},
	JobProcessing: {JobCompleted, JobFailed},
	JobCompleted:  {},
	JobFailed:     {},
}

// ValidateJobTransition returns ErrInvalidTransition if from -> to is not an
// allowed job status transition.
func ValidateJobTransition(from, to JobStatus) error {
	for _, allowed := range jobTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Validate checks the invariants a chunk must satisfy before it is
// persisted.
func (c *DocumentChunk) Validate() error {
	if c.DocumentID == uuid.Nil {
		return ErrMissingDocumentID
	}
	if c.AgencyID == uuid.Nil {
		return ErrMissingAgencyID
	}
	if c.Content == "" {
		return ErrEmptyContent
	}
	if c.ChunkIndex < 0 {
		return ErrInvalidChunkIndex
	}
	if c.ChunkType != ChunkText && c.ChunkType != ChunkTable {
		return fmt.Errorf("%w: %q", ErrInvalidChunkType, c.ChunkType)
	}
	return nil
}
