package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJobTransition(t *testing.T) {
	allowed := []struct{ from, to JobStatus }{
		{JobPending, JobProcessing},
		{JobPending, JobFailed},
		{JobProcessing, JobCompleted},
		{JobProcessing, JobFailed},
	}
	for _, tt := range allowed {
		assert.NoError(t, ValidateJobTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	denied := []struct{ from, to JobStatus }{
		{JobPending, JobCompleted},
		{JobCompleted, JobProcessing},
		{JobCompleted, JobFailed},
		{JobFailed, JobPending},
		{JobFailed, JobProcessing},
		{JobProcessing, JobPending},
	}
	for _, tt := range denied {
		err := ValidateJobTransition(tt.from, tt.to)
		require.Error(t, err, "%s -> %s", tt.from, tt.to)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
}

func TestChunkValidate(t *testing.T) {
	valid := DocumentChunk{
		DocumentID: uuid.New(),
		AgencyID:   uuid.New(),
		Content:    "some text",
		ChunkIndex: 0,
		ChunkType:  ChunkText,
	}
	assert.NoError(t, valid.Validate())

	table := valid
	table.ChunkType = ChunkTable
	table.Summary = "Table with 2 columns and 3 rows"
	assert.NoError(t, table.Validate())

	noContent := valid
	noContent.Content = ""
	assert.ErrorIs(t, noContent.Validate(), ErrEmptyContent)

	badIndex := valid
	badIndex.ChunkIndex = -1
	assert.ErrorIs(t, badIndex.Validate(), ErrInvalidChunkIndex)

	badType := valid
	badType.ChunkType = ChunkType("image")
	assert.ErrorIs(t, badType.Validate(), ErrInvalidChunkType)

	noDoc := valid
	noDoc.DocumentID = uuid.Nil
	assert.ErrorIs(t, noDoc.Validate(), ErrMissingDocumentID)

	noAgency := valid
	noAgency.AgencyID = uuid.Nil
	assert.ErrorIs(t, noAgency.Validate(), ErrMissingAgencyID)
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobProcessing.Terminal())
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
}
