package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePageMarkers_NoDelimiter(t *testing.T) {
	markers := DerivePageMarkers("just one page of text")
	require.Len(t, markers, 1)
	assert.Equal(t, 1, markers[0].PageNumber)
	assert.Equal(t, 0, markers[0].StartIndex)
	assert.Equal(t, len("just one page of text"), markers[0].EndIndex)
}

func TestDerivePageMarkers_MultiplePages(t *testing.T) {
	md := "page one\fpage two\fpage three"
	markers := DerivePageMarkers(md)
	require.Len(t, markers, 3)

	// Contiguous coverage of the whole markdown.
	assert.Equal(t, 0, markers[0].StartIndex)
	for i := 1; i < len(markers); i++ {
		assert.Equal(t, markers[i-1].EndIndex, markers[i].StartIndex)
		assert.Equal(t, i+1, markers[i].PageNumber)
	}
	assert.Equal(t, len(md), markers[len(markers)-1].EndIndex)

	assert.Equal(t, "page one", markers[0].PageText(md))
	assert.Equal(t, "page two", markers[1].PageText(md))
	assert.Equal(t, "page three", markers[2].PageText(md))
}

func TestDerivePageMarkers_TrailingDelimiter(t *testing.T) {
	md := "page one\f"
	markers := DerivePageMarkers(md)
	require.Len(t, markers, 1)
	assert.Equal(t, len(md), markers[0].EndIndex)
	assert.Equal(t, "page one", markers[0].PageText(md))
}

func TestDerivePageMarkers_Empty(t *testing.T) {
	markers := DerivePageMarkers("")
	require.Len(t, markers, 1)
	assert.Equal(t, 1, markers[0].PageNumber)
	assert.Equal(t, "", markers[0].PageText(""))
}
