package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{},
		{0},
		{0.1, -0.2, 0.3},
		{1.5e-10, 3.14159, -2.71828},
	}

	for _, v := range vectors {
		decoded, err := DecodeVector(EncodeVector(v))
		require.NoError(t, err)
		require.Len(t, decoded, len(v))
		for i := range v {
			assert.InDelta(t, v[i], decoded[i], 1e-6)
		}
	}
}

func TestEncodeVector_Format(t *testing.T) {
	assert.Equal(t, "[1,2,3]", EncodeVector([]float32{1, 2, 3}))
	assert.Equal(t, "[]", EncodeVector(nil))
}

func TestDecodeVector_Invalid(t *testing.T) {
	invalid := []string{"", "1,2,3", "[1,2", "[a,b]", "{1,2}"}
	for _, s := range invalid {
		_, err := DecodeVector(s)
		assert.ErrorIs(t, err, ErrInvalidVector, "input %q", s)
	}
}

func TestDecodeVector_Whitespace(t *testing.T) {
	v, err := DecodeVector(" [0.5, -0.5] ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5}, v)
}
