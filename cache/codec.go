package cache

import (
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// marshalVector serializes an embedding vector as a varint length followed by
// raw little-endian float32 values.
func marshalVector(vector []float32) []byte {
	size := varint.Int.Size(len(vector))
	for _, v := range vector {
		size += raw.Float32.Size(v)
	}

	buf := make([]byte, size)
	n := varint.Int.Marshal(len(vector), buf)
	for _, v := range vector {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	return buf
}

// unmarshalVector deserializes an embedding vector written by marshalVector.
func unmarshalVector(data []byte) ([]float32, error) {
	length, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	vector := make([]float32, 0, length)
	for i := 0; i < length; i++ {
		v, read, err := raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return nil, err
		}
		n += read
		vector = append(vector, v)
	}
	return vector, nil
}
