package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type model struct {
	Name string `json:"name"`
}

func TestJSONEncodeIsCompact(t *testing.T) {
	data, err := JSON{}.Encode(model{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, string(data))

	data, err = JSON{}.Encode("line\nbreak")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\n")
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := JSON{}.Encode(model{Name: "some-value"})
	require.NoError(t, err)

	var out model
	require.NoError(t, JSON{}.Decode(data, &out))
	assert.Equal(t, model{Name: "some-value"}, out)
}

func TestJSONEncodeError(t *testing.T) {
	_, err := JSON{}.Encode(math.Inf(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodec))

	var codecErr *CodecError
	require.ErrorAs(t, err, &codecErr)
	assert.Equal(t, "encode", codecErr.Op)
}

func TestJSONDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"name":`},
		{"type mismatch", `"just a string"`},
		{"trailing data", `{"name":"x"} {}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out model
			err := JSON{}.Decode([]byte(tt.data), &out)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCodec)

			var codecErr *CodecError
			require.ErrorAs(t, err, &codecErr)
			assert.Equal(t, "decode", codecErr.Op)
		})
	}
}
