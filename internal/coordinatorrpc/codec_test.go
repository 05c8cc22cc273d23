package coordinatorrpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestJSONCodec_RoundTrip(t *testing.T) {
	codec := encoding.GetCodec(codecName)
	require.NotNil(t, codec, "codec must self-register via init()")

	in := &GetStageResponse{Name: "build", Argv: []string{"go", "build"}, LogPath: "a.log", MemoryGB: 2, CPUSlots: 1}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	out := new(GetStageResponse)
	require.NoError(t, codec.Unmarshal(data, out))
	assert.Equal(t, in, out)
}

func TestJSONCodec_Name(t *testing.T) {
	assert.Equal(t, "json", jsonCodec{}.Name())
}
