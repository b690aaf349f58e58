package molscene

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressBlockRoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("molscene snapshot section "), 512)
	incompressible := make([]byte, 4096)
	_, err := rand.Read(incompressible)
	require.NoError(t, err)

	payloads := map[string][]byte{
		"compressible":   compressible,
		"incompressible": incompressible,
		"empty":          {},
	}

	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		for name, payload := range payloads {
			t.Run(compression.String()+"/"+name, func(t *testing.T) {
				block, err := compressBlock(payload, compression)
				require.NoError(t, err)

				got, err := decompressBlock(block, compression)
				require.NoError(t, err)
				assert.Equal(t, payload, got)
			})
		}
	}
}

func TestCompressBlockShrinks(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 4096)

	for _, compression := range []Compression{CompressionLZ4, CompressionZSTD} {
		block, err := compressBlock(payload, compression)
		require.NoError(t, err)
		assert.Less(t, len(block), len(payload), compression.String())
	}
}

func TestDecompressBlockErrors(t *testing.T) {
	_, err := decompressBlock([]byte{1, 2, 3}, CompressionLZ4)
	assert.Error(t, err)

	block, err := compressBlock(bytes.Repeat([]byte("x"), 1024), CompressionLZ4)
	require.NoError(t, err)
	_, err = decompressBlock(block[:len(block)-4], CompressionLZ4)
	assert.Error(t, err)
}
