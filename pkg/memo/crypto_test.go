package memo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptBodyProducesHexIVAndBase64Ciphertext(t *testing.T) {
	ciphertext, ivHex, err := encryptBody([]byte("hello world"), "0123456789abcdef")
	require.NoError(t, err)

	assert.Len(t, ivHex, 32)
	assert.NotEmpty(t, ciphertext)
}
