package memo

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/mkixbridge/bridge/pkg/mkerr"
)

// encryptBody AES-CBC encrypts plaintext under key (16/24/32 bytes) with a
// fresh random IV, PKCS7-padding the plaintext to the cipher's block size.
// Returns the base64 ciphertext and the hex-encoded IV.
func encryptBody(plaintext []byte, key string) (ciphertextB64, ivHex string, err error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", "", fmt.Errorf("%w: creating AES cipher: %v", mkerr.ErrCrypto, err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", "", fmt.Errorf("%w: generating IV: %v", mkerr.ErrCrypto, err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext), hex.EncodeToString(iv), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

// DecryptBody reverses encryptBody: base64-decodes ciphertext, hex-decodes
// ivHex, AES-CBC decrypts under key, and strips the PKCS7 padding.
func DecryptBody(ciphertextB64, ivHex, key string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: decoding ciphertext: %v", mkerr.ErrCrypto, err)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("%w: decoding iv: %v", mkerr.ErrCrypto, err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: iv must be %d bytes", mkerr.ErrCrypto, aes.BlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not block-aligned", mkerr.ErrCrypto)
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: creating AES cipher: %v", mkerr.ErrCrypto, err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", mkerr.ErrCrypto)
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", mkerr.ErrCrypto)
	}
	return data[:len(data)-padding], nil
}
