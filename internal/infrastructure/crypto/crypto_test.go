package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "01234567890123456789012345678901" // 32 bytes for AES-256

func TestNewEncryptor_InvalidKeyLength(t *testing.T) {
	for _, key := range []string{"", "too-short", testKey + "x"} {
		_, err := NewEncryptor(key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"access token", "access-sandbox-8ab976e6-64bc-4b38-98f7-731e7a349970"},
		{"unicode", "conta corrente ☕"},
		{"long", strings.Repeat("access-", 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, tt.plaintext, ciphertext)
			assert.NotContains(t, ciphertext, tt.plaintext)

			decrypted, err := enc.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestEncryptDecrypt_EmptyString(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	ciphertext, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ciphertext)

	plaintext, err := enc.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plaintext)
}

func TestEncrypt_DifferentCiphertexts(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	c1, _ := enc.Encrypt("same text")
	c2, _ := enc.Encrypt("same text")

	assert.NotEqual(t, c1, c2, "nonce should differ between calls")
}

func TestDecrypt_Rejects(t *testing.T) {
	enc, _ := NewEncryptor(testKey)
	ciphertext, _ := enc.Encrypt("secret data")

	tests := []struct {
		name  string
		input string
	}{
		{"tampered", ciphertext[:len(ciphertext)-4] + "AAAA"},
		{"invalid base64", "not-valid-base64!!!"},
		{"shorter than nonce", "YQ=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Decrypt(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc1, _ := NewEncryptor(testKey)
	enc2, _ := NewEncryptor("98765432109876543210987654321098")

	ciphertext, _ := enc1.Encrypt("encrypted with key1")

	_, err := enc2.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestNewEncryptorFromSecret_Deterministic(t *testing.T) {
	enc1, err := NewEncryptorFromSecret("session secret")
	require.NoError(t, err)
	enc2, err := NewEncryptorFromSecret("session secret")
	require.NoError(t, err)
	other, err := NewEncryptorFromSecret("another secret")
	require.NoError(t, err)

	ciphertext, err := enc1.Encrypt("access-xyz")
	require.NoError(t, err)

	plaintext, err := enc2.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "access-xyz", plaintext)

	_, err = other.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestNewEncryptorFromSecret_Empty(t *testing.T) {
	_, err := NewEncryptorFromSecret("")
	assert.Error(t, err)
}

func TestNewRandomEncryptor(t *testing.T) {
	enc1, err := NewRandomEncryptor()
	require.NoError(t, err)
	enc2, err := NewRandomEncryptor()
	require.NoError(t, err)

	ciphertext, _ := enc1.Encrypt("access-xyz")
	_, err = enc2.Decrypt(ciphertext)
	assert.Error(t, err, "independent random keys must not be interchangeable")
}
