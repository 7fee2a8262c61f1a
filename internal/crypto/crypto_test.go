package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 64 hex chars = 32 bytes = valid AES-256 key
const (
	testCookieKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testTokenKey  = "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(testCookieKey, testTokenKey)
	require.NoError(t, err)
	return svc
}

func TestNewService_ValidKeys(t *testing.T) {
	svc, err := NewService(testCookieKey, testTokenKey)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewService_EmptyKeysTolerated(t *testing.T) {
	svc, err := NewService("", "")
	require.NoError(t, err)

	assert.Empty(t, svc.Encrypt("value", KeyCookie))
	assert.Empty(t, svc.Encrypt("value", KeyToken))
	assert.Empty(t, svc.Decrypt("deadbeef", KeyCookie))
}

func TestNewService_InvalidHex(t *testing.T) {
	svc, err := NewService("zzzz", testTokenKey)
	assert.Error(t, err)
	assert.Nil(t, svc)
}

func TestNewService_WrongKeyLength(t *testing.T) {
	tests := []struct {
		name   string
		hexKey string
	}{
		{"too short (31 bytes)", testCookieKey[:62]},
		{"too long (33 bytes)", testCookieKey + "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.hexKey, "")
			assert.Error(t, err)
			assert.Nil(t, svc)
		})
	}
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	svc := newTestService(t)

	for _, kind := range []KeyKind{KeyCookie, KeyToken} {
		plaintext := "my-secret-token-12345"

		ciphertext := svc.Encrypt(plaintext, kind)
		assert.NotEmpty(t, ciphertext)
		assert.NotEqual(t, plaintext, ciphertext)

		assert.Equal(t, plaintext, svc.Decrypt(ciphertext, kind))
	}
}

func TestEncrypt_BlankInput(t *testing.T) {
	svc := newTestService(t)

	assert.Empty(t, svc.Encrypt("", KeyCookie))
	assert.Empty(t, svc.Encrypt("   ", KeyCookie))
}

func TestEncrypt_UniqueNonces(t *testing.T) {
	svc := newTestService(t)

	// Encrypting the same plaintext twice should produce different ciphertexts
	ct1 := svc.Encrypt("same-value", KeyCookie)
	ct2 := svc.Encrypt("same-value", KeyCookie)

	assert.NotEqual(t, ct1, ct2)
	assert.Equal(t, "same-value", svc.Decrypt(ct1, KeyCookie))
	assert.Equal(t, "same-value", svc.Decrypt(ct2, KeyCookie))
}

func TestEncrypt_KeysAreIndependent(t *testing.T) {
	svc := newTestService(t)

	ct1 := svc.Encrypt("same-value", KeyCookie)
	ct2 := svc.Encrypt("same-value", KeyToken)
	assert.NotEqual(t, ct1, ct2)

	// Cross-key decryption must fail closed, never recover the plaintext.
	assert.Empty(t, svc.Decrypt(ct1, KeyToken))
	assert.Empty(t, svc.Decrypt(ct2, KeyCookie))
}

func TestDecrypt_InvalidHex(t *testing.T) {
	svc := newTestService(t)
	assert.Empty(t, svc.Decrypt("not-valid-hex!!!", KeyCookie))
}

func TestDecrypt_TooShort(t *testing.T) {
	svc := newTestService(t)
	assert.Empty(t, svc.Decrypt("abcd", KeyCookie))
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	svc := newTestService(t)

	ciphertext := svc.Encrypt("secret", KeyToken)
	require.NotEmpty(t, ciphertext)

	// Flip a byte in the ciphertext (after the nonce)
	tampered := []byte(ciphertext)
	if tampered[len(tampered)-1] == 'f' {
		tampered[len(tampered)-1] = '0'
	} else {
		tampered[len(tampered)-1] = 'f'
	}
	assert.Empty(t, svc.Decrypt(string(tampered), KeyToken))
}
