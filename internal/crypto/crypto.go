package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// KeyKind selects which of the two configured keys an operation uses.
type KeyKind int

const (
	// KeyCookie encrypts browser cookie values.
	KeyCookie KeyKind = iota
	// KeyToken encrypts OAuth credentials stored in the database.
	KeyToken
)

// Service encrypts and decrypts short strings under one of two key roles.
//
// Both operations return the empty string instead of an error on blank
// input, a missing key, or (for Decrypt) tampered ciphertext. Callers treat
// an empty result as "value absent", which keeps the anonymous-fallback
// behavior of the auth flow uniform.
type Service struct {
	cookieGCM cipher.AEAD
	tokenGCM  cipher.AEAD
}

// NewService builds a Service from two hex-encoded 32-byte keys. Either key
// may be empty, in which case operations under that role yield empty strings.
func NewService(cookieKeyHex, tokenKeyHex string) (*Service, error) {
	cookieGCM, err := newGCM(cookieKeyHex)
	if err != nil {
		return nil, fmt.Errorf("cookie key: %w", err)
	}
	tokenGCM, err := newGCM(tokenKeyHex)
	if err != nil {
		return nil, fmt.Errorf("token key: %w", err)
	}
	return &Service{cookieGCM: cookieGCM, tokenGCM: tokenGCM}, nil
}

func newGCM(hexKey string) (cipher.AEAD, error) {
	if hexKey == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}

func (s *Service) gcm(kind KeyKind) cipher.AEAD {
	if kind == KeyToken {
		return s.tokenGCM
	}
	return s.cookieGCM
}

// Encrypt encrypts plaintext under the given key role. A fresh nonce is used
// per call, so repeated encryption of the same value yields different
// ciphertext. Returns "" on blank input or a missing key.
func (s *Service) Encrypt(plaintext string, kind KeyKind) string {
	if strings.TrimSpace(plaintext) == "" {
		return ""
	}

	gcm := s.gcm(kind)
	if gcm == nil {
		return ""
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return ""
	}

	// Seal appends the encrypted data to nonce, returning nonce || ciphertext || tag
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext)
}

// Decrypt performs authenticated decryption under the given key role.
// Returns "" on blank input, a missing key, or any authentication failure.
func (s *Service) Decrypt(ciphertext string, kind KeyKind) string {
	if strings.TrimSpace(ciphertext) == "" {
		return ""
	}

	gcm := s.gcm(kind)
	if gcm == nil {
		return ""
	}

	buffer, err := hex.DecodeString(ciphertext)
	if err != nil {
		return ""
	}

	nonceSize := gcm.NonceSize()
	if len(buffer) < nonceSize {
		return ""
	}

	nonce, cipherBytes := buffer[:nonceSize], buffer[nonceSize:]
	plainBytes, err := gcm.Open(nil, nonce, cipherBytes, nil)
	if err != nil {
		return ""
	}

	return string(plainBytes)
}
