package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrCiphertextTooShort is returned when sealed data is shorter than a nonce.
var ErrCiphertextTooShort = errors.New("encryption: ciphertext too short")

// Sealer encrypts and authenticates byte slices.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Algorithm represents supported encryption algorithms.
type Algorithm string

const (
	// AlgorithmChaCha20 is ChaCha20-Poly1305 (default).
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
	// AlgorithmAESGCM is AES-256-GCM.
	AlgorithmAESGCM Algorithm = "aes-256-gcm"
)

// Option configures the sealer.
type Option func(*options)

type options struct {
	algorithm Algorithm
}

// WithAlgorithm selects the cipher.
func WithAlgorithm(alg Algorithm) Option {
	return func(o *options) { o.algorithm = alg }
}

// New creates a Sealer keyed by passphrase.
func New(passphrase string, opts ...Option) (Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("encryption: empty passphrase")
	}
	o := &options{algorithm: AlgorithmChaCha20}
	for _, opt := range opts {
		opt(o)
	}

	key := sha256.Sum256([]byte(passphrase))
	var (
		aead cipher.AEAD
		err  error
	)
	switch o.algorithm {
	case AlgorithmChaCha20:
		aead, err = chacha20poly1305.New(key[:])
	case AlgorithmAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key[:])
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	default:
		return nil, fmt.Errorf("encryption: unknown algorithm %q", o.algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("encryption: create %s: %w", o.algorithm, err)
	}
	return &aeadSealer{aead: aead}, nil
}

// aeadSealer prefixes every ciphertext with its random nonce.
type aeadSealer struct {
	aead cipher.AEAD
}

func (s *aeadSealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("encryption: generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *aeadSealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrCiphertextTooShort
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("encryption: open: %w", err)
	}
	return plaintext, nil
}
