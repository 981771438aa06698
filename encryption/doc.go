// Package encryption seals data at rest with an AEAD cipher. The cookie jar
// uses it to protect persisted cookies.
//
// Keys are passphrases hashed with SHA-256 into 256-bit keys. The default
// cipher is ChaCha20-Poly1305; AES-256-GCM is available for hosts with AES
// hardware.
//
//	s, err := encryption.New("passphrase")
//	sealed, err := s.Seal(plaintext)
//	plaintext, err := s.Open(sealed)
package encryption
