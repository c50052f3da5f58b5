package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize             = 32
	passphraseSaltSize  = 16
	passphraseIteration = 100000
)

// EncryptionManager seals backup artifacts with AES-256-GCM. With a
// passphrase key source every artifact carries its own PBKDF2 salt in front
// of the nonce.
type EncryptionManager struct {
	config *EncryptionConfig
}

// NewEncryptionManager creates a new encryption manager
func NewEncryptionManager(config *EncryptionConfig) *EncryptionManager {
	return &EncryptionManager{
		config: config,
	}
}

// Encrypt encrypts data using AES-256-GCM
func (em *EncryptionManager) Encrypt(data []byte) ([]byte, error) {
	if !em.IsEnabled() {
		return data, nil
	}

	var prefix []byte
	var key []byte
	if em.config.KeySource == KeySourcePassphrase {
		salt := make([]byte, passphraseSaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, NewEncryptionError("failed to generate salt", err)
		}
		passphrase, err := em.config.GetPassphrase()
		if err != nil {
			return nil, NewEncryptionError("failed to get passphrase", err)
		}
		key = DeriveKey(passphrase, salt)
		prefix = salt
	} else {
		var err error
		key, err = em.config.GetEncryptionKey()
		if err != nil {
			return nil, NewEncryptionError("failed to get encryption key", err)
		}
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, NewEncryptionError("failed to generate nonce", err)
	}

	out := append(prefix, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// Decrypt decrypts data using AES-256-GCM
func (em *EncryptionManager) Decrypt(encryptedData []byte) ([]byte, error) {
	if !em.IsEnabled() {
		return nil, NewEncryptionError("artifact is encrypted but encryption is not configured", nil)
	}

	var key []byte
	if em.config.KeySource == KeySourcePassphrase {
		if len(encryptedData) < passphraseSaltSize {
			return nil, NewEncryptionError("encrypted data too short", nil)
		}
		passphrase, err := em.config.GetPassphrase()
		if err != nil {
			return nil, NewEncryptionError("failed to get passphrase", err)
		}
		key = DeriveKey(passphrase, encryptedData[:passphraseSaltSize])
		encryptedData = encryptedData[passphraseSaltSize:]
	} else {
		var err error
		key, err = em.config.GetEncryptionKey()
		if err != nil {
			return nil, NewEncryptionError("failed to get encryption key", err)
		}
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(encryptedData) < nonceSize {
		return nil, NewEncryptionError("encrypted data too short", nil)
	}

	nonce, ciphertext := encryptedData[:nonceSize], encryptedData[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, NewEncryptionError("failed to decrypt data", err)
	}

	return plaintext, nil
}

// IsEnabled returns whether encryption is enabled
func (em *EncryptionManager) IsEnabled() bool {
	return em.config != nil && em.config.Enabled
}

// Algorithm returns the encryption algorithm being used
func (em *EncryptionManager) Algorithm() string {
	if !em.IsEnabled() {
		return "NONE"
	}
	return "AES-256-GCM"
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewEncryptionError("failed to create AES cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM cipher", err)
	}
	return gcm, nil
}

// DeriveKey derives an AES-256 key from a passphrase with PBKDF2-SHA256
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, passphraseIteration, keySize, sha256.New)
}

// GenerateKey generates a new random 256-bit key
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, NewEncryptionError("failed to generate encryption key", err)
	}
	return key, nil
}

// SaveKeyToFile writes a key file readable only by the owner
func SaveKeyToFile(key []byte, path string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := os.WriteFile(path, key, 0600); err != nil {
		return NewEncryptionError("failed to save key to file", err)
	}
	return nil
}

// ValidateKey rejects keys of the wrong size and trivially weak keys
func ValidateKey(key []byte) error {
	if len(key) != keySize {
		return NewEncryptionError("key must be 32 bytes for AES-256", nil)
	}

	allZeros := true
	allOnes := true
	for _, b := range key {
		if b != 0 {
			allZeros = false
		}
		if b != 0xFF {
			allOnes = false
		}
	}

	if allZeros {
		return NewEncryptionError("key cannot be all zeros", nil)
	}
	if allOnes {
		return NewEncryptionError("key cannot be all ones", nil)
	}

	return nil
}
