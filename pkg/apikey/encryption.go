package apikey

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"cognichoir/pkg/utils"
)

const (
	// encryptedPrefix marks a stored value as sealed. Values without it are
	// read back as plaintext, so files written before a master password was
	// set stay loadable.
	encryptedPrefix = "ENC:"

	saltSize         = 16
	keySize          = 32
	pbkdf2Iterations = 100000
)

var (
	// ErrEmptyPassword is returned when a master password is blank.
	ErrEmptyPassword = errors.New("master password cannot be empty")

	// ErrDecryptFailed is returned when a sealed value cannot be opened,
	// either because the key is wrong or the data was tampered with.
	ErrDecryptFailed = errors.New("decryption failed")
)

// EncryptionService seals fallback credential values with a key derived
// from the master password. AES-256-GCM over a PBKDF2-SHA256 derived key;
// the key-derivation salt persists in encryption_salt.json beside the data
// it protects and survives password changes.
type EncryptionService struct {
	saltPath string
	aead     cipher.AEAD
}

// NewEncryptionService derives the sealing key from masterPassword and the
// persisted salt, creating a fresh salt on first use.
func NewEncryptionService(dataDir, masterPassword string) (*EncryptionService, error) {
	if masterPassword == "" {
		return nil, ErrEmptyPassword
	}
	s := &EncryptionService{saltPath: filepath.Join(dataDir, "encryption_salt.json")}
	salt, err := s.loadOrCreateSalt()
	if err != nil {
		return nil, err
	}
	return s, s.setKey(deriveKey(masterPassword, salt))
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keySize, sha256.New)
}

type saltDocument struct {
	Salt string `json:"salt"`
}

func (s *EncryptionService) loadOrCreateSalt() ([]byte, error) {
	data, err := os.ReadFile(s.saltPath)
	if err == nil {
		var doc saltDocument
		if jerr := json.Unmarshal(data, &doc); jerr == nil {
			if salt, herr := hex.DecodeString(doc.Salt); herr == nil && len(salt) == saltSize {
				return salt, nil
			}
		}
		slog.Warn("Encryption salt file unreadable, generating a new salt", "path", s.saltPath)
	} else if !os.IsNotExist(err) {
		slog.Warn("Failed to read encryption salt file, generating a new salt",
			"path", s.saltPath, "error", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate encryption salt: %w", err)
	}
	doc, err := json.Marshal(saltDocument{Salt: hex.EncodeToString(salt)})
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(s.saltPath), 0700); err != nil {
		return nil, err
	}
	if err := utils.AtomicWriteFile(s.saltPath, doc, 0600); err != nil {
		return nil, fmt.Errorf("failed to save encryption salt: %w", err)
	}
	return salt, nil
}

func (s *EncryptionService) setKey(key []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	s.aead = aead
	return nil
}

// Encrypt seals plaintext and returns "ENC:" + base64(nonce || ciphertext).
func (s *EncryptionService) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. A value without the sealed
// prefix is returned unchanged.
func (s *EncryptionService) Decrypt(token string) (string, error) {
	if !strings.HasPrefix(token, encryptedPrefix) {
		return token, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(token, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrDecryptFailed
	}
	plain, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}

// UpdateMasterPassword re-derives the sealing key from the new password and
// the existing salt. Values sealed under the old key must be re-encrypted
// by their owning store before the old key is forgotten.
func (s *EncryptionService) UpdateMasterPassword(newPassword string) error {
	if newPassword == "" {
		return ErrEmptyPassword
	}
	salt, err := s.loadOrCreateSalt()
	if err != nil {
		return err
	}
	return s.setKey(deriveKey(newPassword, salt))
}
