package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyIterations = 100000
	keyLength     = 32
	saltLength    = 32
)

// SecurityManager encrypts the credentials kept in the profiles file
type SecurityManager interface {
	// EncryptCredential encrypts a secret for storage
	EncryptCredential(plaintext string) (string, error)

	// DecryptCredential reverses EncryptCredential
	DecryptCredential(ciphertext string) (string, error)

	// ValidateTokenFormat checks a token before it is saved
	ValidateTokenFormat(token string, tokenType string) error

	// ClearSecurityData discards the encryption key
	ClearSecurityData() error
}

// AESSecurityManager implements SecurityManager with AES-256-GCM under a PBKDF2 key
// derived from a per-installation salt and the machine identity
type AESSecurityManager struct {
	keyPath   string
	masterKey []byte
}

// NewSecurityManager loads or creates the key material in the default data directory
func NewSecurityManager() (*AESSecurityManager, error) {
	keyPath, err := defaultKeyPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine security key path: %w", err)
	}
	return NewSecurityManagerAt(keyPath)
}

// NewSecurityManagerAt loads or creates the salt stored at keyPath
func NewSecurityManagerAt(keyPath string) (*AESSecurityManager, error) {
	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create security directory: %w", err)
	}

	manager := &AESSecurityManager{keyPath: keyPath}
	salt, err := manager.loadOrCreateSalt()
	if err != nil {
		return nil, err
	}
	manager.masterKey = pbkdf2.Key([]byte(machinePassphrase()), salt, keyIterations, keyLength, sha256.New)
	return manager, nil
}

func defaultKeyPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		dataHome = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataHome, "archat", "security", "master.key"), nil
}

func (s *AESSecurityManager) loadOrCreateSalt() ([]byte, error) {
	keyData, err := os.ReadFile(s.keyPath)
	if err == nil {
		salt, err := hex.DecodeString(strings.TrimSpace(string(keyData)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode key material: %w", err)
		}
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read master key file: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate random salt: %w", err)
	}
	if err := os.WriteFile(s.keyPath, []byte(hex.EncodeToString(salt)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write key material: %w", err)
	}
	return salt, nil
}

func machinePassphrase() string {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	return fmt.Sprintf("archat-credentials-%s-%s", hostname, username)
}

func (s *AESSecurityManager) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// EncryptCredential returns base64(nonce || sealed plaintext)
func (s *AESSecurityManager) EncryptCredential(plaintext string) (string, error) {
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *AESSecurityManager) DecryptCredential(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	gcm, err := s.aead()
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

func (s *AESSecurityManager) ValidateTokenFormat(token string, tokenType string) error {
	switch strings.ToLower(tokenType) {
	case AuthBearer:
		token = strings.TrimSpace(token)
		if token == "" {
			return fmt.Errorf("bearer token cannot be empty")
		}
		if strings.ContainsAny(token, " \t\n\r") {
			return fmt.Errorf("bearer token cannot contain whitespace")
		}
		return nil
	case AuthNone, "":
		if strings.TrimSpace(token) != "" {
			return fmt.Errorf("no token should be provided when auth type is 'none'")
		}
		return nil
	default:
		return fmt.Errorf("unsupported token type: %s", tokenType)
	}
}

// ClearSecurityData forgets the key and removes the salt; stored credentials become unreadable
func (s *AESSecurityManager) ClearSecurityData() error {
	for i := range s.masterKey {
		s.masterKey[i] = 0
	}
	s.masterKey = nil

	if err := os.Remove(s.keyPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove security key file: %w", err)
	}
	return nil
}
