package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"
)

// Secrets file parameters.
const (
	secretsFileName = "secrets.json.enc"
	secretsDirName  = ".intake"
	saltSize        = 16
	nonceSize       = 12
	scryptN         = 32768 // 2^15
	scryptR         = 8
	scryptP         = 1
	keySize         = 32 // AES-256
)

// In-memory decrypted secrets.
//
//nolint:gochecknoglobals // Intentional in-memory secrets storage
var (
	decryptedSecrets    map[string]string
	decryptedSecretsMux sync.RWMutex
)

// SetDecryptedSecrets stores decrypted secrets in memory.
func SetDecryptedSecrets(secrets map[string]string) {
	decryptedSecretsMux.Lock()
	defer decryptedSecretsMux.Unlock()
	decryptedSecrets = secrets
}

// SetSecret sets a single secret value in memory.
func SetSecret(name, value string) {
	decryptedSecretsMux.Lock()
	defer decryptedSecretsMux.Unlock()
	if decryptedSecrets == nil {
		decryptedSecrets = make(map[string]string)
	}
	decryptedSecrets[name] = value
}

// GetSecret returns a secret value by name using standard precedence:
// decrypted secrets file first, then environment variables.
func GetSecret(name string) (string, error) {
	decryptedSecretsMux.RLock()
	if value, exists := decryptedSecrets[name]; exists && value != "" {
		decryptedSecretsMux.RUnlock()
		return value, nil
	}
	decryptedSecretsMux.RUnlock()

	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret %s not found in secrets file or environment", name)
}

// SecretsFileExists reports whether an encrypted secrets file exists under
// the project directory.
func SecretsFileExists(projectDir string) bool {
	_, err := os.Stat(filepath.Join(projectDir, secretsDirName, secretsFileName))
	return err == nil
}

// EncryptSecretsFile encrypts and writes secrets to
// <projectDir>/.intake/secrets.json.enc with 0600 permissions. File layout
// is [salt][nonce][ciphertext+tag].
func EncryptSecretsFile(projectDir, password string, secrets map[string]string) error {
	passwordBytes := []byte(password)
	defer zero(passwordBytes)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	defer zero(key)

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	dir := filepath.Join(projectDir, secretsDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", secretsDirName, err)
	}
	path := filepath.Join(dir, secretsFileName)
	if err := os.WriteFile(path, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// DecryptSecretsFile reads and decrypts the secrets file.
func DecryptSecretsFile(projectDir, password string) (map[string]string, error) {
	path := filepath.Join(projectDir, secretsDirName, secretsFileName)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets file: %w", err)
	}
	if info.Mode().Perm() != 0600 {
		// Tighten permissions rather than refusing outright.
		if chmodErr := os.Chmod(path, 0600); chmodErr != nil {
			return nil, fmt.Errorf("failed to fix secrets file permissions: %w", chmodErr)
		}
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	minSize := saltSize + nonceSize + 16 // 16 is the GCM tag size
	if len(fileData) < minSize {
		return nil, fmt.Errorf("secrets file is corrupted or truncated")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	passwordBytes := []byte(password)
	defer zero(passwordBytes)

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive decryption key: %w", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong password or corrupted file)")
	}

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secrets: %w", err)
	}
	return secrets, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
