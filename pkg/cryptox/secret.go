package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrGenerateSecret reads a secret from path, creating it with size
// random bytes (base64url) if the file does not exist yet. The pepper and
// the access token signing key are both provisioned this way.
func LoadOrGenerateSecret(path string, size int) (string, error) {
	if path == "" {
		return "", errors.New("cryptox: secret path is empty")
	}
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("cryptox: create secret dir: %w", err)
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		secret := strings.TrimSpace(string(b))
		if secret == "" {
			return "", fmt.Errorf("cryptox: secret file %s is empty", path)
		}
		return secret, nil
	case !os.IsNotExist(err):
		return "", fmt.Errorf("cryptox: read secret: %w", err)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	if err := os.WriteFile(path, []byte(secret), 0600); err != nil {
		return "", fmt.Errorf("cryptox: write secret: %w", err)
	}
	return secret, nil
}
