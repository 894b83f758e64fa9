package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	"github.com/seawell/laguna/internal/gatewayconfig/domain"
)

type envelope struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Cipher seals and opens provider configs with AES-GCM. The key is derived
// from the configured secret, so rotating the secret invalidates stored rows.
type Cipher struct {
	key []byte
}

func NewCipher(secret string) *Cipher {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &Cipher{}
	}
	sum := sha256.Sum256([]byte(secret))
	return &Cipher{key: sum[:]}
}

func (c *Cipher) Encrypt(config map[string]any) ([]byte, error) {
	if len(c.key) == 0 {
		return nil, domain.ErrEncryptionKeyMissing
	}
	if len(config) == 0 {
		return nil, domain.ErrInvalidConfig
	}

	plain, err := json.Marshal(config)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, nonce, plain, nil)

	return json.Marshal(envelope{
		Version:    1,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(sealed),
	})
}

func (c *Cipher) Decrypt(encrypted []byte) (map[string]any, error) {
	if len(c.key) == 0 {
		return nil, domain.ErrEncryptionKeyMissing
	}
	if len(encrypted) == 0 {
		return nil, domain.ErrInvalidConfig
	}

	var payload envelope
	if err := json.Unmarshal(encrypted, &payload); err != nil {
		return nil, domain.ErrInvalidConfig
	}
	if payload.Version != 1 {
		return nil, domain.ErrInvalidConfig
	}

	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domain.ErrInvalidConfig
	}

	var out map[string]any
	if err := json.Unmarshal(plain, &out); err != nil {
		return nil, domain.ErrInvalidConfig
	}
	if len(out) == 0 {
		return nil, domain.ErrInvalidConfig
	}
	return out, nil
}
