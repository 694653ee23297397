package store

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/dkeye/Ephemeral/internal/domain"
)

const (
	envelopeVersion = 1
	keyInfo         = "ephemeral/message-store/v1"
)

var (
	ErrEnvelopeVersion = errors.New("store: unsupported envelope version")
	ErrNoKey           = errors.New("store: encrypted entry but no encryption key configured")
	ErrDecrypt         = errors.New("store: entry failed authentication")
)

type envelope struct {
	V     int    `json:"v"`
	Enc   bool   `json:"enc"`
	Nonce []byte `json:"n,omitempty"`
	Data  []byte `json:"d"`
}

// Codec turns chat messages into stored entries. Each entry is encrypted on
// its own with XChaCha20-Poly1305 when a key is configured.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives the entry key from secret. An empty secret stores plaintext.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return &Codec{}, nil
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Codec{aead: aead}, nil
}

func (c *Codec) Encrypted() bool { return c.aead != nil }

func (c *Codec) Encode(msg domain.ChatMessage) ([]byte, error) {
	plain, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	env := envelope{V: envelopeVersion, Data: plain}
	if c.aead != nil {
		nonce := make([]byte, c.aead.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return nil, fmt.Errorf("nonce: %w", err)
		}
		env.Enc = true
		env.Nonce = nonce
		env.Data = c.aead.Seal(nil, nonce, plain, nil)
	}
	return json.Marshal(env)
}

func (c *Codec) Decode(b []byte) (domain.ChatMessage, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.V != envelopeVersion {
		return domain.ChatMessage{}, fmt.Errorf("%w: %d", ErrEnvelopeVersion, env.V)
	}
	plain := env.Data
	if env.Enc {
		if c.aead == nil {
			return domain.ChatMessage{}, ErrNoKey
		}
		if len(env.Nonce) != c.aead.NonceSize() {
			return domain.ChatMessage{}, ErrDecrypt
		}
		var err error
		if plain, err = c.aead.Open(nil, env.Nonce, env.Data, nil); err != nil {
			return domain.ChatMessage{}, ErrDecrypt
		}
	}
	var msg domain.ChatMessage
	if err := json.Unmarshal(plain, &msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("unmarshal message: %w", err)
	}
	return msg, nil
}
