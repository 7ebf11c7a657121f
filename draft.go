package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
)

var (
	ErrInvalidDraft = errors.New("registration draft is invalid", errors.CategoryAuth).
			WithTextCode("INVALID_DRAFT")
	ErrDraftExpired = errors.New("registration draft expired", errors.CategoryAuth).
			WithTextCode("DRAFT_EXPIRED")
)

// RegistrationDraft carries the pending registration choices across an
// authentication round trip, e.g. a federated redirect. It never holds
// passwords or secrets beyond what the blob encryption protects.
type RegistrationDraft struct {
	Email     string `json:"e,omitempty"`
	Name      string `json:"n,omitempty"`
	Role      Role   `json:"ro,omitempty"`
	Avatar    string `json:"av,omitempty"`
	Phone     string `json:"ph,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// DraftCodec encodes a registration draft into an opaque blob a browser can
// hold, and verifies it on the way back.
type DraftCodec interface {
	Encode(draft *RegistrationDraft) (string, error)
	Decode(token string) (*RegistrationDraft, error)
}

// EncryptedDraftCodec uses AES-GCM encryption and HMAC signing.
type EncryptedDraftCodec struct {
	encryptionKey []byte
	hmacKey       []byte
	ttl           time.Duration
}

// NewEncryptedDraftCodec creates a new encrypted draft codec.
func NewEncryptedDraftCodec(encryptionKey, hmacKey []byte, ttl time.Duration) *EncryptedDraftCodec {
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &EncryptedDraftCodec{
		encryptionKey: encryptionKey,
		hmacKey:       hmacKey,
		ttl:           ttl,
	}
}

// Encode encrypts and signs the draft.
func (dc *EncryptedDraftCodec) Encode(draft *RegistrationDraft) (string, error) {
	if draft == nil {
		return "", ErrInvalidDraft
	}

	if draft.IssuedAt == 0 {
		draft.IssuedAt = time.Now().Unix()
	}
	if draft.ExpiresAt == 0 {
		draft.ExpiresAt = time.Now().Add(dc.ttl).Unix()
	}

	plaintext, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft: %w", err)
	}

	block, err := aes.NewCipher(dc.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)

	mac := hmac.New(sha256.New, dc.hmacKey)
	mac.Write(ciphertext)
	signature := mac.Sum(nil)

	result := append(signature, ciphertext...)

	return base64.URLEncoding.EncodeToString(result), nil
}

// Decode verifies and decrypts the draft.
func (dc *EncryptedDraftCodec) Decode(token string) (*RegistrationDraft, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	if len(data) < sha256.Size {
		return nil, ErrInvalidDraft
	}

	signature := data[:sha256.Size]
	ciphertext := data[sha256.Size:]

	mac := hmac.New(sha256.New, dc.hmacKey)
	mac.Write(ciphertext)
	expectedMAC := mac.Sum(nil)

	if !hmac.Equal(signature, expectedMAC) {
		return nil, ErrInvalidDraft
	}

	block, err := aes.NewCipher(dc.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidDraft
	}

	nonce, encrypted := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return nil, ErrInvalidDraft
	}

	var draft RegistrationDraft
	if err := json.Unmarshal(plaintext, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}

	if time.Now().Unix() > draft.ExpiresAt {
		return nil, ErrDraftExpired
	}

	return &draft, nil
}

// DraftStore keeps at most one draft per session. Clear is idempotent and is
// called on registration success and on logout.
type DraftStore interface {
	Save(draft *RegistrationDraft) error
	Load() (*RegistrationDraft, bool)
	Clear()
}

type memoryDraftStore struct {
	blob  string
	codec DraftCodec
}

// NewMemoryDraftStore keeps the encoded draft in process memory, which is
// enough for a single-session client.
func NewMemoryDraftStore(codec DraftCodec) DraftStore {
	return &memoryDraftStore{codec: codec}
}

func (s *memoryDraftStore) Save(draft *RegistrationDraft) error {
	blob, err := s.codec.Encode(draft)
	if err != nil {
		return err
	}
	s.blob = blob
	return nil
}

func (s *memoryDraftStore) Load() (*RegistrationDraft, bool) {
	if s.blob == "" {
		return nil, false
	}

	draft, err := s.codec.Decode(s.blob)
	if err != nil {
		s.blob = ""
		return nil, false
	}

	return draft, true
}

func (s *memoryDraftStore) Clear() {
	s.blob = ""
}
