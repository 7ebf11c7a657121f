package identity_test

import (
	"testing"
	"time"

	identity "github.com/artisania/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDraftCodec(ttl time.Duration) *identity.EncryptedDraftCodec {
	return identity.NewEncryptedDraftCodec(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("draft-hmac-key"),
		ttl,
	)
}

func TestEncryptedDraftCodecRoundTrip(t *testing.T) {
	codec := newTestDraftCodec(time.Minute)

	draft := &identity.RegistrationDraft{
		Email: "maker@example.com",
		Name:  "Maker",
		Role:  identity.RoleSeller,
	}

	blob, err := codec.Encode(draft)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	decoded, err := codec.Decode(blob)
	require.NoError(t, err)

	assert.Equal(t, "maker@example.com", decoded.Email)
	assert.Equal(t, "Maker", decoded.Name)
	assert.Equal(t, identity.RoleSeller, decoded.Role)
	assert.NotZero(t, decoded.IssuedAt)
	assert.NotZero(t, decoded.ExpiresAt)
}

func TestEncryptedDraftCodecRejectsExpired(t *testing.T) {
	codec := newTestDraftCodec(time.Minute)

	draft := &identity.RegistrationDraft{
		Role:      identity.RoleBuyer,
		IssuedAt:  time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}

	blob, err := codec.Encode(draft)
	require.NoError(t, err)

	_, err = codec.Decode(blob)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrDraftExpired)
}

func TestEncryptedDraftCodecRejectsTampering(t *testing.T) {
	codec := newTestDraftCodec(time.Minute)

	blob, err := codec.Encode(&identity.RegistrationDraft{Role: identity.RoleSeller})
	require.NoError(t, err)

	// flip a character in the middle of the blob
	tampered := []byte(blob)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	_, err = codec.Decode(string(tampered))
	require.Error(t, err)
}

func TestEncryptedDraftCodecRejectsForeignKeys(t *testing.T) {
	codec := newTestDraftCodec(time.Minute)
	other := identity.NewEncryptedDraftCodec(
		[]byte("fedcba9876543210fedcba9876543210"),
		[]byte("other-hmac-key"),
		time.Minute,
	)

	blob, err := other.Encode(&identity.RegistrationDraft{Role: identity.RoleSeller})
	require.NoError(t, err)

	_, err = codec.Decode(blob)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrInvalidDraft)
}

func TestEncryptedDraftCodecRejectsNilDraft(t *testing.T) {
	codec := newTestDraftCodec(time.Minute)

	_, err := codec.Encode(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrInvalidDraft)
}

func TestMemoryDraftStoreLifecycle(t *testing.T) {
	store := identity.NewMemoryDraftStore(newTestDraftCodec(time.Minute))

	_, ok := store.Load()
	assert.False(t, ok)

	require.NoError(t, store.Save(&identity.RegistrationDraft{Role: identity.RoleSeller}))

	draft, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, identity.RoleSeller, draft.Role)

	store.Clear()
	_, ok = store.Load()
	assert.False(t, ok)

	// Clear is idempotent
	store.Clear()
}
