package federated

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateManager(ttl time.Duration) *EncryptedStateManager {
	return NewEncryptedStateManager(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("state-hmac-key"),
		ttl,
	)
}

func TestStateManagerRoundTrip(t *testing.T) {
	sm := newTestStateManager(time.Minute)

	state := &FlowState{
		Provider:    "google",
		Action:      "register",
		RoleHint:    "seller",
		RedirectURL: "/seller/dashboard",
	}

	token, err := sm.Encode(state)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := sm.Decode(token)
	require.NoError(t, err)

	assert.Equal(t, "google", decoded.Provider)
	assert.Equal(t, "register", decoded.Action)
	assert.Equal(t, "seller", decoded.RoleHint)
	assert.Equal(t, "/seller/dashboard", decoded.RedirectURL)
	assert.NotEmpty(t, decoded.Nonce, "nonce is filled in on encode")
	assert.NotZero(t, decoded.ExpiresAt)
}

func TestStateManagerRejectsExpired(t *testing.T) {
	sm := newTestStateManager(time.Minute)

	state := &FlowState{
		Provider:  "google",
		Action:    "login",
		IssuedAt:  time.Now().Add(-time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-30 * time.Minute).Unix(),
	}

	token, err := sm.Encode(state)
	require.NoError(t, err)

	_, err = sm.Decode(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestStateManagerRejectsTampering(t *testing.T) {
	sm := newTestStateManager(time.Minute)

	token, err := sm.Encode(&FlowState{Provider: "google", Action: "login"})
	require.NoError(t, err)

	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	_, err = sm.Decode(string(tampered))
	require.Error(t, err)
}

func TestStateManagerRejectsForeignKeys(t *testing.T) {
	sm := newTestStateManager(time.Minute)
	other := NewEncryptedStateManager(
		[]byte("fedcba9876543210fedcba9876543210"),
		[]byte("other-hmac-key"),
		time.Minute,
	)

	token, err := other.Encode(&FlowState{Provider: "google", Action: "login"})
	require.NoError(t, err)

	_, err = sm.Decode(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateManagerRejectsNilState(t *testing.T) {
	sm := newTestStateManager(time.Minute)

	_, err := sm.Encode(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCodeChallengeIsS256OfVerifier(t *testing.T) {
	verifier, err := generateCodeVerifier()
	require.NoError(t, err)
	require.NotEmpty(t, verifier)

	challenge := computeCodeChallenge(verifier)

	sum := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])
	assert.Equal(t, expected, challenge)

	// verifiers are unique per flow
	second, err := generateCodeVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, verifier, second)
}
