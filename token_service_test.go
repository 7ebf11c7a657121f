package identity_test

import (
	"testing"
	"time"

	identity "github.com/artisania/go-identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key-32-bytes-long!!")

func newTestTokenService() identity.TokenService {
	return identity.NewTokenService(testSigningKey, 1, "identity-test", jwt.ClaimStrings{"marketplace"}, nil)
}

func TestTokenServiceGenerateAndValidate(t *testing.T) {
	ts := newTestTokenService()

	id := testIdentity{subjectID: "firebase:abc", email: "maker@example.com", verified: true}
	profile := &identity.Profile{
		SubjectID:  id.subjectID,
		Email:      id.email,
		Role:       identity.RoleSeller,
		Status:     identity.ProfileStatusActive,
		IsApproved: true,
	}

	token, err := ts.Generate(id, profile)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, "firebase:abc", claims.SubjectID())
	assert.Equal(t, "maker@example.com", claims.Email())
	assert.Equal(t, identity.RoleSeller, claims.Role())
	assert.True(t, claims.Approved())
	assert.False(t, claims.NeedsRoleSelection())
	assert.True(t, claims.HasRole("seller"))
	assert.False(t, claims.HasRole("admin"))
}

func TestTokenServiceGenerateWithoutProfileIssuesOnboardingToken(t *testing.T) {
	ts := newTestTokenService()

	id := testIdentity{subjectID: "google:new", email: "new@example.com"}

	token, err := ts.Generate(id, nil)
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, "google:new", claims.SubjectID())
	assert.Empty(t, string(claims.Role()))
	assert.False(t, claims.Approved())
	assert.True(t, claims.NeedsRoleSelection())
}

func TestTokenServiceGenerateRequiresIdentity(t *testing.T) {
	ts := newTestTokenService()

	_, err := ts.Generate(nil, nil)
	require.Error(t, err)
}

func TestTokenServiceValidateRejectsExpired(t *testing.T) {
	ts := newTestTokenService()

	id := testIdentity{subjectID: "firebase:abc", email: "maker@example.com"}

	token, _, err := identity.MintScopedToken(ts, id, nil, identity.ScopedTokenOptions{
		TTL:      time.Second,
		IssuedAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	_, err = ts.Validate(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrTokenExpired)
}

func TestTokenServiceValidateRejectsWrongKey(t *testing.T) {
	ts := newTestTokenService()
	other := identity.NewTokenService([]byte("a-different-key-entirely-here!!!"), 1, "identity-test", jwt.ClaimStrings{"marketplace"}, nil)

	id := testIdentity{subjectID: "firebase:abc"}

	token, err := other.Generate(id, nil)
	require.NoError(t, err)

	_, err = ts.Validate(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrTokenMalformed)
}

func TestTokenServiceValidateRejectsGarbage(t *testing.T) {
	ts := newTestTokenService()

	_, err := ts.Validate("not.a.token")
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrTokenMalformed)
}

func TestTokenServiceValidateRejectsWrongIssuer(t *testing.T) {
	ts := newTestTokenService()
	other := identity.NewTokenService(testSigningKey, 1, "somebody-else", jwt.ClaimStrings{"marketplace"}, nil)

	id := testIdentity{subjectID: "firebase:abc"}

	token, err := other.Generate(id, nil)
	require.NoError(t, err)

	_, err = ts.Validate(token)
	require.Error(t, err)
}

func TestMintScopedTokenExpiry(t *testing.T) {
	ts := newTestTokenService()

	id := testIdentity{subjectID: "firebase:abc", email: "maker@example.com"}
	issuedAt := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)

	token, expiresAt, err := identity.MintScopedToken(ts, id, nil, identity.ScopedTokenOptions{
		TTL:      30 * time.Second,
		IssuedAt: issuedAt,
		Scope:    "store:me",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, expiresAt.Equal(issuedAt.Add(30*time.Second)))
}

func TestMultiTokenValidatorFallsThrough(t *testing.T) {
	primary := newTestTokenService()
	secondary := identity.NewTokenService([]byte("secondary-signing-key-32-bytes!!"), 1, "identity-test", nil, nil)

	id := testIdentity{subjectID: "firebase:abc"}
	token, err := secondary.Generate(id, nil)
	require.NoError(t, err)

	multi := identity.NewMultiTokenValidator(primary, secondary)

	claims, err := multi.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "firebase:abc", claims.SubjectID())

	_, err = multi.Validate("garbage")
	require.Error(t, err)
}
