package identity_test

import (
	"fmt"
	"testing"

	identity "github.com/artisania/go-identity"
	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestProfileAbsent(t *testing.T) {
	assert.False(t, identity.ProfileAbsent(nil))
	assert.True(t, identity.ProfileAbsent(identity.ErrProfileNotFound))
	assert.True(t, identity.ProfileAbsent(fmt.Errorf("wrapped: %w", identity.ErrProfileNotFound)))

	notFound := errors.New("record not found", errors.CategoryNotFound)
	assert.True(t, identity.ProfileAbsent(notFound))

	assert.False(t, identity.ProfileAbsent(identity.ErrNotAuthorized))
	assert.False(t, identity.ProfileAbsent(assert.AnError))
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.False(t, identity.IsTokenExpiredError(nil))
	assert.True(t, identity.IsTokenExpiredError(identity.ErrTokenExpired))
	assert.True(t, identity.IsTokenExpiredError(fmt.Errorf("token is expired by 5m")))
	assert.False(t, identity.IsTokenExpiredError(assert.AnError))
}

func TestIsMalformedError(t *testing.T) {
	assert.False(t, identity.IsMalformedError(nil))
	assert.True(t, identity.IsMalformedError(identity.ErrTokenMalformed))
	assert.True(t, identity.IsMalformedError(fmt.Errorf("missing or malformed JWT")))
	assert.False(t, identity.IsMalformedError(assert.AnError))
}

func TestStatusAuthError(t *testing.T) {
	assert.NoError(t, identity.StatusAuthError(identity.ProfileStatusActive))
	assert.NoError(t, identity.StatusAuthError(identity.ProfileStatusPending))

	err := identity.StatusAuthError(identity.ProfileStatusSuspended)
	assert.Error(t, err)

	var rich *errors.Error
	assert.ErrorAs(t, err, &rich)
	assert.Equal(t, "account_suspended", rich.TextCode)

	err = identity.StatusAuthError(identity.ProfileStatusRejected)
	assert.Error(t, err)
	assert.ErrorAs(t, err, &rich)
	assert.Equal(t, "seller_rejected", rich.TextCode)
}

func TestAuthErrorsCarryStableTextCodes(t *testing.T) {
	assert.Equal(t, identity.TextCodeInvalidCredentials, identity.ErrInvalidCredentials.TextCode)
	assert.Equal(t, identity.TextCodeEmailNotVerified, identity.ErrEmailNotVerified.TextCode)
	assert.Equal(t, identity.TextCodeProfileNotFound, identity.ErrProfileNotFound.TextCode)
	assert.Equal(t, identity.TextCodeNotAuthorized, identity.ErrNotAuthorized.TextCode)
}
