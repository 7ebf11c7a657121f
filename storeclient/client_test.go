package storeclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	identity "github.com/artisania/go-identity"
	"github.com/artisania/go-identity/storeclient"
	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticTokens(token string) identity.TokenSource {
	return identity.TokenSourceFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

func TestClientNewValidatesInputs(t *testing.T) {
	_, err := storeclient.New("", staticTokens("t"))
	require.Error(t, err)

	_, err = storeclient.New("http://store.local", nil)
	require.Error(t, err)

	c, err := storeclient.New("http://store.local/", staticTokens("t"))
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestClientMeSendsFreshBearerToken(t *testing.T) {
	var gotAuth, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(identity.Profile{
			SubjectID: "firebase:abc",
			Role:      identity.RoleBuyer,
			Status:    identity.ProfileStatusActive,
		})
	}))
	defer srv.Close()

	client, err := storeclient.New(srv.URL, staticTokens("scoped-token"))
	require.NoError(t, err)

	profile, err := client.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer scoped-token", gotAuth)
	assert.Equal(t, "/auth/me", gotPath)
	assert.Equal(t, "firebase:abc", profile.SubjectID)
}

func TestClientTokenSourceFailure(t *testing.T) {
	failing := identity.TokenSourceFunc(func(context.Context) (string, error) {
		return "", assert.AnError
	})

	client, err := storeclient.New("http://store.local", failing)
	require.NoError(t, err)

	_, err = client.Me(context.Background())
	require.Error(t, err)

	var rich *errors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, errors.CategoryAuth, rich.Category)
}

func TestClientCreateProfilePostsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in identity.CreateProfileInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, identity.RoleSeller, in.Role)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(identity.Profile{
			SubjectID: "firebase:abc",
			Role:      in.Role,
			Status:    identity.ProfileStatusPending,
		})
	}))
	defer srv.Close()

	client, err := storeclient.New(srv.URL, staticTokens("t"))
	require.NoError(t, err)

	profile, err := client.CreateProfile(context.Background(), identity.CreateProfileInput{
		Name: "Maker",
		Role: identity.RoleSeller,
	})
	require.NoError(t, err)
	assert.Equal(t, identity.ProfileStatusPending, profile.Status)
}

func TestClientTransitionBuildsActionPath(t *testing.T) {
	var gotPath, gotMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "policy violation", payload["reason"])

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := storeclient.New(srv.URL, staticTokens("t"))
	require.NoError(t, err)

	err = client.Transition(context.Background(), "profile-1", identity.ApprovalSuspend, "policy violation")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/admin/users/profile-1/suspend", gotPath)
}

func TestClientTransitionRejectsUnknownAction(t *testing.T) {
	client, err := storeclient.New("http://store.local", staticTokens("t"))
	require.NoError(t, err)

	err = client.Transition(context.Background(), "profile-1", identity.ApprovalAction("promote"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrInvalidTransition)
}

func TestClientDecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":     "profile not found",
			"text_code": "profile_not_found",
		})
	}))
	defer srv.Close()

	client, err := storeclient.New(srv.URL, staticTokens("t"))
	require.NoError(t, err)

	_, err = client.Me(context.Background())
	require.Error(t, err)

	var rich *errors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, errors.CategoryNotFound, rich.Category)
	assert.Equal(t, "profile_not_found", rich.TextCode)
	assert.Equal(t, "profile not found", rich.Message)
}

func TestClientErrorCategoryFollowsStatus(t *testing.T) {
	tests := []struct {
		status   int
		category errors.Category
	}{
		{http.StatusBadRequest, errors.CategoryBadInput},
		{http.StatusUnauthorized, errors.CategoryAuth},
		{http.StatusForbidden, errors.CategoryAuthz},
		{http.StatusConflict, errors.CategoryConflict},
		{http.StatusUnprocessableEntity, errors.CategoryValidation},
		{http.StatusInternalServerError, errors.CategoryOperation},
	}

	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		client, err := storeclient.New(srv.URL, staticTokens("t"))
		require.NoError(t, err)

		_, err = client.Me(context.Background())
		require.Error(t, err)

		var rich *errors.Error
		require.ErrorAs(t, err, &rich)
		assert.Equal(t, tc.category, rich.Category, "status %d", tc.status)
		assert.Equal(t, tc.status, rich.Code)

		srv.Close()
	}
}

func TestClientUnreachableStore(t *testing.T) {
	client, err := storeclient.New("http://127.0.0.1:1", staticTokens("t"))
	require.NoError(t, err)

	_, err = client.Me(context.Background())
	require.Error(t, err)

	var rich *errors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, "STORE_UNREACHABLE", rich.TextCode)
}
