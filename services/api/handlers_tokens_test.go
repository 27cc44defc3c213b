package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type tokenListResponse struct {
	Tokens []Token `json:"tokens"`
}

func createToken(t *testing.T, handler http.Handler, userID, name string, data TokenData) Token {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/tokens", map[string]any{
		"userId": userID,
		"name":   name,
		"data":   data,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[Token](t, rec)
}

func listTokens(t *testing.T, handler http.Handler, userID string) []Token {
	t.Helper()

	rec := doJSON(t, handler, http.MethodGet, "/api/tokens/"+userID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[tokenListResponse](t, rec).Tokens
}

func TestTokenRoundTrip(t *testing.T) {
	handler := setupHandler(t)
	userID := createUser(t, handler, "device-abc")

	data := TokenData{CsrfToken: "csrf-1", AuthToken: "auth-1"}
	created := createToken(t, handler, userID, "work account", data)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, "work account", created.Name)
	require.Equal(t, data, created.Data)
	require.Nil(t, created.UpdatedAt)

	tokens := listTokens(t, handler, userID)
	require.Len(t, tokens, 1)
	require.Equal(t, created.ID, tokens[0].ID)
	require.Equal(t, data, tokens[0].Data)
}

func TestListTokensNewestFirst(t *testing.T) {
	handler := setupHandler(t)
	userID := createUser(t, handler, "device-abc")

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		created := createToken(t, handler, userID, fmt.Sprintf("account-%d", i), TokenData{
			CsrfToken: fmt.Sprintf("csrf-%d", i),
			AuthToken: fmt.Sprintf("auth-%d", i),
		})
		ids = append(ids, created.ID)
		time.Sleep(10 * time.Millisecond)
	}

	tokens := listTokens(t, handler, userID)
	require.Len(t, tokens, 3)
	require.Equal(t, ids[2], tokens[0].ID)
	require.Equal(t, ids[1], tokens[1].ID)
	require.Equal(t, ids[0], tokens[2].ID)
}

func TestListTokensInvalidUserID(t *testing.T) {
	handler := setupHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/tokens/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[map[string]string](t, rec)
	require.Equal(t, "valid userId is required", resp["error"])
}

func TestCreateTokenValidation(t *testing.T) {
	handler := setupHandler(t)
	userID := createUser(t, handler, "device-abc")

	cases := []struct {
		name    string
		body    map[string]any
		wantErr string
	}{
		{
			name:    "missing name",
			body:    map[string]any{"userId": userID, "data": TokenData{CsrfToken: "c", AuthToken: "a"}},
			wantErr: "userId, name, and data are required",
		},
		{
			name:    "missing data",
			body:    map[string]any{"userId": userID, "name": "acct"},
			wantErr: "userId, name, and data are required",
		},
		{
			name:    "incomplete data",
			body:    map[string]any{"userId": userID, "name": "acct", "data": TokenData{CsrfToken: "c"}},
			wantErr: "Token data is incomplete",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, "/api/tokens", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decodeBody[map[string]string](t, rec)
			require.Equal(t, tc.wantErr, resp["error"])
		})
	}

	// Rejected requests must not leave partial rows behind.
	require.Empty(t, listTokens(t, handler, userID))
}

func TestUpdateTokenMergesData(t *testing.T) {
	handler := setupHandler(t)
	userID := createUser(t, handler, "device-abc")
	created := createToken(t, handler, userID, "acct", TokenData{CsrfToken: "csrf-1", AuthToken: "auth-1"})

	// Renaming alone leaves the credential pair untouched.
	rec := doJSON(t, handler, http.MethodPut, "/api/tokens/"+created.ID.String(), map[string]any{
		"name": "renamed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decodeBody[Token](t, rec)
	require.Equal(t, "renamed", updated.Name)
	require.Equal(t, created.Data, updated.Data)
	require.NotNil(t, updated.UpdatedAt)

	// A partial data update keeps the field that was omitted.
	rec = doJSON(t, handler, http.MethodPut, "/api/tokens/"+created.ID.String(), map[string]any{
		"data": map[string]string{"csrfToken": "csrf-2"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated = decodeBody[Token](t, rec)
	require.Equal(t, "renamed", updated.Name)
	require.Equal(t, TokenData{CsrfToken: "csrf-2", AuthToken: "auth-1"}, updated.Data)
}

func TestUpdateTokenNotFound(t *testing.T) {
	handler := setupHandler(t)

	for _, id := range []string{uuid.NewString(), "garbage"} {
		rec := doJSON(t, handler, http.MethodPut, "/api/tokens/"+id, map[string]any{"name": "x"})
		require.Equal(t, http.StatusNotFound, rec.Code)

		resp := decodeBody[map[string]string](t, rec)
		require.Equal(t, "Token not found", resp["error"])
	}
}

func TestDeleteToken(t *testing.T) {
	handler := setupHandler(t)
	userID := createUser(t, handler, "device-abc")
	created := createToken(t, handler, userID, "acct", TokenData{CsrfToken: "c", AuthToken: "a"})

	rec := doJSON(t, handler, http.MethodDelete, "/api/tokens/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[map[string]any](t, rec)
	require.Equal(t, true, resp["success"])
	require.Empty(t, listTokens(t, handler, userID))

	// A second delete of the same id reports not found.
	rec = doJSON(t, handler, http.MethodDelete, "/api/tokens/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
