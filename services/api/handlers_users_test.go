package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func createUser(t *testing.T, handler http.Handler, deviceID string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/users", map[string]string{"deviceId": deviceID})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	require.NotEmpty(t, body["userId"])
	return body["userId"]
}

func TestCreateOrGetUserIdempotent(t *testing.T) {
	handler := setupHandler(t)

	first := createUser(t, handler, "device-abc")
	second := createUser(t, handler, "device-abc")
	require.Equal(t, first, second)

	_, err := uuid.Parse(first)
	require.NoError(t, err)

	other := createUser(t, handler, "device-xyz")
	require.NotEqual(t, first, other)
}

func TestCreateUserMissingDeviceID(t *testing.T) {
	handler := setupHandler(t)

	for _, body := range []map[string]string{
		{},
		{"deviceId": ""},
		{"deviceId": "   "},
	} {
		rec := doJSON(t, handler, http.MethodPost, "/api/users", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decodeBody[map[string]string](t, rec)
		require.Equal(t, "Device ID is required", resp["error"])
	}
}

func TestCreateUserRejectsUnknownFields(t *testing.T) {
	handler := setupHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/users", map[string]string{
		"deviceId": "device-abc",
		"extra":    "nope",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
