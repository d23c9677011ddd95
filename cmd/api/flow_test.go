//go:build integration
// +build integration

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseURL() string {
	if u := os.Getenv("API_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8080/api/v1"
}

func call(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req, err := http.NewRequest(method, baseURL()+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// TestEndToEndDonorFlow needs the API running against a migrated database.
func TestEndToEndDonorFlow(t *testing.T) {
	email := "donor-" + uuid.NewString()[:8] + "@example.com"
	var token, requestID string

	t.Run("Register", func(t *testing.T) {
		status, body := call(t, http.MethodPost, "/auth/register", "", map[string]any{
			"email": email, "password": "password123", "full_name": "Flow Donor", "blood_type": "O-",
		})
		require.Equal(t, http.StatusCreated, status)
		token = body["access_token"].(string)
	})

	t.Run("Login", func(t *testing.T) {
		status, body := call(t, http.MethodPost, "/auth/login", "", map[string]any{
			"identifier": email, "password": "password123", "kind": "user",
		})
		require.Equal(t, http.StatusOK, status)
		token = body["access_token"].(string)
	})

	t.Run("Submit donation", func(t *testing.T) {
		status, body := call(t, http.MethodPost, "/donations", token, map[string]any{
			"blood_type": "O-", "location": "Jakarta",
		})
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "pending", body["status"])
	})

	t.Run("Create blood request", func(t *testing.T) {
		status, body := call(t, http.MethodPost, "/blood-requests", token, map[string]any{
			"name": "Patient", "email": email, "blood_type": "A+", "location": "Jakarta", "urgency": "high",
		})
		require.Equal(t, http.StatusCreated, status)
		requestID = body["id"].(string)
	})

	t.Run("List own requests", func(t *testing.T) {
		status, body := call(t, http.MethodGet, "/blood-requests", token, nil)
		require.Equal(t, http.StatusOK, status)
		data := body["data"].([]any)
		require.NotEmpty(t, data)
		assert.Equal(t, requestID, data[0].(map[string]any)["id"])
	})

	t.Run("Users cannot read inventory", func(t *testing.T) {
		status, _ := call(t, http.MethodGet, "/inventory/units", token, nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("Cancel own request", func(t *testing.T) {
		status, body := call(t, http.MethodPatch, "/blood-requests/"+requestID+"/status", token, map[string]any{
			"status": "cancelled",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "cancelled", body["status"])
	})
}
