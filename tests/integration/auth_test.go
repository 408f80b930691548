//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/incident-desk/internal/testutil"
)

func TestAuth_AdminLogin(t *testing.T) {
	client := newTestClient()

	resp, err := client.POST("/api/v1/auth/login", map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			User struct {
				Username string `json:"username"`
				Role     string `json:"role"`
			} `json:"user"`
			Token string `json:"token"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, "admin", result.Data.User.Username)
	assert.Equal(t, "admin", result.Data.User.Role)
	assert.NotEmpty(t, result.Data.Token)
}

func TestAuth_AdminLogin_WrongPassword(t *testing.T) {
	client := newTestClient()

	resp, err := client.POST("/api/v1/auth/login", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_AutoRegistersUnknownUser(t *testing.T) {
	client := newTestClient()

	resp, err := client.POST("/api/v1/auth/login", map[string]string{
		"username": "fresh.reporter",
		"password": "first-password",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			User struct {
				Username string `json:"username"`
				Role     string `json:"role"`
			} `json:"user"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, "fresh.reporter", result.Data.User.Username)
	assert.Equal(t, "user", result.Data.User.Role)

	// The first password sticks: a different one is rejected afterwards.
	resp, err = client.POST("/api/v1/auth/login", map[string]string{
		"username": "fresh.reporter",
		"password": "second-password",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_Me_RequiresAuth(t *testing.T) {
	client := newTestClient()

	resp, err := client.GET("/api/v1/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAuth_Me_ReturnsCurrentUser(t *testing.T) {
	client := newTestClient()
	client.LoginAs(t, "admin", "admin123")

	resp, err := client.GET("/api/v1/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, "admin", result.Data.Username)
	assert.Equal(t, "admin", result.Data.Role)
}

func TestAuth_UserManagement_RequiresAdmin(t *testing.T) {
	client := newTestClient()
	client.LoginAs(t, "plain.user", "password123")

	resp, err := client.GET("/api/v1/users/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
