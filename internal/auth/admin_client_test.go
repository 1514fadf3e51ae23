package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUserCreatesOnlyWhenMissing(t *testing.T) {
	users := []User{{ID: "existing-id", Email: "known@example.com"}}
	var created int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(listUsersResponse{Users: users})
		case http.MethodPost:
			var req CreateUserRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.True(t, req.EmailConfirm)
			created++
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(User{ID: "new-id", Email: req.Email})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	client := NewAdminClient(srv.URL, "service-key")

	id, err := client.EnsureUser(context.Background(), "known@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "existing-id", id)
	assert.Zero(t, created)

	id, err = client.EnsureUser(context.Background(), "new@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
	assert.Equal(t, 1, created)
}

func TestDeleteUserByEmailIgnoresMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(listUsersResponse{})
	}))
	defer srv.Close()

	assert.NoError(t, NewAdminClient(srv.URL, "k").DeleteUserByEmail(context.Background(), "nobody@example.com"))
}
