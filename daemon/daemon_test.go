package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsChild(t *testing.T) {
	t.Setenv(DaemonEnvVar, "")
	assert.False(t, IsChild())

	t.Setenv(DaemonEnvVar, "1")
	assert.True(t, IsChild())
}

func TestKillServer_SendsClose(t *testing.T) {
	var method, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string      `json:"method"`
			ID     interface{} `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		method = req.Method
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]string{"status": "ok"},
		})
	}))
	defer srv.Close()

	require.NoError(t, KillServer(srv.URL, "tok"))
	assert.Equal(t, "close", method)
	assert.Equal(t, "Bearer tok", auth)
}

func TestKillServer_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := KillServer(srv.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
