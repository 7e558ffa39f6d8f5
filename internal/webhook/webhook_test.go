package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPunishmentAlert(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL)
	n.PunishmentAlert(context.Background(), "cheater", 42, "RESTRICTION", "CRITICAL", "pp cap exceeded")

	require.Len(t, got.Embeds, 1)
	assert.Contains(t, got.Embeds[0].Title, "cheater")
	assert.Contains(t, got.Embeds[0].Title, "42")
	require.Len(t, got.Embeds[0].Fields, 2)
	assert.Equal(t, "CRITICAL", got.Embeds[0].Fields[0].Value)
}

func TestEmptyURLDropsSilently(t *testing.T) {
	n := New("")
	// Must not panic or dial anywhere.
	n.PunishmentAlert(context.Background(), "nobody", 1, "TIMEOUT", "LOW", "")
	n.HWIDCollision(context.Background(), "nobody", 1, []int32{2, 3})
}

func TestServerErrorIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(srv.URL)
	n.HWIDCollision(context.Background(), "someone", 5, []int32{6})
}
