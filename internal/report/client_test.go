package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	var got Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{"message": "Thanks for the report."})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "key")
	require.NoError(t, err)

	message, err := client.Submit(context.Background(), Report{
		DeviceID:       "device-1",
		ConversationID: "conv-1",
		MessageText:    "bad output",
		Reason:         "inappropriate",
	})
	require.NoError(t, err)
	assert.Equal(t, "Thanks for the report.", message)
	assert.Equal(t, "device-1", got.DeviceID)
	assert.Equal(t, "conv-1", got.ConversationID)
	assert.Equal(t, "inappropriate", got.Reason)
}

func TestSubmitDefaultMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "")
	require.NoError(t, err)

	message, err := client.Submit(context.Background(), Report{Reason: "spam"})
	require.NoError(t, err)
	assert.Equal(t, "Report submitted.", message)
}

func TestSubmitFailureCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad key"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "wrong")
	require.NoError(t, err)

	_, err = client.Submit(context.Background(), Report{Reason: "spam"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "bad key")
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient("", "key")
	assert.Error(t, err)
}
