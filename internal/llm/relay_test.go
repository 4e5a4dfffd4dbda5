package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunatalk/lunatalk-server/internal/model"
)

func TestRelayClientRequiresConfig(t *testing.T) {
	_, err := NewRelayClient("", "key")
	assert.Error(t, err)

	_, err = NewRelayClient("http://relay.example", "")
	assert.Error(t, err)
}

func TestRelayGenerate(t *testing.T) {
	var gotAuth string
	var gotReq relayRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(relayResponse{Text: "Konnichiwa!"})
	}))
	defer srv.Close()

	client, err := NewRelayClient(srv.URL, "secret")
	require.NoError(t, err)

	messages := []model.Message{
		model.NewPromptMessage("system"),
		model.NewUserMessage("hi", time.Now()),
	}

	text, err := client.Generate(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, "Konnichiwa!", text)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Len(t, gotReq.Messages, 2)
}

func TestRelayGenerateCarriesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client, err := NewRelayClient(srv.URL, "secret")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), nil)
	require.Error(t, err)

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, http.StatusBadGateway, gatewayErr.Status)
	assert.Equal(t, "upstream exploded", gatewayErr.Body)
}

func TestRelayGenerateRejectsEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(relayResponse{Text: "   "})
	}))
	defer srv.Close()

	client, err := NewRelayClient(srv.URL, "secret")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(Provider("something-else"), Options{})
	assert.Error(t, err)
}
