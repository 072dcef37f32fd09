package watermark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Apply(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	req := Request{Bucket: "chat-attachments", Path: "conversations/c1/x.png", ContentType: "image/png", ConversationID: "c1"}
	require.NoError(t, c.Apply(context.Background(), req))
	assert.Equal(t, req, got)
}

func TestClient_ApplyFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Apply(context.Background(), Request{})
	assert.Error(t, err)
}

func TestClient_Disabled(t *testing.T) {
	c := NewClient("", 0)
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Apply(context.Background(), Request{}))
}
