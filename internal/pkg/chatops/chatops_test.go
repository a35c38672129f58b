package chatops

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackNotifier_Notify(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, "Frog Members", time.Second)
	err := n.Notify(context.Background(), Notification{
		Title:  "New member onboarded",
		Text:   "Kai finished onboarding",
		Fields: []Field{{Label: "Country", Value: "Japan"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Frog Members", body["username"])
	assert.Equal(t, "New member onboarded: Kai finished onboarding", body["text"])
	blocks, ok := body["blocks"].([]interface{})
	require.True(t, ok)
	assert.Len(t, blocks, 2)
}

func TestSlackNotifier_FailureIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, "", time.Second)
	err := n.Notify(context.Background(), Notification{Title: "x"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSlackNotifier_NotConfigured(t *testing.T) {
	n := NewSlackNotifier("", "", 0)
	assert.False(t, n.Enabled())
	assert.ErrorIs(t, n.Notify(context.Background(), Notification{Title: "x"}), ErrNotConfigured)
}
