package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestApp creates an app with its config file and database in a
// temporary directory.
func setupTestApp(t *testing.T) (*app, *rootOptions) {
	t.Helper()
	dir := t.TempDir()
	opts := &rootOptions{
		configPath:   filepath.Join(dir, "wordchain.json"),
		logLevel:     "error",
		databasePath: filepath.Join(dir, "test.db"),
	}
	a, err := newApp(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, opts
}

// setupTestServer returns a server over a fresh app and its action channel.
func setupTestServer(t *testing.T) (*Server, chan string) {
	t.Helper()
	a, _ := setupTestApp(t)
	actionChan := make(chan string, 1)
	return NewServer(a, actionChan), actionChan
}

// doRequest sends a request to the server and returns the recorded response.
func doRequest(t *testing.T, s *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

// doJSON sends payload encoded as JSON.
func doJSON(t *testing.T, s *Server, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return doRequest(t, s, method, target, bytes.NewReader(data))
}

// decode unmarshals a recorded JSON response into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// createTrainedModel creates the model "chat" over the API and trains it.
func createTrainedModel(t *testing.T, s *Server) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/models", CreateModelRequest{Name: "chat"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, s, http.MethodPost, "/api/models/chat/train", bytes.NewBufferString("ich weiss schon. ich weiss nicht."))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
