package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeSendsRequestAndReturnsAudio(t *testing.T) {
	var received synthesizeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, synthesizePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF-fake-wav"))
	}))
	defer server.Close()

	eng := NewHTTPEngine(server.URL)
	audio, err := eng.Synthesize(context.Background(), "hello there", "/voices/abc.wav", "en")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF-fake-wav"), audio)
	assert.Equal(t, "hello there", received.Text)
	assert.Equal(t, "/voices/abc.wav", received.ReferencePath)
	assert.Equal(t, "en", received.Language)
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	eng := NewHTTPEngine("http://127.0.0.1:1")
	_, err := eng.Synthesize(context.Background(), "", "ref.wav", "auto")
	require.ErrorIs(t, err, ErrTextEmpty)
}

func TestSynthesizeNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model blew up", http.StatusInternalServerError)
	}))
	defer server.Close()

	eng := NewHTTPEngine(server.URL)
	_, err := eng.Synthesize(context.Background(), "hello", "ref.wav", "auto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model blew up")
}

func TestSynthesizeEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	eng := NewHTTPEngine(server.URL)
	_, err := eng.Synthesize(context.Background(), "hello", "ref.wav", "auto")
	require.ErrorIs(t, err, ErrEmptyAudio)
}

func TestSynthesizeConnectionError(t *testing.T) {
	eng := NewHTTPEngine("http://127.0.0.1:1")
	_, err := eng.Synthesize(context.Background(), "hello", "ref.wav", "auto")
	require.Error(t, err)
}
