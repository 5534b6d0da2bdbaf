package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"docqa/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribe(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"ما هي العاصمة"}`))
	}))
	defer srv.Close()

	c := NewClient(config.TranscribeConfig{URL: srv.URL, Key: "secret"})
	got := c.Transcribe(context.Background(), []byte("RIFF"))

	assert.Equal(t, "ما هي العاصمة", got)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, []byte("RIFF"), gotBody)
}

func TestTranscribe_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non 200", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c := NewClient(config.TranscribeConfig{URL: srv.URL})
			assert.Equal(t, "", c.Transcribe(context.Background(), []byte("x")))
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		assert.Equal(t, "", NewClient(config.TranscribeConfig{URL: url}).Transcribe(context.Background(), []byte("x")))
	})

	t.Run("not configured", func(t *testing.T) {
		assert.Equal(t, "", NewClient(config.TranscribeConfig{}).Transcribe(context.Background(), []byte("x")))
	})
}

func TestTranscribeFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"text":"` + string(body) + `"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "q.wav")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	c := NewClient(config.TranscribeConfig{URL: srv.URL})
	assert.Equal(t, "hello", c.TranscribeFile(context.Background(), path))
	assert.Equal(t, "", c.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav")))
}
