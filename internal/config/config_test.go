package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"GOOGLE_API_KEY", "LLM_PROVIDER", "LLM_MODEL", "EMBEDDING_PROVIDER", "EMBEDDING_MODEL",
		"FAISS_INDEX_PATH", "INDEX_PATH", "INDEX_BACKEND", "FONT_PATH", "HUGGINGFACE_URL_MODEL",
		"HUGGINGFACE_API", "DATABASE_URL", "LOG_LEVEL", "RAG_TOP_K",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderGoogleAI, cfg.LLM.Provider)
	assert.Equal(t, "gemini-1.5-flash", cfg.LLM.Model)
	assert.Equal(t, "embedding-001", cfg.EmbedLLM.Model)
	assert.Equal(t, 1200, cfg.RAG.ChunkSize)
	assert.Equal(t, 40, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 9, cfg.RAG.TopK)
	assert.Equal(t, ChunkerWindow, cfg.RAG.Chunker)
	assert.Equal(t, AttributionFirst, cfg.RAG.Attribution)
	assert.Equal(t, "غير موجودة", cfg.RAG.NotFoundMarker)
	assert.False(t, cfg.RAG.RemoveStopwords)
	assert.Equal(t, BackendChromem, cfg.Index.Backend)
	assert.Equal(t, "./chromemdb", cfg.Index.Path)
	assert.Equal(t, 10, cfg.History.MaxTurns)
	assert.Equal(t, 8000, cfg.History.MaxChars)
	assert.Equal(t, 5, cfg.Analysis.TopWords)
}

func TestLoadConfig_ExplicitZeros(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
rag:
  chunk_overlap: 0
history:
  max_turns: 0
  max_chars: 0
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 0, cfg.History.MaxTurns)
	assert.Equal(t, 0, cfg.History.MaxChars)
	assert.Equal(t, 1200, cfg.RAG.ChunkSize)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
llm:
  provider: openai
  base_url: http://localhost:8080/v1
rag:
  chunk_size: 500
  chunk_overlap: 20
  attribution: majority
history:
  max_turns: 3
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("GOOGLE_API_KEY", "secret")
	t.Setenv("FAISS_INDEX_PATH", "/tmp/faiss")
	t.Setenv("FONT_PATH", "/fonts/amiri.ttf")
	t.Setenv("HUGGINGFACE_URL_MODEL", "http://asr.local")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, ProviderOpenAI, cfg.EmbedLLM.Provider)
	assert.Equal(t, "http://localhost:8080/v1", cfg.EmbedLLM.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbedLLM.Model)
	assert.Equal(t, "secret", cfg.LLM.Key)
	assert.Equal(t, "secret", cfg.EmbedLLM.Key)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 20, cfg.RAG.ChunkOverlap)
	assert.Equal(t, AttributionMajority, cfg.RAG.Attribution)
	assert.Equal(t, 3, cfg.History.MaxTurns)
	assert.Equal(t, "/tmp/faiss", cfg.Index.Path)
	assert.Equal(t, "/fonts/amiri.ttf", cfg.Analysis.FontPath)
	assert.Equal(t, "http://asr.local", cfg.Transcribe.URL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap too large", func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }},
		{"bad chunker", func(c *Config) { c.RAG.Chunker = "sentence" }},
		{"bad attribution", func(c *Config) { c.RAG.Attribution = "vote" }},
		{"bad backend", func(c *Config) { c.Index.Backend = "faiss" }},
		{"postgres without url", func(c *Config) { c.Index.Backend = BackendPostgres }},
		{"bad provider", func(c *Config) { c.LLM.Provider = "bedrock" }},
		{"negative history", func(c *Config) { c.History.MaxTurns = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
