package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"

	BackendChromem  = "chromem"
	BackendPostgres = "postgres"

	ChunkerWindow    = "window"
	ChunkerRecursive = "recursive"

	AttributionFirst    = "first"
	AttributionMajority = "majority"
)

type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RAGConfig struct {
	ChunkSize       int    `yaml:"chunk_size"`
	ChunkOverlap    int    `yaml:"chunk_overlap"`
	Chunker         string `yaml:"chunker"`
	TopK            int    `yaml:"top_k"`
	Attribution     string `yaml:"attribution"`
	NotFoundMarker  string `yaml:"not_found_marker"`
	RemoveStopwords bool   `yaml:"remove_stopwords"`
}

type HistoryConfig struct {
	MaxTurns int `yaml:"max_turns"`
	MaxChars int `yaml:"max_chars"`
}

type IndexConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
	VectorSize    int    `yaml:"vector_size"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type OCRConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Binary   string `yaml:"binary"`
	Language string `yaml:"language"`
	// ImageDir receives page images rasterized for OCR.
	ImageDir string `yaml:"image_dir"`
}

type TranscribeConfig struct {
	URL            string `yaml:"url"`
	Key            string `yaml:"key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type AnalysisConfig struct {
	TopWords int    `yaml:"top_words"`
	FontPath string `yaml:"font_path"`
	ShapeRTL bool   `yaml:"shape_rtl"`
}

type Config struct {
	LogLevel   string           `yaml:"log_level"`
	LLM        LLMConfig        `yaml:"llm"`
	EmbedLLM   LLMConfig        `yaml:"embed_llm"`
	RAG        RAGConfig        `yaml:"rag"`
	History    HistoryConfig    `yaml:"history"`
	Index      IndexConfig      `yaml:"index"`
	Database   DatabaseConfig   `yaml:"database"`
	OCR        OCRConfig        `yaml:"ocr"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
}

// LoadConfig reads the yaml file at path, falls back to defaults when it
// does not exist and lets the environment (and a .env file) override it.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := baseConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, cfg.Validate()
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := baseConfig()
	applyDefaults(cfg)
	return cfg
}

// baseConfig holds the defaults for settings where zero is a meaningful
// value: no chunk overlap, no history limit. The yaml file overrides them
// only when it sets the key.
func baseConfig() *Config {
	return &Config{
		RAG:     RAGConfig{ChunkOverlap: 40},
		History: HistoryConfig{MaxTurns: 10, MaxChars: 8000},
	}
}

func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be > 0, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be > 0, got %d", c.RAG.TopK)
	}
	switch c.RAG.Chunker {
	case ChunkerWindow, ChunkerRecursive:
	default:
		return fmt.Errorf("unknown rag.chunker: %s", c.RAG.Chunker)
	}
	switch c.RAG.Attribution {
	case AttributionFirst, AttributionMajority:
	default:
		return fmt.Errorf("unknown rag.attribution: %s", c.RAG.Attribution)
	}
	switch c.Index.Backend {
	case BackendChromem:
	case BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres index backend")
		}
	default:
		return fmt.Errorf("unknown index.backend: %s", c.Index.Backend)
	}
	for _, p := range []string{c.LLM.Provider, c.EmbedLLM.Provider} {
		switch p {
		case ProviderGoogleAI, ProviderOpenAI, ProviderOllama:
		default:
			return fmt.Errorf("unknown llm provider: %s", p)
		}
	}
	if c.History.MaxTurns < 0 || c.History.MaxChars < 0 {
		return errors.New("history limits must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.LLM.Key = v
		if cfg.EmbedLLM.Key == "" {
			cfg.EmbedLLM.Key = v
		}
	}
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.EmbedLLM.Provider, "EMBEDDING_PROVIDER")
	setString(&cfg.EmbedLLM.Model, "EMBEDDING_MODEL")
	setString(&cfg.Index.Path, "FAISS_INDEX_PATH")
	setString(&cfg.Index.Path, "INDEX_PATH")
	setString(&cfg.Index.Backend, "INDEX_BACKEND")
	setString(&cfg.Analysis.FontPath, "FONT_PATH")
	setString(&cfg.Transcribe.URL, "HUGGINGFACE_URL_MODEL")
	setString(&cfg.Transcribe.Key, "HUGGINGFACE_API")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	if v := os.Getenv("RAG_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.RAG.TopK = k
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderGoogleAI
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultChatModel(cfg.LLM.Provider)
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = cfg.LLM.Provider
	}
	if cfg.EmbedLLM.Key == "" {
		cfg.EmbedLLM.Key = cfg.LLM.Key
	}
	if cfg.EmbedLLM.BaseURL == "" && cfg.EmbedLLM.Provider == cfg.LLM.Provider {
		cfg.EmbedLLM.BaseURL = cfg.LLM.BaseURL
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = defaultEmbeddingModel(cfg.EmbedLLM.Provider)
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1200
	}
	if cfg.RAG.Chunker == "" {
		cfg.RAG.Chunker = ChunkerWindow
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 9
	}
	if cfg.RAG.Attribution == "" {
		cfg.RAG.Attribution = AttributionFirst
	}
	if cfg.RAG.NotFoundMarker == "" {
		cfg.RAG.NotFoundMarker = "غير موجودة"
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendChromem
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "./chromemdb"
	}
	if cfg.Index.VectorSize == 0 {
		cfg.Index.VectorSize = 768
	}
	if cfg.OCR.Binary == "" {
		cfg.OCR.Binary = "tesseract"
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "ara"
	}
	if cfg.OCR.ImageDir == "" {
		cfg.OCR.ImageDir = "./temp"
	}
	if cfg.Transcribe.TimeoutSeconds == 0 {
		cfg.Transcribe.TimeoutSeconds = 60
	}
	if cfg.Analysis.TopWords == 0 {
		cfg.Analysis.TopWords = 5
	}
	if cfg.Analysis.FontPath == "" {
		cfg.Analysis.FontPath = "arial"
	}
}

func defaultChatModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderOllama:
		return "llama3.2"
	default:
		return "gemini-1.5-flash"
	}
}

func defaultEmbeddingModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "text-embedding-3-small"
	case ProviderOllama:
		return "nomic-embed-text"
	default:
		return "embedding-001"
	}
}
