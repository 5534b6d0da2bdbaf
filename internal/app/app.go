// Package app wires configuration, models, index storage and sessions into
// the operations the command line exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"docqa/internal/analysis"
	"docqa/internal/chromemdb"
	"docqa/internal/config"
	"docqa/internal/db"
	"docqa/internal/embedding"
	"docqa/internal/helper"
	"docqa/internal/llmservice"
	"docqa/internal/models"
	"docqa/internal/ocr"
	"docqa/internal/parser"
	"docqa/internal/rag"
	"docqa/internal/session"
	"docqa/internal/transcribe"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
)

var (
	ErrNotReady      = errors.New("document is not ready")
	ErrEmptyQuestion = errors.New("empty question")
)

// Transcriber turns an audio file into text, "" when nothing was heard.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) string
}

// Deps are the external services an App talks to.
type Deps struct {
	Embedder    embeddings.Embedder
	Model       llms.Model
	Store       rag.IndexStore
	Extractor   rag.PageExtractor
	Transcriber Transcriber
	Close       func() error
}

type App struct {
	cfg         *config.Config
	sessions    *session.Store
	store       rag.IndexStore
	extractor   rag.PageExtractor
	chunker     *parser.Chunker
	indexer     *rag.Indexer
	rag         *rag.RAG
	analyzer    *analysis.Analyzer
	transcriber Transcriber
	close       func() error
}

// New connects every service named in cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	model, err := llmservice.NewModel(ctx, &cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	store, closeStore, err := NewIndexStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	extractor, err := NewExtractor(&cfg.OCR)
	if err != nil {
		return nil, err
	}

	return NewWithDeps(cfg, Deps{
		Embedder:    embedder,
		Model:       model,
		Store:       store,
		Extractor:   extractor,
		Transcriber: transcribe.NewClient(cfg.Transcribe),
		Close:       closeStore,
	}), nil
}

func NewWithDeps(cfg *config.Config, deps Deps) *App {
	chunker := parser.NewChunker(&cfg.RAG)
	retriever := rag.NewRetriever(deps.Embedder, deps.Store)
	return &App{
		cfg:         cfg,
		sessions:    session.NewStore(),
		store:       deps.Store,
		extractor:   deps.Extractor,
		chunker:     chunker,
		indexer:     rag.NewIndexer(deps.Extractor, chunker, deps.Embedder, deps.Store),
		rag:         rag.NewRAG(retriever, deps.Model, cfg.RAG, cfg.History),
		analyzer:    analysis.NewAnalyzer(analysis.NewSummarizer(deps.Model), cfg.Analysis, chunker.Normalize),
		transcriber: deps.Transcriber,
		close:       deps.Close,
	}
}

// NewIndexStore opens the configured vector index backend.
func NewIndexStore(ctx context.Context, cfg *config.Config) (rag.IndexStore, func() error, error) {
	switch cfg.Index.Backend {
	case config.BackendPostgres:
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store := db.NewStore(db.NewDB(sqldb, cfg.Database.Debug), cfg.Index.VectorSize)
		if err := store.InitDB(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := chromemdb.NewVectorDBManager(cfg.Index.Path, false, cfg.Index.Compress, cfg.Index.EncryptionKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open vector index: %w", err)
		}
		return store, func() error { return nil }, nil
	}
}

// NewExtractor returns a document extractor, with OCR when it is enabled and
// the tools are installed.
func NewExtractor(cfg *config.OCRConfig) (*parser.Extractor, error) {
	extractor := &parser.Extractor{ImageDir: cfg.ImageDir}
	if !cfg.Enabled {
		return extractor, nil
	}

	tesseract := ocr.NewTesseract(cfg.Binary, cfg.Language)
	if !tesseract.Available() {
		log.Warn().Str("binary", tesseract.Binary).Msg("OCR is enabled but tesseract was not found")
		return extractor, nil
	}
	extractor.OCR = tesseract

	if err := helper.CreateFolder(cfg.ImageDir); err != nil {
		return nil, err
	}
	if pdftoppm := ocr.NewPdfToPPM(); pdftoppm.Available() {
		extractor.Rasterizer = pdftoppm
	} else {
		log.Warn().Msg("pdftoppm was not found, scanned PDF pages will stay empty")
	}
	return extractor, nil
}

// Upload indexes the document at path and makes it ready for questions. The
// session is keyed by the file name.
func (a *App) Upload(ctx context.Context, path string, rebuild bool) (*session.Session, error) {
	name := filepath.Base(path)
	sess, _ := a.sessions.GetOrCreate(name)

	result, err := a.indexer.BuildIndex(ctx, rag.Document{Name: name, Path: path}, rebuild)
	if err != nil {
		sess.ClearDocument()
		return sess, fmt.Errorf("failed to index %s: %w", name, err)
	}

	texts := make([]string, len(result.Pages))
	for i, p := range result.Pages {
		texts[i] = p.Text
	}
	sess.SetDocument(session.Document{
		Path:       path,
		Hash:       result.Hash,
		Chunks:     result.Chunks,
		TotalPages: result.TotalPages,
		FullText:   strings.Join(texts, "\n"),
		Index:      result.Handle,
	})
	return sess, nil
}

// Ask answers a question about the named document and records the turn.
// Before the document is ready the fixed not-ready answer is returned along
// with ErrNotReady.
func (a *App) Ask(ctx context.Context, name, question string) (models.AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return models.AnswerResult{}, ErrEmptyQuestion
	}

	sess, ok := a.sessions.Get(name)
	if !ok {
		return notReady(name)
	}
	index, ok := sess.Index()
	if !ok {
		return notReady(name)
	}

	res := a.rag.Answer(ctx, index.Name, question, sess.History())
	sess.AppendTurn(question, res.Content, res.Page)
	return res, nil
}

func notReady(name string) (models.AnswerResult, error) {
	log.Warn().Str("document", name).Msg("Question asked before the document was indexed")
	return models.AnswerResult{Content: models.NotReadyAnswer, Page: models.NoPage}, ErrNotReady
}

// AskAudio transcribes the recording and asks it. The transcript is returned
// so callers can show it.
func (a *App) AskAudio(ctx context.Context, name, audioPath string) (string, models.AnswerResult, error) {
	if a.transcriber == nil {
		return "", models.AnswerResult{}, errors.New("transcription is not configured")
	}
	question := a.transcriber.TranscribeFile(ctx, audioPath)
	res, err := a.Ask(ctx, name, question)
	return question, res, err
}

// Analyze reports on the named document.
func (a *App) Analyze(ctx context.Context, name string) (analysis.Report, error) {
	sess, ok := a.sessions.Get(name)
	if !ok || !sess.Ready() {
		return analysis.Report{}, ErrNotReady
	}
	return a.analyzer.Report(ctx, sess.FullText(), sess.TotalPages()), nil
}

// History returns the turns asked about the named document so far.
func (a *App) History(name string) []models.Turn {
	sess, ok := a.sessions.Get(name)
	if !ok {
		return nil
	}
	return sess.History()
}

// Chunks extracts and chunks a document without indexing it.
func (a *App) Chunks(ctx context.Context, path string) ([]models.Chunk, error) {
	pages, err := a.extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}
	hash, err := helper.HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash document: %w", err)
	}
	return a.chunker.ChunkPages(hash, pages)
}

// Export writes the index of the named document to file. Only the chromem
// backend supports it.
func (a *App) Export(ctx context.Context, name, file string) error {
	sess, ok := a.sessions.Get(name)
	if !ok {
		return ErrNotReady
	}
	index, ok := sess.Index()
	if !ok {
		return ErrNotReady
	}
	exporter, ok := a.store.(*chromemdb.VectorDBManager)
	if !ok {
		return fmt.Errorf("index backend %s does not support export", a.cfg.Index.Backend)
	}
	return exporter.Export(ctx, index.Name, file)
}

func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}
