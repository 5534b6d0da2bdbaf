// Package session keeps one conversation per uploaded document.
package session

import (
	"sync"
	"time"

	"docqa/internal/helper"
	"docqa/internal/models"

	"github.com/rs/zerolog/log"
)

// Session holds the state of one uploaded document: its chunks, its index
// and the questions asked about it so far.
type Session struct {
	ID   string
	Name string

	mu         sync.RWMutex
	path       string
	hash       string
	chunks     []models.Chunk
	totalPages int
	fullText   string
	index      *models.IndexHandle
	history    []models.Turn
}

// Document is what a session learns once its file has been indexed.
type Document struct {
	Path       string
	Hash       string
	Chunks     []models.Chunk
	TotalPages int
	FullText   string
	Index      models.IndexHandle
}

// SetDocument records the indexed document. A new index resets the history.
func (s *Session) SetDocument(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil || s.index.Name != doc.Index.Name {
		s.history = nil
	}
	s.path = doc.Path
	s.hash = doc.Hash
	s.chunks = doc.Chunks
	s.totalPages = doc.TotalPages
	s.fullText = doc.FullText
	index := doc.Index
	s.index = &index
}

// ClearDocument drops the indexed document after a failed upload so the
// session stops answering from an index that may no longer exist.
func (s *Session) ClearDocument() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = ""
	s.hash = ""
	s.chunks = nil
	s.totalPages = 0
	s.fullText = ""
	s.index = nil
	s.history = nil
}

// Ready reports whether the session has an index to answer from.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

// Index returns the session's index, or false before one was built.
func (s *Session) Index() (models.IndexHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return models.IndexHandle{}, false
	}
	return *s.index, true
}

func (s *Session) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

func (s *Session) Hash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hash
}

func (s *Session) TotalPages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPages
}

func (s *Session) FullText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullText
}

// Chunks returns a copy of the document chunks.
func (s *Session) Chunks() []models.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Chunk(nil), s.chunks...)
}

// History returns a copy of the turns so far, oldest first.
func (s *Session) History() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Turn(nil), s.history...)
}

// AppendTurn adds a completed question/answer pair to the history.
func (s *Session) AppendTurn(question, answer string, page int) models.Turn {
	turn := models.Turn{Question: question, Answer: answer, Page: page, At: time.Now()}

	s.mu.Lock()
	s.history = append(s.history, turn)
	s.mu.Unlock()
	return turn
}

// Store maps document names to sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for name, creating it on first use.
func (st *Store) GetOrCreate(name string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[name]; ok {
		return s, false
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		log.Warn().Err(err).Msg("Error generating session id")
		id = name
	}
	s := &Session{ID: id, Name: name}
	st.sessions[name] = s
	log.Debug().Str("session", id).Str("document", name).Msg("Created session")
	return s, true
}

func (st *Store) Get(name string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[name]
	return s, ok
}

// Names lists the documents with a session.
func (st *Store) Names() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	names := make([]string, 0, len(st.sessions))
	for name := range st.sessions {
		names = append(names, name)
	}
	return names
}
