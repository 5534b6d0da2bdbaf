package models

import "time"

// Page is the extracted text of one document page. Number is 0-based.
type Page struct {
	Number int
	Text   string
	Images []string
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	PageNumber int    `json:"page"` // 0-based
	ChunkID    int    `json:"chunk_id"`
	Source     string `json:"source"`
}

// Match is a retrieved chunk with its similarity score.
type Match struct {
	Content    string
	PageNumber int // 0-based
	ChunkID    int
	Score      float32
}

// Turn is one question/answer exchange of a chat history.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Page     int       `json:"page"`
	At       time.Time `json:"at"`
}

// AnswerResult is what a question returns to the caller. Page is 1-based,
// or NoPage when the answer has no attribution.
type AnswerResult struct {
	Content string `json:"content"`
	Page    int    `json:"page"`
}

// IndexHandle identifies the persisted vector index of one document.
type IndexHandle struct {
	Name   string
	Chunks int
	Reused bool
}

// WordCount is a word frequency entry.
type WordCount struct {
	Word      string `json:"word"`
	Frequency int    `json:"frequency"`
}
