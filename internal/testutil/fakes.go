// Package testutil holds deterministic stand-ins for the embedding and
// generative model services.
package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

const HashDimension = 256

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashEmbedder is a bag-of-words embedder: every token increments one
// hashed dimension. Texts without tokens embed to the zero vector.
type HashEmbedder struct {
	Err error

	mu    sync.Mutex
	Calls int
}

func (h *HashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	h.Calls++
	h.mu.Unlock()
	if h.Err != nil {
		return nil, h.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func (h *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	return hashVector(text), nil
}

func hashVector(text string) []float32 {
	v := make([]float32, HashDimension)
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		v[h.Sum32()%HashDimension]++
	}
	return v
}

// ScriptedLLM answers with Respond and records every request.
type ScriptedLLM struct {
	Respond func(messages []llms.MessageContent) (string, error)

	mu       sync.Mutex
	Requests [][]llms.MessageContent
}

func (s *ScriptedLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.mu.Lock()
	s.Requests = append(s.Requests, messages)
	s.mu.Unlock()

	if s.Respond == nil {
		return nil, errors.New("no response scripted")
	}
	text, err := s.Respond(messages)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (s *ScriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

// LastRequest returns the messages of the most recent call.
func (s *ScriptedLLM) LastRequest() []llms.MessageContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Requests) == 0 {
		return nil
	}
	return s.Requests[len(s.Requests)-1]
}

// MessageText joins the text parts of a message.
func MessageText(m llms.MessageContent) string {
	var b strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(llms.TextContent); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}
