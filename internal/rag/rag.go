package rag

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/config"
	"docqa/internal/llmservice"
	"docqa/internal/models"
	"docqa/internal/normalizer"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// RAG answers questions about one indexed document using retrieved chunks
// and the conversation so far.
type RAG struct {
	retriever *Retriever
	model     llms.Model
	rag       config.RAGConfig
	history   config.HistoryConfig
	prompt    prompts.PromptTemplate
}

func NewRAG(retriever *Retriever, model llms.Model, ragConfig config.RAGConfig, historyConfig config.HistoryConfig) *RAG {
	if ragConfig.TopK <= 0 {
		ragConfig.TopK = DefaultTopK
	}
	if ragConfig.NotFoundMarker == "" {
		ragConfig.NotFoundMarker = models.DefaultNotFoundMarker
	}
	if ragConfig.Attribution == "" {
		ragConfig.Attribution = config.AttributionFirst
	}
	return &RAG{
		retriever: retriever,
		model:     model,
		rag:       ragConfig,
		history:   historyConfig,
		prompt:    prompts.NewPromptTemplate(models.SystemPromptTemplate, []string{"context"}),
	}
}

// Answer never fails: any error along the way yields the fixed error answer
// with no page.
func (r *RAG) Answer(ctx context.Context, index, question string, history []models.Turn) (result models.AnswerResult) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("index", index).Msg("Error answering question")
			result = models.AnswerResult{Content: models.ErrorAnswer, Page: models.NoPage}
		}
	}()

	res, err := r.answer(ctx, index, question, history)
	if err != nil {
		log.Error().Err(err).Str("index", index).Msg("Error answering question")
		return models.AnswerResult{Content: models.ErrorAnswer, Page: models.NoPage}
	}
	return res
}

func (r *RAG) answer(ctx context.Context, index, question string, history []models.Turn) (models.AnswerResult, error) {
	query := normalizer.NormalizeWith(question, normalizer.Options{RemoveStopwords: r.rag.RemoveStopwords})
	request := ComposeRequest(RenderHistory(history, r.history.MaxTurns, r.history.MaxChars), query)

	matches, err := r.retriever.Retrieve(ctx, index, query, r.rag.TopK)
	if err != nil {
		return models.AnswerResult{}, fmt.Errorf("failed to retrieve context: %w", err)
	}

	contents := make([]string, len(matches))
	for i, m := range matches {
		contents[i] = m.Content
	}
	systemPrompt, err := r.prompt.Format(map[string]any{
		"context": strings.Join(contents, models.ContextSeparator),
	})
	if err != nil {
		return models.AnswerResult{}, fmt.Errorf("failed to format prompt: %w", err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, request),
	}
	content, err := llmservice.GenerateContent(ctx, r.model, messages)
	if err != nil {
		return models.AnswerResult{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	page := AttributePage(matches, r.rag.Attribution)
	if page != models.NoPage && strings.Contains(content, r.rag.NotFoundMarker) {
		page = models.NoPage
	}

	log.Debug().Str("index", index).Int("matches", len(matches)).Int("page", page).Msg("Answered question")
	return models.AnswerResult{Content: content, Page: page}, nil
}

// RenderHistory writes the most recent turns as "User: ..." / "AI: ..." lines,
// oldest first. maxTurns and maxChars of zero mean no limit; the oldest turns
// are dropped until both limits hold.
func RenderHistory(history []models.Turn, maxTurns, maxChars int) string {
	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	lines := make([]string, len(history))
	total := 0
	for i, turn := range history {
		lines[i] = fmt.Sprintf("User: %s\nAI: %s", turn.Question, turn.Answer)
		total += len([]rune(lines[i]))
	}
	if len(lines) > 0 {
		total += len(lines) - 1
	}

	for maxChars > 0 && total > maxChars && len(lines) > 0 {
		total -= len([]rune(lines[0]))
		if len(lines) > 1 {
			total--
		}
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// ComposeRequest builds the human message sent with every question.
func ComposeRequest(history, question string) string {
	return models.SystemInstructions + "\n\nChat History:\n" + history + "\n\nUser: " + question
}

// AttributePage picks the 1-based page an answer is attributed to, or
// models.NoPage without matches. "first" takes the page of the most similar
// chunk; "majority" takes the page holding most of the matches, ties going to
// the page seen first.
func AttributePage(matches []models.Match, strategy string) int {
	if len(matches) == 0 {
		return models.NoPage
	}

	tally := make(map[int]int)
	order := make([]int, 0, len(matches))
	for _, m := range matches {
		if _, ok := tally[m.PageNumber]; !ok {
			order = append(order, m.PageNumber)
		}
		tally[m.PageNumber]++
	}
	log.Debug().Interface("pages", tally).Msg("Page tally")

	if strategy != config.AttributionMajority {
		return matches[0].PageNumber + 1
	}

	best := order[0]
	for _, p := range order[1:] {
		if tally[p] > tally[best] {
			best = p
		}
	}
	return best + 1
}
