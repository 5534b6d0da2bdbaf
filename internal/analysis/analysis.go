// Package analysis produces the document overview shown next to the chat:
// a model-written summary and the most frequent words.
package analysis

import (
	"context"
	"sort"
	"strings"

	"docqa/internal/config"
	"docqa/internal/llmservice"
	"docqa/internal/models"
	"docqa/internal/normalizer"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

const DefaultTopWords = 5

// Report is the overview of one document.
type Report struct {
	Summary    string             `json:"summary"`
	TopWords   []models.WordCount `json:"top_words"`
	TotalPages int                `json:"total_pages"`
	Cloud      CloudInput         `json:"cloud"`
}

// TopWords counts the whitespace separated words of the normalized text and
// returns the n most frequent. Equal counts keep first-occurrence order.
func TopWords(text string, n int, opts normalizer.Options) []models.WordCount {
	if n <= 0 {
		n = DefaultTopWords
	}

	counts := make(map[string]int)
	var order []string
	for _, w := range strings.Fields(normalizer.NormalizeWith(text, opts)) {
		if _, ok := counts[w]; !ok {
			order = append(order, w)
		}
		counts[w]++
	}

	words := make([]models.WordCount, len(order))
	for i, w := range order {
		words[i] = models.WordCount{Word: w, Frequency: counts[w]}
	}
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Frequency > words[j].Frequency
	})

	if len(words) > n {
		words = words[:n]
	}
	return words
}

// CloudInput is what an external word cloud renderer needs.
type CloudInput struct {
	Words    []models.WordCount `json:"words"`
	FontPath string             `json:"font_path"`
}

// NewCloudInput prepares the word list for rendering. Renderers without
// bidi support get every word with its runes reversed when shapeRTL is set.
func NewCloudInput(words []models.WordCount, cfg config.AnalysisConfig) CloudInput {
	out := make([]models.WordCount, len(words))
	for i, w := range words {
		out[i] = w
		if cfg.ShapeRTL {
			out[i].Word = reverseRunes(w.Word)
		}
	}
	return CloudInput{Words: out, FontPath: cfg.FontPath}
}

func reverseRunes(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

type Summarizer struct {
	model  llms.Model
	prompt prompts.PromptTemplate
}

func NewSummarizer(model llms.Model) *Summarizer {
	return &Summarizer{
		model:  model,
		prompt: prompts.NewPromptTemplate(models.SummaryPrompt, []string{"document"}),
	}
}

// Summarize asks the model for an Arabic summary of text, formatted as a
// markdown block. Failures are logged and give an empty summary.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	prompt, err := s.prompt.Format(map[string]any{"document": text})
	if err != nil {
		log.Error().Err(err).Msg("Error formatting summary prompt")
		return ""
	}

	summary, err := llmservice.GenerateContent(ctx, s.model, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		log.Error().Err(err).Msg("Error summarizing document")
		return ""
	}
	return FormatSummary(summary)
}

// FormatSummary turns bullet characters into markdown list items and fences
// the result.
func FormatSummary(summary string) string {
	summary = strings.ReplaceAll(summary, "•", "  *")
	return "```markdown\n" + summary + "\n```"
}

// Analyzer builds reports.
type Analyzer struct {
	summarizer *Summarizer
	cfg        config.AnalysisConfig
	opts       normalizer.Options
}

func NewAnalyzer(summarizer *Summarizer, cfg config.AnalysisConfig, opts normalizer.Options) *Analyzer {
	return &Analyzer{summarizer: summarizer, cfg: cfg, opts: opts}
}

func (a *Analyzer) Report(ctx context.Context, fullText string, totalPages int) Report {
	words := TopWords(fullText, a.cfg.TopWords, a.opts)
	return Report{
		Summary:    a.summarizer.Summarize(ctx, fullText),
		TopWords:   words,
		TotalPages: totalPages,
		Cloud:      NewCloudInput(words, a.cfg),
	}
}
