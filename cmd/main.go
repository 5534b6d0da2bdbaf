package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docqa/internal/app"
	"docqa/internal/config"
	"docqa/internal/helper"
	"docqa/internal/models"
	"docqa/internal/parser"
)

const configFilePath = "./configs/config.yaml"

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the document file")
	query := flag.String("query", "", "Question to be answered")
	chat := flag.Bool("chat", false, "Ask questions interactively from stdin")
	audio := flag.String("audio", "", "Path to a recorded question")
	analyze := flag.Bool("analyze", false, "Print a summary and the most frequent words")
	rebuild := flag.Bool("rebuild", false, "Rebuild the index even if one exists")
	dryRun := flag.Bool("dry-run", false, "Dry run, print the chunks without indexing")
	export := flag.String("export", "", "Write the document index to this file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(cfg.LogLevel)
	log.Debug().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Str("backend", cfg.Index.Backend).Msg("Loaded config")

	if *filePath == "" {
		log.Fatal().Msg("Please provide a document file using the -file flag")
	}
	if ext := strings.ToLower(filepath.Ext(*filePath)); !slices.Contains(parser.SupportedExtensions(), ext) {
		log.Fatal().Str("extension", ext).Strs("supported", parser.SupportedExtensions()).Msg("Unsupported document format")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing")
	}
	defer a.Close()

	if *dryRun {
		chunks, err := a.Chunks(ctx, *filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error parsing document")
		}
		log.Info().Msgf("Parsed %d chunks", len(chunks))
		helper.PrettyPrint(chunks)
		return
	}

	sess, err := a.Upload(ctx, *filePath, *rebuild)
	if err != nil {
		log.Fatal().Err(err).Msg("Error indexing document")
	}
	name := sess.Name
	log.Info().Str("document", name).Str("path", sess.Path()).Int("pages", sess.TotalPages()).Msg("Document is ready")

	if *export != "" {
		if err := a.Export(ctx, name, *export); err != nil {
			log.Fatal().Err(err).Msg("Error exporting index")
		}
		log.Info().Str("file", *export).Msg("Exported index")
	}

	if *analyze {
		report, err := a.Analyze(ctx, name)
		if err != nil {
			log.Fatal().Err(err).Msg("Error analyzing document")
		}
		log.Info().Msg("Summary: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", report.Summary)
		log.Info().Msg("Top words: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		helper.PrettyPrint(report.Cloud)
	}

	if *audio != "" {
		question, res, err := a.AskAudio(ctx, name, *audio)
		if errors.Is(err, app.ErrEmptyQuestion) {
			log.Warn().Str("file", filepath.Base(*audio)).Msg("Nothing was heard in the recording")
		} else {
			printAnswer(question, res)
		}
	}

	if *query != "" {
		res, err := a.Ask(ctx, name, *query)
		if err != nil && !errors.Is(err, app.ErrNotReady) {
			log.Fatal().Err(err).Msg("Error querying")
		}
		printAnswer(*query, res)
	}

	if *chat {
		runChat(ctx, a, name)
	}
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

// runChat answers one question per line until EOF or "exit".
func runChat(ctx context.Context, a *app.App, name string) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" {
			break
		}
		res, err := a.Ask(ctx, name, question)
		if err != nil && !errors.Is(err, app.ErrNotReady) {
			log.Error().Err(err).Msg("Error querying")
			continue
		}
		printAnswer(question, res)
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Error reading input")
	}
}

func printAnswer(question string, res models.AnswerResult) {
	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", question)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", res.Content)

	if res.Page != models.NoPage {
		log.Info().Msg("Page: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%d\n\n", res.Page)
	}
}
