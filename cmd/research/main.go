// Command research runs a single deep-research orchestration against a
// query and prints the resulting Markdown report. It replaces the teacher's
// REPL/session/chat application — session persistence and multi-turn
// command handling are out of scope for this spec.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"go-research/internal/config"
	"go-research/internal/llm"
	"go-research/internal/logging"
	"go-research/internal/orchestrator"
	"go-research/internal/progress"
	"go-research/internal/scraper"
	"go-research/internal/search"
)

func main() {
	cfg, err := config.Load(os.Getenv("RESEARCH_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logLevel := "info"
	if cfg.Verbose {
		logLevel = "debug"
	}
	logging.Init(logLevel)

	if cfg.LLMAPIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: OPENROUTER_API_KEY environment variable not set")
		os.Exit(1)
	}

	query := strings.Join(os.Args[1:], " ")
	if query == "" {
		query, err = promptForQuery()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading query: %v\n", err)
			os.Exit(1)
		}
	}
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(os.Stderr, "Error: no research query given")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	chat := llm.NewClient(cfg)
	embedder := llm.NewHTTPEmbedder(cfg)
	searchClient := search.NewHTTPClient(cfg.SearchURL, cfg.SearchAPIKey, 0)

	var converter scraper.Converter
	if cfg.ConvertURL != "" {
		converter = scraper.NewHTTPConverter(cfg.ConvertURL, "")
	}
	scrapeClient := scraper.New(
		scraper.NewHTTPWebFetcher(),
		converter,
		scraper.NewLocalDecoder(),
		cfg.ConcurrencyLimit,
		cfg.ScrapeTimeout,
	)

	sink := progress.SinkFunc(consoleSink)
	orch := orchestrator.New(cfg, chat, searchClient, scrapeClient, embedder, sink)

	result, err := orch.Run(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	color.New(color.FgHiGreen, color.Bold).Println("\n=== Research Complete ===")
	fmt.Println(result.FinalReport)

	color.New(color.Faint).Printf(
		"\n(%d/%d steps, %d sources, %s elapsed, %d iterations)\n",
		result.CompletedSteps, result.TotalSteps, len(result.Sources), result.Metrics.TimeElapsed.Round(1e8), result.Metrics.IterationsCompleted,
	)
}

func promptForQuery() (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "\033[36mresearch query>\033[0m ",
	})
	if err != nil {
		return "", fmt.Errorf("readline init: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func consoleSink(e progress.Event) {
	switch e.Type {
	case progress.EventWarning:
		color.New(color.FgYellow).Println("warning:", activityMessage(e))
	case progress.EventError:
		color.New(color.FgRed).Println("error:", activityMessage(e))
	case progress.EventComplete:
		color.New(color.FgHiGreen).Println("done:", activityMessage(e))
	default:
		color.New(color.Faint).Println(activityMessage(e))
	}
}

func activityMessage(e progress.Event) string {
	if ac, ok := e.Content.(progress.ActivityContent); ok {
		return fmt.Sprintf("[depth %d/%d, %d/%d steps] %s", ac.CurrentDepth, ac.MaxDepth, ac.CompletedSteps, ac.TotalSteps, ac.Message)
	}
	if ic, ok := e.Content.(progress.InitContent); ok {
		return fmt.Sprintf("planned %d total steps across max depth %d", ic.TotalSteps, ic.MaxDepth)
	}
	return ""
}
