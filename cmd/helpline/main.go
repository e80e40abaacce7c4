// Package main is the helpline CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/cli"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/config"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/corpus"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/embedding"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/models"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/retriever"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/server"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/storage"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/watcher"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/helpline/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Optional .env makes OPENAI_API_KEY available in development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve":
		runServe()
	case "ask":
		runAsk()
	case "search":
		runSearch()
	case "build":
		runBuild()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("helpline version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Index, components.Embedder, components.Storage, cfg, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Corpus.Path != "" && cfg.Watch.EnabledOrDefault() {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(cfg.Corpus.Path, func() {
			logger.Info("corpus file changed, rebuilding index")
			if err := srv.Rebuild(context.Background(), corpus.NewFileSource(cfg.Corpus.Path)); err != nil {
				logger.Warn("corpus rebuild failed, keeping previous index", zap.Error(err))
			}
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start corpus watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQuery joins all positional args with spaces so multi-word queries work
// the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func parseFormat(name string) (cli.OutputFormat, error) {
	switch name {
	case "json":
		return cli.OutputJSON, nil
	case "text":
		return cli.OutputText, nil
	default:
		return cli.OutputText, fmt.Errorf("unknown output format %q; use text or json", name)
	}
}

func runAsk() {
	askArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct index access)`)
	threshold := fs.Float64("threshold", -1, "minimum similarity for a match (default from config, or 0.6)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(askArgs)

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: helpline ask [flags] <question>")
		os.Exit(1)
	}
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	query := &models.AskQuery{Query: queryStr}
	if *threshold >= 0 {
		query.Threshold = threshold
	}

	if *serverURL != "" {
		resp, err := askViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteAskResult(os.Stdout, resp, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	th := cfg.Retrieval.ThresholdOrDefault()
	if query.Threshold != nil {
		th = *query.Threshold
	}
	match, ok, err := components.Index.BestAnswer(context.Background(), queryStr, th)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	resp := &models.AskResponse{Matched: ok, Query: queryStr}
	if ok {
		resp.Answer = match.FAQ.Answer
		resp.Question = match.FAQ.Question
		resp.Category = match.FAQ.Category
		resp.Score = match.Score
	}
	if err := cli.WriteAskResult(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSearch() {
	searchArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct index access)`)
	topK := fs.Int("top-k", 0, "number of results (default from config, or 3)")
	threshold := fs.Float64("threshold", -1, "minimum similarity score (default from config, or 0.6)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgs)

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: helpline search [flags] <query>")
		os.Exit(1)
	}
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	query := &models.SearchQuery{Query: queryStr, TopK: *topK}
	if *threshold >= 0 {
		query.Threshold = threshold
	}

	if *serverURL != "" {
		resp, err := searchViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, resp, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	k := query.TopK
	if k <= 0 {
		k = cfg.Retrieval.TopK
	}
	th := cfg.Retrieval.ThresholdOrDefault()
	if query.Threshold != nil {
		th = *query.Threshold
	}
	start := time.Now()
	matches, err := components.Index.Search(context.Background(), queryStr, k, th)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	resp := &models.SearchResponse{
		Results:   matches,
		Total:     len(matches),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     queryStr,
	}
	if err := cli.WriteSearchResults(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, query *models.AskQuery) (*models.AskResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	_, components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	faqs, err := components.Storage.Corpus(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load corpus: %v\n", err)
		os.Exit(1)
	}
	if err := components.Index.Rebuild(context.Background(), faqs); err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d FAQ(s) with model %s (dimension %d)\n",
		components.Index.Size(), components.Index.ModelID(), components.Index.Dimension())
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct access)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	status := map[string]interface{}{}
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, components, logger := mustInitialize(*configPath)
		defer logger.Sync()
		defer components.Close()

		count, err := components.Storage.CountFAQs(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count failed: %v\n", err)
			os.Exit(1)
		}
		status["stored_faqs"] = count
		status["indexed_faqs"] = components.Index.Size()
		status["dimension"] = components.Index.Dimension()
		status["model"] = components.Index.ModelID()
		if diskBytes, err := storage.DiskUsageBytes(
			cfg.Storage.DatabasePath, cfg.Storage.VectorIndexPath, cfg.Storage.MetadataPath,
		); err == nil {
			status["disk_usage_bytes"] = diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		for _, key := range []string{"stored_faqs", "indexed_faqs", "dimension", "model", "disk_usage_bytes"} {
			if v, ok := status[key]; ok {
				fmt.Printf("%-18s %v\n", key+":", v)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Index    *retriever.Index
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func mustInitialize(configPath string) (*config.Config, *Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return cfg, components, logger
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder := newEmbedder(cfg, logger)

	ix := retriever.New(embedder, retriever.Paths{
		Vectors: cfg.Storage.VectorIndexPath,
		Records: cfg.Storage.MetadataPath,
	}, retriever.WithLogger(logger))

	ctx := context.Background()
	if err := seedFromCorpusFile(ctx, cfg, store, logger); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := ix.Open(ctx, storageSource{store}); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open retrieval index: %w", err)
	}

	return &Components{Storage: store, Embedder: embedder, Index: ix}, nil
}

// newEmbedder selects the configured backend, falling back to the
// deterministic mock so the service still starts without credentials or a
// model file.
func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	var (
		embedder embedding.Embedder
		err      error
	)
	switch cfg.Embedding.Provider {
	case "openai":
		embedder, err = embedding.NewOpenAIEmbedder(cfg.Embedding.Model)
	case "onnx":
		embedder, err = embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath, cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens)
	default:
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	if err != nil {
		logger.Warn("embedder unavailable, falling back to mock",
			zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	return embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)
}

// seedFromCorpusFile imports the corpus file into an empty database so a
// fresh deployment is answerable out of the box. A non-empty database wins;
// the file is only a seed.
func seedFromCorpusFile(ctx context.Context, cfg *config.Config, store storage.Storage, logger *zap.Logger) error {
	if cfg.Corpus.Path == "" {
		return nil
	}
	count, err := store.CountFAQs(ctx)
	if err != nil {
		return fmt.Errorf("count faqs: %w", err)
	}
	if count > 0 {
		return nil
	}
	if _, err := os.Stat(cfg.Corpus.Path); os.IsNotExist(err) {
		return nil
	}
	faqs, err := corpus.NewFileSource(cfg.Corpus.Path).Load(ctx)
	if err != nil {
		return fmt.Errorf("seed corpus: %w", err)
	}
	for i := range faqs {
		entry := &models.FAQEntry{
			Key:        uuid.New().String(),
			Question:   faqs[i].Question,
			Variations: faqs[i].Variations,
			Answer:     faqs[i].Answer,
			Category:   faqs[i].Category,
		}
		if err := store.CreateFAQ(ctx, entry); err != nil {
			return fmt.Errorf("seed faq %d: %w", i, err)
		}
	}
	logger.Info("seeded database from corpus file",
		zap.String("path", cfg.Corpus.Path), zap.Int("faqs", len(faqs)))
	return nil
}

// storageSource adapts the FAQ database to the corpus Source interface.
type storageSource struct {
	store storage.Storage
}

func (s storageSource) Load(ctx context.Context) ([]models.FAQ, error) {
	return s.store.Corpus(ctx)
}

func printUsage() {
	fmt.Println(`helpline - semantic FAQ retrieval for telecom customer support

Usage:
  helpline serve [flags]           Start the HTTP server
  helpline ask [flags] <question>  Get the best FAQ answer for a question
  helpline search [flags] <query>  List matching FAQs with scores
  helpline build [flags]           Rebuild the retrieval index from storage
  helpline status [flags]          Show storage and index status
  helpline version                 Show version
  helpline help                    Show this help

Serve Flags:
  --config string    Config file path (default: /usr/local/etc/helpline/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string     Config file path (for direct mode)
  --server string     Server URL (default: http://localhost:8080). Use --server "" for direct index access.
  --threshold float   Minimum similarity for a match (default from config, or 0.6)
  --output string     Output format: text or json (default: text)

Search Flags:
  --config string     Config file path (for direct mode)
  --server string     Server URL (default: http://localhost:8080). Use --server "" for direct index access.
  --top-k int         Number of results (default from config, or 3)
  --threshold float   Minimum similarity score (default from config, or 0.6)
  --output string     Output format: text or json (default: text)

Examples:
  helpline serve
  helpline ask "mera balance kaise check kare"
  helpline ask --threshold 0.5 how do I recharge
  helpline search --output json "slow internet"
  helpline build
  helpline status --output json`)
}
