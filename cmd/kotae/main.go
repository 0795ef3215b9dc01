// Package main is the kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/completion"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/generate"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default and a
// config.yaml exists in the current directory, that file is used instead.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

type rootOptions struct {
	configPath string
	debug      bool
	output     string
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "kotae",
		Short:        "Answer questions from your HR documents",
		Long:         "kotae ingests documents into a vector index and answers questions about them with a language model.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text or json")

	root.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newAskCmd(opts),
		newGenerateCmd(opts),
		newReviewCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kotae version %s\n", version)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and inbox watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, resolvedPath, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || opts.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolvedPath), zap.Bool("debug", debugMode))

	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize components", zap.Error(err))
		return err
	}
	defer c.Close()

	var serverOpts []server.ServerOption
	if len(cfg.Inbox.Directories) > 0 {
		exts := cfg.Inbox.Extensions
		inbox := watcher.NewWatcher(
			cfg.Inbox.Directories,
			exts,
			cfg.Inbox.RecursiveOrDefault(),
			func(ctx context.Context, path string) error {
				res, err := c.Indexer.IngestFile(ctx, path, exts)
				if errors.Is(err, indexer.ErrSkipped) {
					return nil
				}
				if err != nil {
					return err
				}
				logger.Info("inbox document ingested",
					zap.String("path", path),
					zap.String("ingestion_id", res.IngestionID),
					zap.Int("chunks", res.Chunks),
				)
				return nil
			},
			watcher.WithLogger(logger),
		)
		if err := inbox.Start(ctx); err != nil {
			logger.Error("failed to start inbox watcher", zap.Error(err))
			return err
		}
		defer inbox.Stop()
		serverOpts = append(serverOpts, server.WithWatchService(inbox))
	}

	srv := server.NewServer(c.Indexer, c.Engine, c.Generator, c.VectorIndex, cfg, logger, serverOpts...)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case <-sigCtx.Done():
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
		return err
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
	c.save(cfg, logger)
	return nil
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file-or-directory>...",
		Short: "Ingest documents into the vector index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()
			c, err := initializeComponents(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			results := ingestPaths(cmd.Context(), c.Indexer, args, cfg.Inbox.Extensions)
			c.save(cfg, logger)
			if err := cli.WriteIngestResults(cmd.OutOrStdout(), results, format); err != nil {
				return err
			}
			for _, r := range results {
				if r.Error != "" {
					return errors.New("some documents failed to ingest")
				}
			}
			return nil
		},
	}
}

// ingestPaths ingests each file, walking directories for files whose
// extension is in exts. Files named directly are not filtered.
func ingestPaths(ctx context.Context, idx *indexer.Indexer, paths []string, exts []string) []cli.FileResult {
	var results []cli.FileResult
	ingest := func(path string, allowed []string) {
		r := cli.FileResult{Path: path}
		res, err := idx.IngestFile(ctx, path, allowed)
		switch {
		case errors.Is(err, indexer.ErrSkipped):
			r.Skipped = true
		case err != nil:
			r.Error = err.Error()
		default:
			r.Result = res
		}
		results = append(results, r)
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			results = append(results, cli.FileResult{Path: p, Error: err.Error()})
			continue
		}
		if !info.IsDir() {
			ingest(p, nil)
			continue
		}
		_ = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				results = append(results, cli.FileResult{Path: path, Error: err.Error()})
				return nil
			}
			if d.IsDir() || !indexer.ExtensionAllowed(filepath.Ext(path), exts) {
				return nil
			}
			ingest(path, nil)
			return nil
		})
	}
	return results
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			query := buildQuery(args)
			req := models.QueryRequest{Query: query}
			if err := req.Validate(); err != nil {
				return err
			}

			var answer string
			if serverURL != "" {
				var resp models.QueryResponse
				if err := postJSON(serverURL+"/api/v1/query", req, &resp); err != nil {
					return err
				}
				answer = resp.Result
			} else {
				cfg, logger, err := setup(opts)
				if err != nil {
					return err
				}
				defer logger.Sync()
				c, err := initializeComponents(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer c.Close()
				if answer, err = c.Engine.Ask(cmd.Context(), query); err != nil {
					return err
				}
			}
			return cli.WriteAnswer(cmd.OutOrStdout(), query, answer, format)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "ask a running server at this URL instead of opening the index directly")
	return cmd
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var req models.GenerateRequest
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft an HR document",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			if err := req.Validate(); err != nil {
				return err
			}
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()
			completer, err := completion.New(cmd.Context(), cfg.Completion)
			if err != nil {
				return err
			}
			defer closeQuietly(completer)
			doc, err := generate.NewGenerator(completer, logger).GenerateDocument(cmd.Context(), req)
			if err != nil {
				return err
			}
			return cli.WriteText(cmd.OutOrStdout(), "document", doc, format)
		},
	}
	cmd.Flags().StringVarP(&req.DocumentType, "type", "t", "", "document type, e.g. \"Remote Work Policy\"")
	cmd.Flags().StringVar(&req.AdditionalInfo, "info", "", "additional information for the draft")
	return cmd
}

func newReviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "review <reviews.csv>",
		Short: "Analyze a CSV of performance reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()
			completer, err := completion.New(cmd.Context(), cfg.Completion)
			if err != nil {
				return err
			}
			defer closeQuietly(completer)
			analysis, err := generate.NewGenerator(completer, logger).AnalyzeReviews(cmd.Context(), data)
			if err != nil {
				return err
			}
			return cli.WriteText(cmd.OutOrStdout(), "analysis", analysis, format)
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index and model configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			var status server.StatusResponse
			if serverURL != "" {
				if err := getJSON(serverURL+"/api/v1/status", &status); err != nil {
					return err
				}
			} else {
				cfg, logger, err := setup(opts)
				if err != nil {
					return err
				}
				defer logger.Sync()
				idx, err := vector.New(cmd.Context(), cfg, cfg.Embedding.Dimensions)
				if err != nil {
					return err
				}
				defer idx.Close()
				status = localStatus(cfg, idx)
			}
			if format == cli.OutputJSON {
				return cli.WriteJSON(cmd.OutOrStdout(), status)
			}
			writeStatusText(cmd.OutOrStdout(), &status)
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running server at this URL")
	return cmd
}

func localStatus(cfg *config.Config, idx vector.VectorIndex) server.StatusResponse {
	var s server.StatusResponse
	s.VectorIndex.Type = idx.Type()
	s.VectorIndex.Size = idx.Size()
	s.VectorIndex.Dimensions = idx.Dimensions()
	s.Embedding.Provider = cfg.Embedding.Provider
	s.Embedding.Model = cfg.Embedding.Model
	s.Embedding.Dimensions = cfg.Embedding.Dimensions
	s.Completion.Provider = cfg.Completion.Provider
	s.Completion.Model = cfg.Completion.Model
	s.ChunkSize = indexer.NewSplitter(cfg.Ingest.ChunkSize).Size()
	s.TopK = search.TopK
	s.InboxDirectories = cfg.Inbox.Directories
	return s
}

func writeStatusText(w io.Writer, s *server.StatusResponse) {
	fmt.Fprintf(w, "Vector index:  %s (%d entries, %d dimensions)\n", s.VectorIndex.Type, s.VectorIndex.Size, s.VectorIndex.Dimensions)
	fmt.Fprintf(w, "Embedding:     %s/%s (%d dimensions)\n", s.Embedding.Provider, s.Embedding.Model, s.Embedding.Dimensions)
	fmt.Fprintf(w, "Completion:    %s/%s\n", s.Completion.Provider, s.Completion.Model)
	fmt.Fprintf(w, "Chunk size:    %d\n", s.ChunkSize)
	fmt.Fprintf(w, "Top K:         %d\n", s.TopK)
	if len(s.InboxDirectories) > 0 {
		fmt.Fprintf(w, "Inbox:         %s\n", strings.Join(s.InboxDirectories, ", "))
	}
}

func setup(opts *rootOptions) (*config.Config, *zap.Logger, error) {
	cfg, _, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || opts.debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// buildQuery joins positional args so multi-word questions work without quotes.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func postJSON(url string, body, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized pipeline components.
type Components struct {
	Embedder    embedding.Embedder
	VectorIndex vector.VectorIndex
	Completer   completion.Completer
	Indexer     *indexer.Indexer
	Engine      *search.Engine
	Generator   *generate.Generator
}

// Close releases all resources.
func (c *Components) Close() {
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	closeQuietly(c.Completer)
}

// save writes an in-memory index to its configured file.
func (c *Components) save(cfg *config.Config, logger *zap.Logger) {
	p, ok := c.VectorIndex.(vector.Persister)
	if !ok || cfg.Storage.VectorIndexPath == "" {
		return
	}
	if err := p.Save(cfg.Storage.VectorIndexPath); err != nil {
		logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
	}
}

func closeQuietly(v interface{}) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	var err error
	c.Embedder, err = embedding.New(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	c.VectorIndex, err = vector.New(ctx, cfg, c.Embedder.Dimensions())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	c.Completer, err = completion.New(ctx, cfg.Completion)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create completer: %w", err)
	}

	c.Indexer = indexer.NewIndexer(
		c.Embedder,
		c.VectorIndex,
		c.Completer,
		extract.NewExtractor(),
		&cfg.Ingest,
		indexer.WithLogger(logger),
		indexer.WithAnalysisRole(cfg.Completion.AnalysisRole),
	)
	c.Engine = search.NewEngine(
		c.Embedder,
		c.VectorIndex,
		c.Completer,
		search.WithLogger(logger),
		search.WithExpertRole(cfg.Completion.ExpertRole),
	)
	c.Generator = generate.NewGenerator(c.Completer, logger)
	logger.Debug("components initialized",
		zap.String("embedding", cfg.Embedding.Provider),
		zap.String("vector_index", c.VectorIndex.Type()),
		zap.String("completion", cfg.Completion.Provider),
	)
	return c, nil
}
