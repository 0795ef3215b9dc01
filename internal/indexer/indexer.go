package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/chunkid"
	"github.com/hyperjump/kotae/internal/completion"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// IngestedMessage is the message returned with every successful ingestion.
const IngestedMessage = "Document uploaded and analyzed successfully"

// Metadata keys stored with every chunk vector besides vector.MetadataText.
const (
	MetaIngestionID = "ingestion_id"
	MetaChunkIndex  = "chunk_index"
	MetaSource      = "source"
	MetaMediaType   = "media_type"
)

// ErrSkipped is returned by IngestFile when the file was already ingested
// with the same modification time and size.
var ErrSkipped = errors.New("file unchanged since last ingestion")

// Indexer turns a document into chunk vectors in the vector index and asks
// the completer for an analysis of the full text.
type Indexer struct {
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	completer    completion.Completer
	extractor    *extract.Extractor
	splitter     *Splitter
	concurrency  int
	analysisRole string
	logger       *zap.Logger

	mu   sync.Mutex
	seen map[string]fileStamp
}

type fileStamp struct {
	mtime time.Time
	size  int64
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithAnalysisRole sets the system role used for the document analysis.
func WithAnalysisRole(role string) IndexerOption {
	return func(idx *Indexer) { idx.analysisRole = role }
}

// NewIndexer creates an indexer with the given dependencies.
// extractor may be nil; when nil, payloads are read as plain text.
func NewIndexer(
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	completer completion.Completer,
	extractor *extract.Extractor,
	cfg *config.IngestConfig,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		completer:    completer,
		extractor:    extractor,
		splitter:     NewSplitter(cfg.ChunkSize),
		concurrency:  cfg.Concurrency,
		analysisRole: config.DefaultAnalysisRole,
		seen:         make(map[string]fileStamp),
	}
	if idx.concurrency <= 0 {
		idx.concurrency = 1
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// ChunkSize returns the configured chunk length.
func (idx *Indexer) ChunkSize() int {
	return idx.splitter.Size()
}

// Ingest extracts, chunks, embeds and analyzes doc, then indexes it. Every
// chunk is embedded and the analysis completed before anything is written;
// if any step fails nothing is stored. All chunk vectors are written in a
// single upsert. Each call gets a fresh ingestion ID, so ingesting the same
// document twice stores two independent sets of chunks.
func (idx *Indexer) Ingest(ctx context.Context, doc *models.Document) (*models.IngestResult, error) {
	if doc == nil || len(doc.Content) == 0 {
		return nil, models.NewError(models.KindValidation, "ingest", errors.New("document payload is empty"))
	}

	text, err := idx.extractText(doc)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, models.NewError(models.KindValidation, "ingest", errors.New("document contains no text"))
	}
	doc.Text = text

	chunks := idx.splitter.Split(text)
	vectors, err := idx.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	ingestionID := chunkid.NewIngestionID()
	entries := make([]vector.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vector.Entry{
			ID:     chunkid.New(ingestionID, c.Index),
			Vector: vectors[i],
			Metadata: map[string]string{
				vector.MetadataText: c.Text,
				MetaIngestionID:     ingestionID,
				MetaChunkIndex:      strconv.Itoa(c.Index),
				MetaSource:          doc.Source,
				MetaMediaType:       doc.MediaType,
			},
		}
	}
	analysis, err := idx.completer.Complete(ctx, idx.analysisRole, []completion.Message{completion.User(text)})
	if err != nil {
		return nil, upstream("completion.analyze", err)
	}

	if err := idx.vectorIndex.Upsert(ctx, entries); err != nil {
		return nil, upstream("vector.upsert", err)
	}

	idx.logger.Info("document ingested",
		zap.String("ingestion_id", ingestionID),
		zap.String("source", doc.Source),
		zap.Int("chunks", len(entries)),
	)
	return &models.IngestResult{
		Message:     IngestedMessage,
		Analysis:    analysis,
		IngestionID: ingestionID,
		Chunks:      len(entries),
	}, nil
}

func (idx *Indexer) extractText(doc *models.Document) (string, error) {
	if idx.extractor == nil {
		return string(doc.Content), nil
	}
	return idx.extractor.Extract(doc.Content, doc.MediaType, doc.Source)
}

// embedChunks embeds every chunk with at most idx.concurrency requests in
// flight. Results are indexed by chunk position. The first failure cancels
// the remaining requests and is returned.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	dims := idx.vectorIndex.Dimensions()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			vec, err := idx.embedder.Embed(gctx, c.Text)
			if err != nil {
				return upstream("embedding", fmt.Errorf("chunk %d: %w", c.Index, err))
			}
			if len(vec) != dims {
				return upstream("embedding", fmt.Errorf("chunk %d: %w: got %d, index expects %d",
					c.Index, vector.ErrDimensionMismatch, len(vec), dims))
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// upstream wraps err as an upstream failure unless it already carries a kind.
func upstream(op string, err error) error {
	if models.KindOf(err) != "" {
		return err
	}
	return models.NewError(models.KindUpstream, op, err)
}

// IngestFile ingests the file at path once per (path, mtime, size). If
// allowedExts is non-empty, the file's extension must be in the list
// (case-insensitive). ErrSkipped is returned for an unchanged file.
func (idx *Indexer) IngestFile(ctx context.Context, path string, allowedExts []string) (*models.IngestResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if !ExtensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	stamp := fileStamp{mtime: info.ModTime(), size: info.Size()}

	idx.mu.Lock()
	prev, ok := idx.seen[absPath]
	idx.mu.Unlock()
	if ok && prev.mtime.Equal(stamp.mtime) && prev.size == stamp.size {
		idx.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		return nil, ErrSkipped
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	res, err := idx.Ingest(ctx, &models.Document{Content: content, Source: filepath.Base(absPath)})
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	idx.seen[absPath] = stamp
	idx.mu.Unlock()
	return res, nil
}

// ExtensionAllowed reports whether ext is in allowed, ignoring case and the
// leading dot. An empty list allows every extension.
func ExtensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
