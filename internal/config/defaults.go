package config

import "time"

const (
	// DefaultAnalysisRole is the system role used to critique an ingested document.
	DefaultAnalysisRole = "You are an expert HR document analyst. Review the document you are given, " +
		"summarise its purpose, point out gaps, inconsistencies or compliance risks, and suggest concrete improvements."
	// DefaultExpertRole is the system role used to answer queries from retrieved context.
	DefaultExpertRole = "You are an HR policy expert. Answer the user's question using only the provided context. " +
		"If the context does not contain the answer, say so plainly."
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5001
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 5 * time.Minute
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/vectors.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/kotae/data/vectors.idx"
	}
	if cfg.Vector.Type == "" {
		cfg.Vector.Type = "sqlite"
	}
	if cfg.Vector.MilvusCollection == "" {
		cfg.Vector.MilvusCollection = "kotae_chunks"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-ada-002"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.EncodingFormat == "" {
		cfg.Embedding.EncodingFormat = "float"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 60 * time.Second
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.Cache.Type == "" {
		cfg.Embedding.Cache.Type = "none"
	}
	if cfg.Embedding.Cache.Size == 0 {
		cfg.Embedding.Cache.Size = 10000
	}
	if cfg.Completion.Provider == "" {
		cfg.Completion.Provider = "openai"
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "gpt-4o-mini"
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = 120 * time.Second
	}
	if cfg.Completion.AnalysisRole == "" {
		cfg.Completion.AnalysisRole = DefaultAnalysisRole
	}
	if cfg.Completion.ExpertRole == "" {
		cfg.Completion.ExpertRole = DefaultExpertRole
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 4
	}
	if cfg.Inbox.Extensions == nil {
		cfg.Inbox.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".pptx", ".csv"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Inbox.Directories) > 0 && cfg.Inbox.Recursive == nil {
		t := true
		cfg.Inbox.Recursive = &t
	}
}
