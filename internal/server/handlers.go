package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/pkg/utils"
)

const (
	documentField = "document"
	csvField      = "csvFile"
)

// pipelineContext detaches the request's cancellation so a started pipeline
// runs to completion even if the client goes away. The configured request
// timeout still bounds it.
func (s *Server) pipelineContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(r.Context())
	if t := s.config.Server.RequestTimeout; t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readDocument(w, r, documentField)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("ingest request",
		zap.String("source", doc.Source),
		zap.String("media_type", doc.MediaType),
		zap.Int("bytes", len(doc.Content)),
	)

	ctx, cancel := s.pipelineContext(r)
	defer cancel()
	res, err := s.ingester.Ingest(ctx, doc)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("source", doc.Source), zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("query request", zap.String("query", utils.Truncate(req.Query, 80)))

	ctx, cancel := s.pipelineContext(r)
	defer cancel()
	answer, err := s.answerer.Ask(ctx, req.Query)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.QueryResponse{Result: answer})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
		return
	}
	ctx, cancel := s.pipelineContext(r)
	defer cancel()
	doc, err := s.generator.GenerateDocument(ctx, req)
	if err != nil {
		s.logger.Error("document generation failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"document": doc})
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readDocument(w, r, csvField)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	ctx, cancel := s.pipelineContext(r)
	defer cancel()
	analysis, err := s.generator.AnalyzeReviews(ctx, doc.Content)
	if err != nil {
		s.logger.Error("review analysis failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"analysis": analysis})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse describes the running configuration and index.
type StatusResponse struct {
	VectorIndex struct {
		Type       string `json:"type"`
		Size       int    `json:"size"`
		Dimensions int    `json:"dimensions"`
	} `json:"vector_index"`
	Embedding struct {
		Provider   string `json:"provider"`
		Model      string `json:"model"`
		Dimensions int    `json:"dimensions"`
	} `json:"embedding"`
	Completion struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	} `json:"completion"`
	ChunkSize        int      `json:"chunk_size"`
	TopK             int      `json:"top_k"`
	InboxDirectories []string `json:"inbox_directories,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp StatusResponse
	resp.VectorIndex.Type = s.vectorIndex.Type()
	resp.VectorIndex.Size = s.vectorIndex.Size()
	resp.VectorIndex.Dimensions = s.vectorIndex.Dimensions()
	resp.Embedding.Provider = s.config.Embedding.Provider
	resp.Embedding.Model = s.config.Embedding.Model
	resp.Embedding.Dimensions = s.config.Embedding.Dimensions
	resp.Completion.Provider = s.config.Completion.Provider
	resp.Completion.Model = s.config.Completion.Model
	resp.ChunkSize = s.ingester.ChunkSize()
	resp.TopK = search.TopK
	if s.watch != nil {
		resp.InboxDirectories = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// readDocument reads an upload either from the multipart field or, for any
// other content type, from the raw body. The raw body's name may be given
// with the "filename" query parameter.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request, field string) (*models.Document, error) {
	limit := s.config.Server.MaxUploadBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(limit); err != nil {
			return nil, uploadError(err)
		}
		file, header, err := r.FormFile(field)
		if err != nil {
			return nil, models.NewError(models.KindValidation, "upload", fmt.Errorf("missing %q file field", field))
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return nil, uploadError(err)
		}
		return &models.Document{
			Content:   content,
			MediaType: header.Header.Get("Content-Type"),
			Source:    header.Filename,
		}, nil
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, uploadError(err)
	}
	return &models.Document{
		Content:   content,
		MediaType: r.Header.Get("Content-Type"),
		Source:    r.URL.Query().Get("filename"),
	}, nil
}

var errTooLarge = errors.New("upload exceeds size limit")

func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errTooLarge
	}
	return models.NewError(models.KindValidation, "upload", err)
}

func statusFor(err error) (int, models.Kind) {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge, models.KindValidation
	}
	switch kind := models.KindOf(err); kind {
	case models.KindValidation:
		return http.StatusBadRequest, kind
	case models.KindExtraction:
		return http.StatusUnsupportedMediaType, kind
	case models.KindUpstream:
		return http.StatusBadGateway, kind
	default:
		return http.StatusInternalServerError, kind
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	s.respondError(w, status, kind, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, kind models.Kind, message string) {
	body := map[string]string{"error": message}
	if kind != "" {
		body["kind"] = string(kind)
	}
	s.respondJSON(w, status, body)
}
