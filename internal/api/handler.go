package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/RichardoC/csvchat/internal/dataset"
	"github.com/RichardoC/csvchat/internal/db"
	"github.com/RichardoC/csvchat/internal/llm"
	"github.com/RichardoC/csvchat/internal/models"
	"github.com/RichardoC/csvchat/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatService runs one conversation turn.
type ChatService interface {
	Chat(ctx context.Context, sc session.Context, userText string) (*llm.Turn, error)
}

// Catalog stores dataset entries.
type Catalog interface {
	SaveDataset(ctx context.Context, rec *models.DatasetRecord) error
	GetDataset(ctx context.Context, id string) (*models.DatasetRecord, error)
	ListDatasets(ctx context.Context) ([]models.DatasetRecord, error)
	DeleteDataset(ctx context.Context, id string) error
}

type Options struct {
	UploadDir       string
	MaxUploadBytes  int64
	FallbackDataset string
}

type Handler struct {
	catalog Catalog
	chat    ChatService // nil when no model is configured
	binding *session.Binding
	opts    Options
	logger  *zap.Logger
}

func NewHandler(catalog Catalog, chat ChatService, binding *session.Binding, opts Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Handler{
		catalog: catalog,
		chat:    chat,
		binding: binding,
		opts:    opts,
		logger:  logger,
	}
}

type ChatRequest struct {
	Message   string `json:"message"`
	DatasetID string `json:"dataset_id,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	LLMConfigured bool   `json:"llm_configured"`
	ActiveDataset string `json:"active_dataset"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "CSV Chat API is running"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		LLMConfigured: h.chat != nil,
		ActiveDataset: h.binding.Snapshot().DatasetLabel(h.opts.FallbackDataset),
	})
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message must not be empty")
		return
	}

	// The turn keeps this snapshot even if another request rebinds.
	sc := h.binding.Snapshot()
	switch {
	case req.DatasetID != "":
		rec, err := h.catalog.GetDataset(r.Context(), req.DatasetID)
		if errors.Is(err, db.ErrDatasetNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Dataset '%s' not found", req.DatasetID))
			return
		}
		if err != nil {
			h.logger.Error("Failed to get dataset", zap.Error(err), zap.String("id", req.DatasetID))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		sc = sc.WithDataset(rec.Path)
	case req.FilePath != "":
		sc = sc.WithDataset(req.FilePath)
	}

	if h.chat == nil {
		writeError(w, http.StatusServiceUnavailable,
			"Language model is not configured. Set AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and "+
				"AZURE_OPENAI_DEPLOYMENT_NAME, or OPENAI_API_KEY.")
		return
	}

	turn, err := h.chat.Chat(r.Context(), sc, req.Message)
	if err != nil {
		h.logger.Error("Failed to process message",
			zap.Error(err),
			zap.String("dataset", sc.DatasetLabel(h.opts.FallbackDataset)))
		if errors.Is(err, llm.ErrModelService) {
			writeError(w, http.StatusBadGateway, fmt.Sprintf("Error communicating with the language model: %v", err))
			return
		}
		// Round-limit overruns land here too.
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing message: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Response: turn.Answer})
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing form field 'file'")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		writeError(w, http.StatusBadRequest, "Only CSV files are allowed")
		return
	}

	if err := os.MkdirAll(h.opts.UploadDir, 0755); err != nil {
		h.logger.Error("Failed to create upload directory", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	path := filepath.Join(h.opts.UploadDir, uuid.NewString()+"_"+filename)
	if err := saveFile(path, file); err != nil {
		h.logger.Error("Failed to store upload", zap.Error(err), zap.String("path", path))
		writeError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	d, err := dataset.Load(path)
	if err != nil {
		os.Remove(path)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid CSV file: %v", err))
		return
	}

	rec := &models.DatasetRecord{
		Filename: filename,
		Path:     path,
		Rows:     d.NumRows(),
		Columns:  d.NumColumns(),
		Source:   models.SourceUpload,
	}
	if err := h.catalog.SaveDataset(r.Context(), rec); err != nil {
		h.logger.Error("Failed to save dataset", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.binding.Bind(path)

	h.logger.Info("Dataset uploaded",
		zap.String("id", rec.ID),
		zap.String("filename", filename),
		zap.Int("rows", rec.Rows),
		zap.Int("columns", rec.Columns))
	writeJSON(w, http.StatusOK, rec)
}

func saveFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// HandleDatasets lists the catalog on GET and removes an entry on DELETE.
func (h *Handler) HandleDatasets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		datasets, err := h.catalog.ListDatasets(r.Context())
		if err != nil {
			h.logger.Error("Failed to list datasets",
				zap.Error(err),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		h.logger.Debug("Retrieved datasets", zap.Int("count", len(datasets)))
		writeJSON(w, http.StatusOK, datasets)

	case http.MethodDelete:
		rec, ok := h.lookupDataset(w, r)
		if !ok {
			return
		}
		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("Failed to remove dataset file", zap.Error(err), zap.String("path", rec.Path))
		}
		if err := h.catalog.DeleteDataset(r.Context(), rec.ID); err != nil && !errors.Is(err, db.ErrDatasetNotFound) {
			h.logger.Error("Failed to delete dataset", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if h.binding.Snapshot().DatasetPath == rec.Path {
			h.binding.Bind("")
		}
		w.WriteHeader(http.StatusOK)

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) SelectDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	rec, ok := h.lookupDataset(w, r)
	if !ok {
		return
	}
	h.binding.Bind(rec.Path)
	h.logger.Info("Active dataset changed", zap.String("id", rec.ID), zap.String("path", rec.Path))
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) lookupDataset(w http.ResponseWriter, r *http.Request) (*models.DatasetRecord, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'id' is required")
		return nil, false
	}
	rec, err := h.catalog.GetDataset(r.Context(), id)
	if errors.Is(err, db.ErrDatasetNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Dataset '%s' not found", id))
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to get dataset", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
