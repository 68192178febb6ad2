package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/api/middlewares"
	"github.com/harmattan-labs/docent/internal/config"
	"github.com/harmattan-labs/docent/internal/core"
	"github.com/harmattan-labs/docent/internal/ingest"
	"github.com/harmattan-labs/docent/internal/models"
)

const maxUploadBytes = 52 << 20

// DocumentHandler owns the upload/list/delete lifecycle of source files.
// Upload is synchronous: the file is archived to object storage, ingested
// into the vector index, and its metadata row written before the response.
type DocumentHandler struct {
	dbclient core.DbClient
	storage  core.ObjectClient
	store    core.VectorStore
	writer   *ingest.IndexWriter
	cfg      *config.Config
	log      *zap.Logger
}

func NewDocumentHandler(dbclient core.DbClient, storage core.ObjectClient, store core.VectorStore, writer *ingest.IndexWriter, cfg *config.Config, log *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		dbclient: dbclient,
		storage:  storage,
		store:    store,
		writer:   writer,
		cfg:      cfg,
		log:      log,
	}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "file too large or malformed form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	format := ingest.DetectFormat(fileName)
	if format == ingest.FormatUnsupported {
		http.Error(w, fmt.Sprintf("unsupported file format: %s", fileName), http.StatusUnsupportedMediaType)
		return
	}

	existing, err := h.dbclient.GetDocumentByName(r.Context(), h.cfg.IndexName, fileName)
	if err != nil {
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, "a document with this name already exists", http.StatusConflict)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "could not read file", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	docID := uuid.NewString()
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := h.storage.UploadFile(ctx, h.cfg.BucketName, storageKey(userID, docID, fileName), data, contentType)
	if err != nil {
		http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
		return
	}

	// The ingestion pipeline works on paths, so stage the upload on disk.
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(fileName))
	if err != nil {
		http.Error(w, "could not stage upload", http.StatusInternalServerError)
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		http.Error(w, "could not stage upload", http.StatusInternalServerError)
		return
	}
	tmp.Close()

	count, err := h.writer.AppendFile(ctx, tmp.Name(), h.cfg.IndexName, fileName)
	if err != nil {
		if errors.Is(err, ingest.ErrIndexMissing) {
			http.Error(w, "the index has not been built yet", http.StatusConflict)
			return
		}
		h.log.Error("ingestion failed", zap.String("file", fileName), zap.Error(err))
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	doc := &models.SourceDocument{
		ID:         docID,
		UserID:     userID,
		FileName:   fileName,
		Format:     format.String(),
		IndexName:  h.cfg.IndexName,
		StorageURL: url,
		ChunkCount: count,
	}
	if err := h.dbclient.CreateDocument(ctx, doc); err != nil {
		h.log.Error("metadata insert failed", zap.String("file", fileName), zap.Error(err))
		http.Error(w, "failed to store document metadata", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.dbclient.ListDocuments(r.Context(), h.cfg.IndexName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

// Delete removes a document everywhere it lives: vector index, object
// storage, metadata row. Vector deletion goes first so a partial failure
// can only leave dangling metadata, never unreachable vectors.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "filename")
	if fileName == "" {
		http.Error(w, "filename required", http.StatusBadRequest)
		return
	}

	doc, err := h.dbclient.GetDocumentByName(r.Context(), h.cfg.IndexName, fileName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	if err := h.store.Delete(r.Context(), h.cfg.IndexName, map[string]string{"source": fileName}); err != nil {
		h.log.Error("vector delete failed", zap.String("file", fileName), zap.Error(err))
		http.Error(w, "could not delete document vectors", http.StatusInternalServerError)
		return
	}
	if err := h.storage.DeleteFile(r.Context(), h.cfg.BucketName, storageKey(doc.UserID, doc.ID, doc.FileName)); err != nil {
		// The source of truth is already gone from the index; log and move on.
		h.log.Warn("stored file delete failed", zap.String("file", fileName), zap.Error(err))
	}
	if err := h.dbclient.DeleteDocument(r.Context(), h.cfg.IndexName, fileName); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func storageKey(userID, docID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s", userID, docID, fileName)
}
