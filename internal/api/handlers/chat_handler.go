package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/api/middlewares"
	"github.com/harmattan-labs/docent/internal/core"
	"github.com/harmattan-labs/docent/internal/models"
	"github.com/harmattan-labs/docent/internal/retrieval"
)

const answerSystemPrompt = "You are an assistant for an institution's document base. " +
	"Answer using only the provided context. Cite the source file and page when you can. " +
	"If the context does not contain the answer, say so instead of guessing."

// ChatHandler answers questions over the index and persists conversations.
type ChatHandler struct {
	dbclient   core.DbClient
	assembler  *retrieval.Assembler
	compressor *retrieval.HistoryCompressor
	llm        core.LLMProvider
	indexName  string
	log        *zap.Logger
}

func NewChatHandler(dbclient core.DbClient, assembler *retrieval.Assembler, compressor *retrieval.HistoryCompressor, llm core.LLMProvider, indexName string, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		dbclient:   dbclient,
		assembler:  assembler,
		compressor: compressor,
		llm:        llm,
		indexName:  indexName,
		log:        log,
	}
}

type chatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Query          string `json:"query"`
}

type chatResponse struct {
	ConversationID string               `json:"conversation_id"`
	Answer         string               `json:"answer"`
	Sources        []sourceRef          `json:"sources"`
	History        []models.ChatMessage `json:"history"`
}

type sourceRef struct {
	Source string  `json:"source"`
	Page   int     `json:"page,omitempty"`
	Score  float64 `json:"score"`
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middlewares.UserID(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		http.Error(w, "query required", http.StatusBadRequest)
		return
	}

	conv, err := h.loadOrCreateConversation(r, userID, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	docs, err := h.assembler.Retrieve(ctx, h.indexName, req.Query)
	if err != nil {
		h.log.Error("retrieval failed", zap.Error(err))
		http.Error(w, "retrieval failed", http.StatusInternalServerError)
		return
	}

	history := h.compressor.Compress(ctx, conv.History)
	userPrompt := buildPrompt(docs, history, req.Query)
	answer, err := h.llm.Generate(ctx, answerSystemPrompt, userPrompt)
	if err != nil {
		h.log.Error("generation failed", zap.Error(err))
		http.Error(w, "generation failed", http.StatusInternalServerError)
		return
	}

	conv.History = append(conv.History,
		models.ChatMessage{Role: "user", Content: req.Query},
		models.ChatMessage{Role: "assistant", Content: answer},
	)
	if err := h.dbclient.UpsertConversation(ctx, conv); err != nil {
		h.log.Warn("conversation save failed", zap.String("conversation", conv.ID), zap.Error(err))
	}

	sources := make([]sourceRef, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, sourceRef{Source: d.Metadata.Source, Page: d.Metadata.Page, Score: d.Score})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chatResponse{
		ConversationID: conv.ID,
		Answer:         answer,
		Sources:        sources,
		History:        conv.History,
	})
}

func (h *ChatHandler) loadOrCreateConversation(r *http.Request, userID string, req chatRequest) (*models.Conversation, error) {
	if req.ConversationID == "" {
		title := req.Query
		if len(title) > 80 {
			title = title[:80]
		}
		return &models.Conversation{ID: uuid.NewString(), UserID: userID, Title: title}, nil
	}
	conv, err := h.dbclient.GetConversation(r.Context(), userID, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation not found: %s", req.ConversationID)
	}
	return conv, nil
}

func buildPrompt(docs []core.ScoredDocument, history []models.ChatMessage, query string) string {
	prompt := "Context:\n" + retrieval.RenderContext(docs)
	if len(history) > 0 {
		prompt += "\n\nConversation so far:\n"
		for _, m := range history {
			prompt += fmt.Sprintf("%s: %s\n", m.Role, m.Content)
		}
	}
	return prompt + "\nQuestion: " + query
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	convs, err := h.dbclient.ListConversations(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(convs)
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conv, err := h.dbclient.GetConversation(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if conv == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conv)
}

func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.dbclient.DeleteConversation(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
