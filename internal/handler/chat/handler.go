package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nwestfall/scribe/backend/internal/metrics"
	"github.com/nwestfall/scribe/backend/internal/model/knowledge"
	"github.com/nwestfall/scribe/backend/internal/service/agent"
	chatService "github.com/nwestfall/scribe/backend/internal/service/chat"
	knowledgeService "github.com/nwestfall/scribe/backend/internal/service/knowledge"
)

// errorReply 是一轮对话失败时展示给用户的固定文案。
const errorReply = "Sorry, I encountered an error. Please try again."

// TurnSender 将一轮用户输入连同知识库全文发往外部智能体。
type TurnSender interface {
	SendMessage(ctx context.Context, conversationID, text string, docs []knowledge.Document) (agent.Reply, error)
}

// Handler 会话接口的HTTP处理器
type Handler struct {
	chatSvc      *chatService.Service
	knowledgeSvc *knowledgeService.Service
	agent        TurnSender
	metrics      *metrics.Metrics
	log          *zap.Logger
}

// New 创建会话处理器
func New(chatSvc *chatService.Service, knowledgeSvc *knowledgeService.Service, sender TurnSender, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{
		chatSvc:      chatSvc,
		knowledgeSvc: knowledgeSvc,
		agent:        sender,
		metrics:      m,
		log:          log,
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations", h.handleCreateConversation)
	r.Get("/conversations", h.handleListConversations)
	r.Get("/conversations/{conversationID}", h.handleGetConversation)
	r.Post("/conversations/{conversationID}/select", h.handleSelectConversation)
	r.Post("/conversations/{conversationID}/messages", h.handleSendMessage)
}

// handleCreateConversation 新建会话
func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	conv := h.chatSvc.Create(r.Context())
	respondJSON(w, http.StatusCreated, conv)
}

// handleListConversations 列出会话摘要与当前激活的会话
func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, activeID := h.chatSvc.List(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"conversations": summaries,
		"activeId":      activeID,
	})
}

// handleGetConversation 获取完整会话
func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chatSvc.Get(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

// handleSelectConversation 激活指定会话并返回其完整内容
func (h *Handler) handleSelectConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chatSvc.Select(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

// handleSendMessage 处理一轮对话：调用智能体并把问答一并写入会话
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := strings.TrimSpace(payload.Content)
	if text == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	if err := h.chatSvc.BeginTurn(conversationID); err != nil {
		switch {
		case errors.Is(err, chatService.ErrTurnInFlight):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, chatService.ErrConversationNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	defer h.chatSvc.EndTurn(conversationID)

	start := time.Now()
	docs := h.knowledgeSvc.List(r.Context())

	assistantText := errorReply
	outcome := "error"
	reply, err := h.agent.SendMessage(r.Context(), conversationID, text, docs)
	if err != nil {
		h.log.Warn("agent call failed",
			zap.String("conversationId", conversationID),
			zap.Error(err))
	} else {
		assistantText = reply.Text
		outcome = "ok"
	}

	conv, err := h.chatSvc.AppendTurn(r.Context(), conversationID, text, assistantText)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.metrics.RecordTurn(outcome, time.Since(start))
	respondJSON(w, http.StatusOK, conv)
}

// respondJSON 发送JSON响应
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError 发送错误响应
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
