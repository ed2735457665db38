package knowledge

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nwestfall/scribe/backend/internal/metrics"
	knowledgeService "github.com/nwestfall/scribe/backend/internal/service/knowledge"
)

// Handler 知识库文档的HTTP处理器
type Handler struct {
	knowledgeSvc *knowledgeService.Service
	metrics      *metrics.Metrics
	log          *zap.Logger
}

// New 创建知识库处理器
func New(knowledgeSvc *knowledgeService.Service, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{
		knowledgeSvc: knowledgeSvc,
		metrics:      m,
		log:          log,
	}
}

// RegisterRoutes 注册知识库相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/documents", h.handleListDocuments)
	r.Post("/documents", h.handleAddDocument)
	r.Delete("/documents/{documentID}", h.handleDeleteDocument)
	r.Get("/documents/{documentID}/download", h.handleDownloadDocument)
}

// handleListDocuments 列出全部文档
func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.knowledgeSvc.List(r.Context()))
}

// handleAddDocument 新增文档，支持JSON与multipart两种上传方式
func (h *Handler) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	name, content, err := readUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.knowledgeSvc.Add(r.Context(), name, content)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.metrics.SetDocuments(h.knowledgeSvc.Count(r.Context()))
	respondJSON(w, http.StatusCreated, doc)
}

// handleDeleteDocument 删除文档，文档不存在时同样视为成功
func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	h.knowledgeSvc.Remove(r.Context(), chi.URLParam(r, "documentID"))
	h.metrics.SetDocuments(h.knowledgeSvc.Count(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// handleDownloadDocument 以附件形式导出文档原文
func (h *Handler) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.knowledgeSvc.Get(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, doc.Content); err != nil {
		h.log.Warn("failed to write document response", zap.Error(err))
	}
}

// readUpload 解析上传内容，multipart表单取file字段，其余按JSON处理
func readUpload(r *http.Request) (string, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
			return "", "", errors.New("failed to parse multipart form: " + err.Error())
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return "", "", errors.New("file field is required")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", "", errors.New("failed to read uploaded file: " + err.Error())
		}

		name := r.FormValue("name")
		if name == "" {
			name = header.Filename
		}
		return name, string(data), nil
	}

	var payload struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return "", "", errors.New("invalid request body")
	}
	return payload.Name, payload.Content, nil
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
