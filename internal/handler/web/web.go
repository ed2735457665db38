package web

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed index.html
var indexHTML string

//go:embed style.css
var styleCSS string

//go:embed app.js
var appJS string

// Handler 内嵌单页前端的HTTP处理器
type Handler struct{}

// New 创建前端处理器
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes 注册静态资源路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/style.css", h.handleStyle)
	r.Get("/app.js", h.handleScript)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (h *Handler) handleStyle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	fmt.Fprint(w, styleCSS)
}

func (h *Handler) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	fmt.Fprint(w, appJS)
}
