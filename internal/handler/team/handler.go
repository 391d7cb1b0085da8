package team

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fixmycar/assistant/backend/internal/model/team"
	"github.com/fixmycar/assistant/backend/pkg/utils"
)

// Handler 团队页面的HTTP处理器
type Handler struct {
	members team.Store
}

// New 创建团队处理器
func New(members team.Store) *Handler {
	return &Handler{members: members}
}

// RegisterRoutes 注册团队相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/team", h.handleList)
	r.Get("/team/{memberID}", h.handleGet)
}

// handleList 列出所有成员
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.members.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	member, ok := h.members.FindByID(chi.URLParam(r, "memberID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "member not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, member)
}
