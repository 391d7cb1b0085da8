package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fixmycar/assistant/backend/internal/model/chat"
	chatService "github.com/fixmycar/assistant/backend/internal/service/chat"
	"github.com/fixmycar/assistant/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/classify", h.handleClassify)
	r.Route("/chat/sessions", func(sessions chi.Router) {
		sessions.Post("/", h.handleCreateSession)
		sessions.Get("/{sessionID}", h.handleGetState)
		sessions.Delete("/{sessionID}", h.handleCloseSession)
		sessions.Post("/{sessionID}/messages", h.handleSubmit)
		sessions.Post("/{sessionID}/quick-replies", h.handleQuickReply)
	})
}

type submitResponse struct {
	Accepted bool `json:"accepted"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleGetState 返回会话的当前状态
func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.chatSvc.State(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, state)
}

// handleSubmit 提交用户输入
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}

	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accepted, err := h.chatSvc.Submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, submitResponse{Accepted: accepted})
}

// handleQuickReply 处理快捷回复点击
func (h *Handler) handleQuickReply(w http.ResponseWriter, r *http.Request) {
	var payload chat.QuickReply

	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accepted, err := h.chatSvc.SelectQuickReply(r.Context(), chi.URLParam(r, "sessionID"), payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, submitResponse{Accepted: accepted})
}

// handleCloseSession 销毁会话
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleClassify 只做意图分类，不影响任何会话
func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}

	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.chatSvc.Classify(payload.Text))
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
