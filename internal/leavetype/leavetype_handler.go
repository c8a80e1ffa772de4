package leavetype

import (
	"net/http"

	"leaveledger/internal/shared/apperror"
	"leaveledger/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Response struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Color    string `json:"color,omitempty"`
	IsActive bool   `json:"is_active"`
}

func mapToResponse(lt LeaveType) Response {
	return Response{
		ID:       lt.ID.String(),
		Code:     lt.Code,
		Name:     lt.Name,
		Category: lt.Category,
		Color:    lt.Color,
		IsActive: lt.IsActive,
	}
}

type Handler struct {
	repo   Repository
	logger *zap.Logger
}

func NewHandler(repo Repository, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("leavetype.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leavetype.handler")
	}
	return &Handler{repo: repo, logger: l}
}

func (h *Handler) List(c *gin.Context) {
	types, err := h.repo.FindAllActive(c.Request.Context())
	if err != nil {
		h.logger.Error("list leave types failed", zap.Error(err))
		httpErr := apperror.ToHTTP(err)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	resp := make([]Response, len(types))
	for i, lt := range types {
		resp[i] = mapToResponse(lt)
	}
	response.Success(c, http.StatusOK, resp)
}
