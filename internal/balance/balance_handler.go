package balance

import (
	"net/http"
	"strconv"
	"time"

	"leaveledger/internal/shared/apperror"
	"leaveledger/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service    Service
	reconciler ReconcileService
	logger     *zap.Logger
}

func NewHandler(service Service, reconciler ReconcileService, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("balance.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.handler")
	}
	return &Handler{service: service, reconciler: reconciler, logger: l}
}

func getActorID(c *gin.Context) string {
	actorID := c.GetString("employee_id")
	if actorID == "" {
		actorID = c.GetString("user_id_validated")
	}
	return actorID
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("balance request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) List(c *gin.Context) {
	employeeID := c.Param("employeeId")

	balances, err := h.service.ListBalances(c.Request.Context(), employeeID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, mapToListResponse(balances))
}

func (h *Handler) GetSummary(c *gin.Context) {
	employeeID := c.Param("employeeId")

	resp, err := h.service.GetSummary(c.Request.Context(), employeeID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) GetCarryForward(c *gin.Context) {
	employeeID := c.Param("employeeId")

	resp, err := h.service.GetCarryForwardSummary(c.Request.Context(), employeeID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	employeeID := c.Param("employeeId")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	resp, err := h.service.ListTransactions(c.Request.Context(), employeeID, limit)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) Adjust(c *gin.Context) {
	employeeID := c.Param("employeeId")
	actorID := getActorID(c)

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http adjust validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", err.Error())
		return
	}

	b, err := h.service.Adjust(c.Request.Context(), employeeID, req, actorID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	// A bumped allocation can change what later years carry forward.
	if _, err := h.reconciler.CascadeFrom(c.Request.Context(), employeeID, req.WorkYear); err != nil {
		h.logger.Warn("cascade after adjust failed",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
	}

	response.Success(c, http.StatusOK, mapToResponse(b))
}

func (h *Handler) Recalculate(c *gin.Context) {
	employeeID := c.Param("employeeId")

	report, err := h.reconciler.ReconcileEmployee(c.Request.Context(), employeeID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

func (h *Handler) RecalculateAll(c *gin.Context) {
	concurrency, _ := strconv.Atoi(c.DefaultQuery("concurrency", "4"))

	report, err := h.reconciler.ReconcileAll(c.Request.Context(), concurrency)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

func (h *Handler) ProcessAnniversaries(c *gin.Context) {
	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD", err.Error())
			return
		}
		date = parsed
	}

	report, err := h.reconciler.ProcessAnniversaries(c.Request.Context(), date)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}
