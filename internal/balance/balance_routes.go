package balance

import (
	"leaveledger/internal/middleware"
	"leaveledger/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
	rdb ...*redis.Client,
) {
	var redisClient *redis.Client
	if len(rdb) > 0 {
		redisClient = rdb[0]
	}

	balances := r.Group("/leave-balances")
	balances.Use(middleware.AuthMiddleware())
	{
		balances.GET("/:employeeId", middleware.RBACAuthorize(rbacService, "leave_balance", "read"), handler.List)
		balances.GET("/:employeeId/summary", middleware.RBACAuthorize(rbacService, "leave_balance", "read"), handler.GetSummary)
		balances.GET("/:employeeId/carry-forward", middleware.RBACAuthorize(rbacService, "leave_balance", "read"), handler.GetCarryForward)
		balances.GET("/:employeeId/transactions", middleware.RBACAuthorize(rbacService, "leave_balance", "read"), handler.ListTransactions)

		if redisClient != nil {
			balances.POST(
				"/:employeeId/adjust",
				middleware.Idempotency(redisClient),
				middleware.RBACAuthorize(rbacService, "leave_balance", "adjust"),
				handler.Adjust,
			)
		} else {
			balances.POST("/:employeeId/adjust", middleware.RBACAuthorize(rbacService, "leave_balance", "adjust"), handler.Adjust)
		}
		balances.POST("/:employeeId/recalculate", middleware.RBACAuthorize(rbacService, "leave_balance", "recalculate"), handler.Recalculate)
		balances.POST("/recalculate", middleware.RBACAuthorize(rbacService, "leave_balance", "recalculate"), handler.RecalculateAll)
		balances.POST("/anniversaries/process", middleware.RBACAuthorize(rbacService, "leave_balance", "recalculate"), handler.ProcessAnniversaries)
	}
}
