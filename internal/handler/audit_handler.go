package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	sessions     middleware.SessionLookup
}

func NewAuditHandler(auditService service.AuditService, sessions middleware.SessionLookup) *AuditHandler {
	return &AuditHandler{auditService: auditService, sessions: sessions}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs", middleware.RequireSession(h.sessions))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs lists the actions forwarded through the gateway, newest first
// @Summary      Get audit logs
// @Description  Paginated gateway activity. Staff only see their own entries.
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Param        user_id    query     string  false  "Filter by actor"
// @Param        entity_id  query     string  false  "Filter by request ID"
// @Param        action     query     string  false  "Filter by action, e.g. APPROVE_REQUEST"
// @Success      200        {object}  response.Response{data=pagination.Page{items=[]service.AuditLogResponse}}
// @Router       /audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), service.AuditQuery{
		UserID:   c.Query("user_id"),
		EntityID: c.Query("entity_id"),
		Action:   c.Query("action"),
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		respondError(c, err, "Failed to retrieve audit logs")
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(logs, total)))
}
