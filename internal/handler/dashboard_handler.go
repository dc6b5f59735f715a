package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
	sessions         middleware.SessionLookup
}

func NewDashboardHandler(dashboardService service.DashboardService, sessions middleware.SessionLookup) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, sessions: sessions}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard/stats", middleware.RequireSession(h.sessions), h.GetStats)
}

// GetStats returns request counters for the caller's dashboard
// @Summary      Dashboard statistics
// @Description  Counts per status; finance and approver counters appear only for sessions holding those capabilities
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.DashboardStats}
// @Failure      502  {object}  response.Response
// @Router       /dashboard/stats [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboardService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
