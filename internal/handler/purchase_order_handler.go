package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseOrderHandler struct {
	purchaseOrderService service.PurchaseOrderService
	sessions             middleware.SessionLookup
}

func NewPurchaseOrderHandler(purchaseOrderService service.PurchaseOrderService, sessions middleware.SessionLookup) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{purchaseOrderService: purchaseOrderService, sessions: sessions}
}

func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/purchase-orders", middleware.RequireSession(h.sessions))
	{
		group.GET("", h.ListPurchaseOrders)
		group.GET("/:id", h.GetPurchaseOrder)
	}
}

// ListPurchaseOrders handles GET /purchase-orders
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.PurchaseOrder}
// @Failure      502  {object}  response.Response
// @Router       /purchase-orders [get]
func (h *PurchaseOrderHandler) ListPurchaseOrders(c *gin.Context) {
	pos, err := h.purchaseOrderService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load purchase orders")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pos))
}

// GetPurchaseOrder handles GET /purchase-orders/:id
// @Summary      Get a purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      404  {object}  response.Response
// @Router       /purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetPurchaseOrder(c *gin.Context) {
	po, err := h.purchaseOrderService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load purchase order")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}
