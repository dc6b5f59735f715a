package handler

import (
	"errors"
	"net/http"

	"procurement/internal/lifecycle"
	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
	sessions       middleware.SessionLookup
}

func NewRequestHandler(requestService service.RequestService, sessions middleware.SessionLookup) *RequestHandler {
	return &RequestHandler{requestService: requestService, sessions: sessions}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/requests", middleware.RequireSession(h.sessions))
	{
		requests.GET("", h.ListRequests)
		requests.POST("", middleware.RequireCapability(lifecycle.CapCreateRequests), h.CreateRequest)
		requests.GET("/:id", h.GetRequest)
		requests.PATCH("/:id", h.UpdateRequest)
		requests.DELETE("/:id", h.DeleteRequest)
		requests.GET("/:id/comparison", h.GetComparison)

		requests.PATCH("/:id/approve", middleware.RequireCapability(lifecycle.CapApproveRequests), h.ApproveRequest)
		requests.PATCH("/:id/reject", middleware.RequireCapability(lifecycle.CapApproveRequests), h.RejectRequest)
		requests.POST("/:id/request-clarification", middleware.RequireCapability(lifecycle.CapApproveRequests), h.RequestClarification)
		requests.POST("/:id/respond-to-clarification", h.RespondToClarification)

		requests.POST("/:id/receipt", h.UploadReceipt)
		requests.POST("/:id/proforma", h.UploadProforma)
		requests.PATCH("/:id/payment-status", middleware.RequireCapability(lifecycle.CapManagePayments), h.UpdatePaymentStatus)
	}
}

type decisionBody struct {
	Comment string `json:"comment"`
}

type clarificationBody struct {
	Message string `json:"message"`
}

type clarificationResponseBody struct {
	Response string `json:"response"`
}

// ListRequests handles GET /requests
// @Summary      List purchase requests
// @Description  Lists the requests visible to the caller, narrowed by a named view filter
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        view    query     string  false  "requests, finance, approvals or approval_history"
// @Param        filter  query     string  false  "Named filter of the view"
// @Param        value   query     string  false  "Filter value (status filter only)"
// @Success      200     {object}  response.Response{data=[]service.RequestView}
// @Failure      400     {object}  response.Response
// @Router       /requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	var q service.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid query parameters"))
		return
	}

	views, err := h.requestService.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "Failed to load requests")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, views))
}

// GetRequest handles GET /requests/:id
// @Summary      Get purchase request
// @Description  Returns one request with its label, the caller's actions and, once both exist, the PO vs receipt comparison
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestDetail}
// @Failure      404  {object}  response.Response
// @Router       /requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	detail, err := h.requestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// CreateRequest handles POST /requests
// @Summary      Create purchase request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RequestInput  true  "Request"
// @Success      201      {object}  response.Response{data=service.RequestView}
// @Failure      400      {object}  response.Response
// @Router       /requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var in service.RequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	view, err := h.requestService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "Failed to create request")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, view))
}

// UpdateRequest handles PATCH /requests/:id
// @Summary      Edit purchase request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Request ID"
// @Param        payload  body      service.RequestInput  true  "Request"
// @Success      200      {object}  response.Response{data=service.RequestView}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /requests/{id} [patch]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	var in service.RequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	view, err := h.requestService.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err, "Failed to update request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// DeleteRequest handles DELETE /requests/:id
// @Summary      Delete purchase request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	if err := h.requestService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Request deleted successfully"}))
}

// GetComparison handles GET /requests/:id/comparison
// @Summary      Compare purchase order and receipt
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=reconcile.Report}
// @Failure      404  {object}  response.Response
// @Router       /requests/{id}/comparison [get]
func (h *RequestHandler) GetComparison(c *gin.Context) {
	report, err := h.requestService.Compare(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to compare documents")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// ApproveRequest handles PATCH /requests/:id/approve
// @Summary      Approve purchase request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string        true   "Request ID"
// @Param        payload  body      decisionBody  false  "Optional comment"
// @Success      200      {object}  response.Response{data=service.RequestView}
// @Failure      403      {object}  response.Response
// @Router       /requests/{id}/approve [patch]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	var body decisionBody
	// Comment is optional; an empty body is fine.
	_ = c.ShouldBindJSON(&body)

	view, err := h.requestService.Approve(c.Request.Context(), c.Param("id"), body.Comment)
	if err != nil {
		respondError(c, err, "Failed to approve request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// RejectRequest handles PATCH /requests/:id/reject
// @Summary      Reject purchase request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string        true   "Request ID"
// @Param        payload  body      decisionBody  false  "Optional comment"
// @Success      200      {object}  response.Response{data=service.RequestView}
// @Failure      403      {object}  response.Response
// @Router       /requests/{id}/reject [patch]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	var body decisionBody
	_ = c.ShouldBindJSON(&body)

	view, err := h.requestService.Reject(c.Request.Context(), c.Param("id"), body.Comment)
	if err != nil {
		respondError(c, err, "Failed to reject request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// RequestClarification handles POST /requests/:id/request-clarification
// @Summary      Ask the requester for clarification
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Request ID"
// @Param        payload  body      clarificationBody  true  "Question"
// @Success      200      {object}  response.Response{data=service.RequestView}
// @Failure      400      {object}  response.Response
// @Router       /requests/{id}/request-clarification [post]
func (h *RequestHandler) RequestClarification(c *gin.Context) {
	var body clarificationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	view, err := h.requestService.RequestClarification(c.Request.Context(), c.Param("id"), body.Message)
	if err != nil {
		respondError(c, err, "Failed to request clarification")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// RespondToClarification handles POST /requests/:id/respond-to-clarification
// @Summary      Answer a clarification request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Request ID"
// @Param        payload  body      clarificationResponseBody  true  "Answer"
// @Success      200      {object}  response.Response{data=service.RequestView}
// @Failure      400      {object}  response.Response
// @Router       /requests/{id}/respond-to-clarification [post]
func (h *RequestHandler) RespondToClarification(c *gin.Context) {
	var body clarificationResponseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	view, err := h.requestService.RespondToClarification(c.Request.Context(), c.Param("id"), body.Response)
	if err != nil {
		respondError(c, err, "Failed to send response")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// UploadReceipt handles POST /requests/:id/receipt
// @Summary      Upload receipt
// @Tags         requests
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id       path      string  true  "Request ID"
// @Param        receipt  formData  file    true  "Receipt (PDF, JPEG, PNG or TIFF)"
// @Success      200      {object}  response.Response{data=service.RequestView}
// @Failure      400      {object}  response.Response
// @Router       /requests/{id}/receipt [post]
func (h *RequestHandler) UploadReceipt(c *gin.Context) {
	upload, closeFn, err := formUpload(c, "receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Receipt file is required"))
		return
	}
	defer closeFn()

	view, err := h.requestService.UploadReceipt(c.Request.Context(), c.Param("id"), *upload)
	if err != nil {
		respondError(c, err, "Failed to upload receipt")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// UploadProforma handles POST /requests/:id/proforma
// @Summary      Upload proforma
// @Tags         requests
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "Request ID"
// @Param        file  formData  file    true  "Proforma (PDF, JPEG, PNG or TIFF)"
// @Success      200   {object}  response.Response{data=service.RequestView}
// @Failure      400   {object}  response.Response
// @Router       /requests/{id}/proforma [post]
func (h *RequestHandler) UploadProforma(c *gin.Context) {
	upload, closeFn, err := formUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Proforma file is required"))
		return
	}
	defer closeFn()

	view, err := h.requestService.UploadProforma(c.Request.Context(), c.Param("id"), *upload)
	if err != nil {
		respondError(c, err, "Failed to upload proforma")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// UpdatePaymentStatus handles PATCH /requests/:id/payment-status
// @Summary      Update payment status
// @Tags         requests
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id              path      string  true   "Request ID"
// @Param        payment_status  formData  string  true   "pending, paid, partially_paid or on_hold"
// @Param        payment_proof   formData  file    false  "Proof of payment"
// @Success      200             {object}  response.Response{data=service.RequestView}
// @Failure      400             {object}  response.Response
// @Router       /requests/{id}/payment-status [patch]
func (h *RequestHandler) UpdatePaymentStatus(c *gin.Context) {
	status := c.PostForm("payment_status")

	proof, closeFn, err := formUpload(c, "payment_proof")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		proof = nil
	case err != nil:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid payment proof upload"))
		return
	default:
		defer closeFn()
	}

	view, err := h.requestService.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), status, proof)
	if err != nil {
		respondError(c, err, "Failed to update payment status")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// formUpload opens the multipart file in field. The returned func closes it.
func formUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.Upload{Name: fh.Filename, Size: fh.Size, Body: f}, func() { _ = f.Close() }, nil
}
