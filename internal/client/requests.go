package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"procurement/internal/model"
)

// RequestPayload is the body of create and update calls.
type RequestPayload struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Items       []model.RequestItem `json:"items"`
	TotalAmount string              `json:"total_amount,omitempty"`
}

type decisionPayload struct {
	Comment string `json:"comment,omitempty"`
}

func requestPath(id string, action string) string {
	p := "/requests/" + url.PathEscape(id) + "/"
	if action != "" {
		p += action + "/"
	}
	return p
}

// ListRequests returns the requests visible to the token holder.
func (c *Client) ListRequests(ctx context.Context) ([]model.PurchaseRequest, error) {
	return getList[model.PurchaseRequest](ctx, c, "/requests/")
}

// MyApprovals returns the requests the token holder has acted on or is due to act on.
func (c *Client) MyApprovals(ctx context.Context) ([]model.PurchaseRequest, error) {
	return getList[model.PurchaseRequest](ctx, c, "/requests/my_approvals/")
}

// GetRequest fetches one request.
func (c *Client) GetRequest(ctx context.Context, id string) (*model.PurchaseRequest, error) {
	var r model.PurchaseRequest
	if err := c.doJSON(ctx, http.MethodGet, requestPath(id, ""), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRequest submits a new request.
func (c *Client) CreateRequest(ctx context.Context, in RequestPayload) (*model.PurchaseRequest, error) {
	var r model.PurchaseRequest
	if err := c.doJSON(ctx, http.MethodPost, "/requests/", in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRequest patches an unlocked request.
func (c *Client) UpdateRequest(ctx context.Context, id string, in RequestPayload) (*model.PurchaseRequest, error) {
	var r model.PurchaseRequest
	if err := c.doJSON(ctx, http.MethodPatch, requestPath(id, ""), in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRequest removes a request.
func (c *Client) DeleteRequest(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, requestPath(id, ""), nil, nil)
}

// ApproveRequest records an approval at the caller's level.
func (c *Client) ApproveRequest(ctx context.Context, id, comment string) error {
	return c.doJSON(ctx, http.MethodPatch, requestPath(id, "approve"), decisionPayload{Comment: comment}, nil)
}

// RejectRequest records a rejection.
func (c *Client) RejectRequest(ctx context.Context, id, comment string) error {
	return c.doJSON(ctx, http.MethodPatch, requestPath(id, "reject"), decisionPayload{Comment: comment}, nil)
}

// RequestClarification pauses approvals and asks the creator a question.
func (c *Client) RequestClarification(ctx context.Context, id, message string) error {
	body := struct {
		Message string `json:"message"`
	}{message}
	return c.doJSON(ctx, http.MethodPost, requestPath(id, "request_clarification"), body, nil)
}

// RespondToClarification answers an open clarification.
func (c *Client) RespondToClarification(ctx context.Context, id, response string) error {
	body := struct {
		Response string `json:"response"`
	}{response}
	return c.doJSON(ctx, http.MethodPost, requestPath(id, "respond_to_clarification"), body, nil)
}

// UploadReceipt attaches the receipt of a paid request.
func (c *Client) UploadReceipt(ctx context.Context, id string, f File, progress ProgressFunc) error {
	form := multipartForm{files: map[string]File{"receipt": f}}
	return c.upload(ctx, http.MethodPost, requestPath(id, "upload_receipt"), form, progress)
}

// UploadProforma attaches the vendor quote.
func (c *Client) UploadProforma(ctx context.Context, id string, f File, progress ProgressFunc) error {
	form := multipartForm{files: map[string]File{"file": f}}
	return c.upload(ctx, http.MethodPost, requestPath(id, "upload_proforma"), form, progress)
}

// UpdatePaymentStatus sets the payment status, optionally with a proof of payment.
func (c *Client) UpdatePaymentStatus(ctx context.Context, id, status string, proof *File, progress ProgressFunc) error {
	form := multipartForm{fields: [][2]string{{"payment_status", status}}}
	if proof != nil {
		form.files = map[string]File{"payment_proof": *proof}
	}
	return c.upload(ctx, http.MethodPatch, requestPath(id, "update_payment_status"), form, progress)
}

// ListPurchaseOrders returns purchase orders visible to the token holder.
func (c *Client) ListPurchaseOrders(ctx context.Context) ([]model.PurchaseOrder, error) {
	return getList[model.PurchaseOrder](ctx, c, "/po/")
}

// GetPurchaseOrder fetches one purchase order.
func (c *Client) GetPurchaseOrder(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/po/%s/", url.PathEscape(id)), nil, &po); err != nil {
		return nil, err
	}
	return &po, nil
}
