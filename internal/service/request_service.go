package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"procurement/internal/client"
	"procurement/internal/document"
	"procurement/internal/filter"
	"procurement/internal/lifecycle"
	"procurement/internal/model"
	"procurement/internal/pricing"
	"procurement/internal/reconcile"
	"procurement/internal/repository"
	"procurement/internal/session"

	"github.com/rs/zerolog"
)

// --- DTOs ---

type RequestItemInput struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type RequestInput struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Items       []RequestItemInput `json:"items"`
}

type ListQuery struct {
	View   string `form:"view"`
	Filter string `form:"filter"`
	Value  string `form:"value"`
}

// Upload is a file received from the browser, not yet forwarded.
type Upload struct {
	Name string
	Size int64
	Body io.ReadSeeker
}

// RequestView is a request snapshot together with its display label and the
// actions the current viewer may take on it.
type RequestView struct {
	model.PurchaseRequest
	Label   lifecycle.Label     `json:"label"`
	Actions lifecycle.ActionSet `json:"actions" swaggertype:"array,string"`
}

type RequestDetail struct {
	RequestView
	Comparison *reconcile.Report `json:"comparison,omitempty"`
}

// --- Interface ---

type RequestService interface {
	List(ctx context.Context, q ListQuery) ([]RequestView, error)
	Get(ctx context.Context, id string) (*RequestDetail, error)
	Create(ctx context.Context, in RequestInput) (*RequestView, error)
	Update(ctx context.Context, id string, in RequestInput) (*RequestView, error)
	Delete(ctx context.Context, id string) error
	Approve(ctx context.Context, id, comment string) (*RequestView, error)
	Reject(ctx context.Context, id, comment string) (*RequestView, error)
	RequestClarification(ctx context.Context, id, message string) (*RequestView, error)
	RespondToClarification(ctx context.Context, id, response string) (*RequestView, error)
	UploadReceipt(ctx context.Context, id string, file Upload) (*RequestView, error)
	UpdatePaymentStatus(ctx context.Context, id, status string, proof *Upload) (*RequestView, error)
	UploadProforma(ctx context.Context, id string, file Upload) (*RequestView, error)
	Compare(ctx context.Context, id string) (*reconcile.Report, error)
}

type requestService struct {
	api    *client.Client
	audit  auditWriter
	events EventPublisher
	log    zerolog.Logger
}

func NewRequestService(
	api *client.Client,
	auditRepo repository.AuditRepository,
	events EventPublisher,
	log zerolog.Logger,
) RequestService {
	return &requestService{
		api:    api,
		audit:  auditWriter{repo: auditRepo, log: log},
		events: publisherOrNop(events),
		log:    log,
	}
}

func newView(r model.PurchaseRequest, v lifecycle.Viewer) RequestView {
	return RequestView{PurchaseRequest: r, Label: lifecycle.Classify(r), Actions: lifecycle.Actions(r, v)}
}

// backendFor returns a client authenticated as the session's user.
func (s *requestService) backendFor(ctx context.Context) (*session.Session, *client.Client, error) {
	sess, err := currentSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sess, s.api.WithToken(sess.AccessToken), nil
}

// --- Reads ---

func (s *requestService) List(ctx context.Context, q ListQuery) ([]RequestView, error) {
	sess, api, err := s.backendFor(ctx)
	if err != nil {
		return nil, err
	}

	pred, err := filter.Resolve(q.View, q.Filter, q.Value, sess.User.ID)
	if err != nil {
		return nil, invalid("filter", err.Error())
	}

	var reqs []model.PurchaseRequest
	if q.View == filter.ViewApprovalHistory {
		reqs, err = api.MyApprovals(ctx)
	} else {
		reqs, err = api.ListRequests(ctx)
	}
	if err != nil {
		return nil, err
	}

	viewer := sess.Viewer()
	matched := filter.Apply(reqs, pred)
	out := make([]RequestView, 0, len(matched))
	for _, r := range matched {
		out = append(out, newView(r, viewer))
	}
	return out, nil
}

func (s *requestService) Get(ctx context.Context, id string) (*RequestDetail, error) {
	sess, api, err := s.backendFor(ctx)
	if err != nil {
		return nil, err
	}

	r, err := api.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &RequestDetail{RequestView: newView(*r, sess.Viewer())}
	if r.PurchaseOrder != nil && r.ReceiptMetadata != nil {
		report := reconcile.Compare(*r.PurchaseOrder, *r.ReceiptMetadata)
		detail.Comparison = &report
	}
	return detail, nil
}

func (s *requestService) Compare(ctx context.Context, id string) (*reconcile.Report, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.Comparison == nil {
		return nil, ErrNothingToCompare
	}
	return detail.Comparison, nil
}

// --- Create / edit ---

// validateInput checks the form and builds the backend payload. Rows left
// completely blank are dropped; any other row must be complete.
func validateInput(in RequestInput) (client.RequestPayload, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return client.RequestPayload{}, invalid("title", "Title is required")
	}

	items := make([]model.RequestItem, 0, len(in.Items))
	for i, it := range in.Items {
		desc := strings.TrimSpace(it.Description)
		price := strings.TrimSpace(it.UnitPrice)
		if desc == "" && price == "" {
			continue
		}
		field := fmt.Sprintf("items[%d]", i)
		if desc == "" {
			return client.RequestPayload{}, invalid(field, "Description is required")
		}
		if it.Quantity < 1 {
			return client.RequestPayload{}, invalid(field, "Quantity must be at least 1")
		}
		if price == "" {
			price = "0"
		}
		amount, err := pricing.ParseStrict(price)
		if err != nil || amount.IsNegative() {
			return client.RequestPayload{}, invalid(field, "Unit price must be a non-negative number")
		}
		items = append(items, model.RequestItem{
			Description: desc,
			Quantity:    it.Quantity,
			UnitPrice:   price,
		})
	}
	if len(items) == 0 {
		return client.RequestPayload{}, invalid("items", "At least one item is required")
	}

	total := pricing.PriceItems(items)
	return client.RequestPayload{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Items:       items,
		TotalAmount: total,
	}, nil
}

func (s *requestService) Create(ctx context.Context, in RequestInput) (*RequestView, error) {
	sess, api, err := s.backendFor(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.Can(lifecycle.CapCreateRequests) {
		return nil, ErrActionNotAllowed
	}

	payload, err := validateInput(in)
	if err != nil {
		return nil, err
	}
	created, err := api.CreateRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, sess, model.ActionCreateRequest, created.ID, created.Title, map[string]any{
		"items":        len(payload.Items),
		"total_amount": payload.TotalAmount,
	})
	s.events.Publish(Event{Type: EventRequestCreated, RequestID: created.ID, ActorID: sess.User.ID})

	view := newView(*created, sess.Viewer())
	return &view, nil
}

func (s *requestService) Update(ctx context.Context, id string, in RequestInput) (*RequestView, error) {
	payload, err := validateInput(in)
	if err != nil {
		return nil, err
	}
	return s.act(ctx, id, lifecycle.ActionEdit, model.ActionUpdateRequest,
		map[string]any{"items": len(payload.Items), "total_amount": payload.TotalAmount},
		func(api *client.Client) error {
			_, err := api.UpdateRequest(ctx, id, payload)
			return err
		})
}

func (s *requestService) Delete(ctx context.Context, id string) error {
	sess, api, err := s.backendFor(ctx)
	if err != nil {
		return err
	}

	r, err := api.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if !r.IsCreatedBy(sess.User.ID) {
		return fmt.Errorf("%w: only the creator can delete a request", ErrActionNotAllowed)
	}
	if err := api.DeleteRequest(ctx, id); err != nil {
		return err
	}

	s.audit.record(ctx, sess, model.ActionDeleteRequest, id, r.Title, nil)
	s.events.Publish(Event{Type: EventRequestDeleted, RequestID: id, ActorID: sess.User.ID})
	return nil
}

// --- Workflow actions ---

// act checks that the viewer may take action on a fresh snapshot, performs the
// backend call, records it and returns the re-fetched request.
func (s *requestService) act(
	ctx context.Context,
	id string,
	action lifecycle.Action,
	auditAction string,
	details any,
	call func(api *client.Client) error,
) (*RequestView, error) {
	sess, api, err := s.backendFor(ctx)
	if err != nil {
		return nil, err
	}

	current, err := api.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	viewer := sess.Viewer()
	if !lifecycle.Allowed(*current, viewer, action) {
		return nil, fmt.Errorf("%w: %s", ErrActionNotAllowed, action)
	}

	if err := call(api); err != nil {
		return nil, err
	}

	s.audit.record(ctx, sess, auditAction, id, current.Title, details)
	s.events.Publish(Event{Type: EventRequestUpdated, RequestID: id, Action: string(action), ActorID: sess.User.ID})

	fresh, err := api.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload request: %w", err)
	}
	view := newView(*fresh, viewer)
	return &view, nil
}

func (s *requestService) Approve(ctx context.Context, id, comment string) (*RequestView, error) {
	comment = strings.TrimSpace(comment)
	return s.act(ctx, id, lifecycle.ActionApprove, model.ActionApproveRequest, map[string]any{"comment": comment},
		func(api *client.Client) error { return api.ApproveRequest(ctx, id, comment) })
}

func (s *requestService) Reject(ctx context.Context, id, comment string) (*RequestView, error) {
	comment = strings.TrimSpace(comment)
	return s.act(ctx, id, lifecycle.ActionReject, model.ActionRejectRequest, map[string]any{"comment": comment},
		func(api *client.Client) error { return api.RejectRequest(ctx, id, comment) })
}

func (s *requestService) RequestClarification(ctx context.Context, id, message string) (*RequestView, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalid("message", "Message is required")
	}
	return s.act(ctx, id, lifecycle.ActionRequestClarification, model.ActionRequestClarification, map[string]any{"message": message},
		func(api *client.Client) error { return api.RequestClarification(ctx, id, message) })
}

func (s *requestService) RespondToClarification(ctx context.Context, id, response string) (*RequestView, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, invalid("response", "Response is required")
	}
	return s.act(ctx, id, lifecycle.ActionRespondToClarification, model.ActionRespondToClarification, map[string]any{"response": response},
		func(api *client.Client) error { return api.RespondToClarification(ctx, id, response) })
}

func (s *requestService) UploadReceipt(ctx context.Context, id string, file Upload) (*RequestView, error) {
	f, err := s.prepareUpload("receipt", file)
	if err != nil {
		return nil, err
	}
	return s.act(ctx, id, lifecycle.ActionUploadReceipt, model.ActionUploadReceipt, uploadDetails(file, f),
		func(api *client.Client) error {
			return api.UploadReceipt(ctx, id, f, s.progress(ctx, id))
		})
}

func (s *requestService) UploadProforma(ctx context.Context, id string, file Upload) (*RequestView, error) {
	f, err := s.prepareUpload("file", file)
	if err != nil {
		return nil, err
	}
	return s.act(ctx, id, lifecycle.ActionEdit, model.ActionUploadProforma, uploadDetails(file, f),
		func(api *client.Client) error {
			return api.UploadProforma(ctx, id, f, s.progress(ctx, id))
		})
}

var paymentStatuses = map[string]bool{
	model.PaymentPending:       true,
	model.PaymentPaid:          true,
	model.PaymentPartiallyPaid: true,
	model.PaymentOnHold:        true,
}

func (s *requestService) UpdatePaymentStatus(ctx context.Context, id, status string, proof *Upload) (*RequestView, error) {
	if !paymentStatuses[status] {
		return nil, invalid("payment_status", "must be one of pending, paid, partially_paid, on_hold")
	}

	var proofFile *client.File
	details := map[string]any{"payment_status": status}
	if proof != nil {
		f, err := s.prepareUpload("payment_proof", *proof)
		if err != nil {
			return nil, err
		}
		proofFile = &f
		details["payment_proof"] = uploadDetails(*proof, f)
	}

	return s.act(ctx, id, lifecycle.ActionUpdatePaymentStatus, model.ActionUpdatePaymentStatus, details,
		func(api *client.Client) error {
			return api.UpdatePaymentStatus(ctx, id, status, proofFile, s.progress(ctx, id))
		})
}

func (s *requestService) prepareUpload(field string, file Upload) (client.File, error) {
	if file.Body == nil {
		return client.File{}, invalid(field, "File is required")
	}
	contentType, err := document.Validate(file.Body, file.Size)
	if err != nil {
		return client.File{}, invalid(field, err.Error())
	}
	return client.File{Name: file.Name, ContentType: contentType, Body: file.Body}, nil
}

// progress forwards upload progress to the uploading user's connections.
func (s *requestService) progress(ctx context.Context, id string) client.ProgressFunc {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return nil
	}
	return func(percent int) {
		s.events.Publish(Event{Type: EventUploadProgress, RequestID: id, Progress: percent, UserID: sess.User.ID})
	}
}

func uploadDetails(u Upload, f client.File) map[string]any {
	return map[string]any{"file_name": u.Name, "size": u.Size, "content_type": f.ContentType}
}
