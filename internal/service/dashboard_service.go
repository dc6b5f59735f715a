package service

import (
	"context"

	"procurement/internal/client"
	"procurement/internal/filter"
	"procurement/internal/lifecycle"
	"procurement/internal/model"
)

type DashboardStats struct {
	TotalRequests    int `json:"total_requests"`
	PendingRequests  int `json:"pending_requests"`
	ApprovedRequests int `json:"approved_requests"`
	RejectedRequests int `json:"rejected_requests"`
	NeedInfoRequests int `json:"need_info_requests"`
	ReceiptsPending  int `json:"receipts_pending"`

	// Finance counters, only filled for viewers who manage payments.
	AwaitingReview  *int `json:"awaiting_review,omitempty"`
	Paid            *int `json:"paid,omitempty"`
	OnHold          *int `json:"on_hold,omitempty"`
	MissingReceipts *int `json:"missing_receipts,omitempty"`

	// Approver counter, only filled for viewers who approve.
	WaitingForMyApproval *int `json:"waiting_for_my_approval,omitempty"`
}

type DashboardService interface {
	GetStats(ctx context.Context) (*DashboardStats, error)
}

type dashboardService struct {
	api *client.Client
}

func NewDashboardService(api *client.Client) DashboardService {
	return &dashboardService{api: api}
}

func count(reqs []model.PurchaseRequest, p filter.Predicate) int {
	return len(filter.Apply(reqs, p))
}

func countPtr(reqs []model.PurchaseRequest, p filter.Predicate) *int {
	n := count(reqs, p)
	return &n
}

// GetStats counts the viewer's visible requests with the same named filters the list views use
func (s *dashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	sess, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}

	reqs, err := s.api.WithToken(sess.AccessToken).ListRequests(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalRequests:    len(reqs),
		PendingRequests:  count(reqs, filter.Status(model.StatusPending)),
		ApprovedRequests: count(reqs, filter.Status(model.StatusApproved)),
		RejectedRequests: count(reqs, filter.Status(model.StatusRejected)),
		NeedInfoRequests: count(reqs, func(r model.PurchaseRequest) bool {
			return lifecycle.Classify(r) == lifecycle.LabelNeedInfo
		}),
		ReceiptsPending: count(reqs, filter.ReceiptsPending),
	}

	if sess.Can(lifecycle.CapManagePayments) {
		stats.AwaitingReview = countPtr(reqs, filter.AwaitingReview)
		stats.Paid = countPtr(reqs, filter.PaymentStatus(model.PaymentPaid))
		stats.OnHold = countPtr(reqs, filter.PaymentStatus(model.PaymentOnHold))
		stats.MissingReceipts = countPtr(reqs, filter.ReceiptsPending)
	}
	if sess.Can(lifecycle.CapApproveRequests) {
		waiting, err := filter.Resolve(filter.ViewApprovals, filter.KeyWaitingForMyApproval, "", sess.User.ID)
		if err != nil {
			return nil, err
		}
		stats.WaitingForMyApproval = countPtr(reqs, waiting)
	}
	return stats, nil
}
