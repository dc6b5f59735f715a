// Package filter holds the named list-view filters over request snapshots.
// Every list view resolves its filter here so that the same rule is never
// written twice.
package filter

import (
	"errors"
	"fmt"

	"procurement/internal/lifecycle"
	"procurement/internal/model"
)

// ErrUnknownFilter is returned by Resolve for a view or key it does not know.
var ErrUnknownFilter = errors.New("unknown filter")

// View names.
const (
	ViewRequests        = "requests"
	ViewFinance         = "finance"
	ViewApprovals       = "approvals"
	ViewApprovalHistory = "approval_history"
)

// Filter keys.
const (
	KeyStatus               = "status"
	KeyReceiptsPending      = "receipts_pending"
	KeyAwaitingReview       = "awaiting_review"
	KeyPaid                 = "paid"
	KeyOnHold               = "on_hold"
	KeyMissingReceipts      = "missing_receipts"
	KeyWaitingForMyApproval = "waiting_for_my_approval"
	KeyApprovedByMe         = "approved_by_me"
	KeyRejectedByMe         = "rejected_by_me"
)

// Predicate selects requests.
type Predicate func(model.PurchaseRequest) bool

// All matches every request.
func All(model.PurchaseRequest) bool { return true }

// Apply returns the requests p accepts, in their original order.
func Apply(reqs []model.PurchaseRequest, p Predicate) []model.PurchaseRequest {
	out := make([]model.PurchaseRequest, 0, len(reqs))
	for _, r := range reqs {
		if p(r) {
			out = append(out, r)
		}
	}
	return out
}

// And accepts a request only when every predicate does.
func And(preds ...Predicate) Predicate {
	return func(r model.PurchaseRequest) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Status matches requests whose status equals value.
func Status(value string) Predicate {
	return func(r model.PurchaseRequest) bool {
		return value != "" && r.Status == value
	}
}

// PaymentStatus matches requests whose payment status equals value.
func PaymentStatus(value string) Predicate {
	return func(r model.PurchaseRequest) bool {
		return value != "" && r.PaymentStatus == value
	}
}

// ReceiptsPending matches paid requests still owing a required receipt.
func ReceiptsPending(r model.PurchaseRequest) bool {
	return lifecycle.AwaitingReceipt(r)
}

// AwaitingReview matches approved requests whose payment has not started.
func AwaitingReview(r model.PurchaseRequest) bool {
	return r.Status == model.StatusApproved && r.PaymentStatus == model.PaymentPending
}

// DecidedBy matches requests carrying an approval by viewerID with the given action.
func DecidedBy(viewerID, action string) Predicate {
	return func(r model.PurchaseRequest) bool {
		if viewerID == "" {
			return false
		}
		for _, a := range r.Approvals {
			if a.Action == action && a.ApproverID() == viewerID {
				return true
			}
		}
		return false
	}
}

// Resolve maps a view and filter key to its predicate. An empty key selects
// everything in the view. value is only read by keys that take one.
func Resolve(view, key, value, viewerID string) (Predicate, error) {
	if key == "" {
		switch view {
		case ViewRequests, ViewFinance, ViewApprovals, ViewApprovalHistory, "":
			return All, nil
		}
		return nil, fmt.Errorf("%w: view %q", ErrUnknownFilter, view)
	}

	switch view {
	case ViewRequests, "":
		switch key {
		case KeyStatus:
			switch value {
			case model.StatusPending, model.StatusApproved, model.StatusRejected, model.StatusNeedInfo:
				return Status(value), nil
			}
		case KeyReceiptsPending:
			return ReceiptsPending, nil
		}
	case ViewFinance:
		switch key {
		case KeyAwaitingReview:
			return AwaitingReview, nil
		case KeyPaid:
			return PaymentStatus(model.PaymentPaid), nil
		case KeyOnHold:
			return PaymentStatus(model.PaymentOnHold), nil
		case KeyMissingReceipts:
			return ReceiptsPending, nil
		}
	case ViewApprovals:
		if key == KeyWaitingForMyApproval {
			return Status(model.StatusPending), nil
		}
	case ViewApprovalHistory:
		switch key {
		case KeyApprovedByMe:
			return DecidedBy(viewerID, model.ApprovalActionApproved), nil
		case KeyRejectedByMe:
			return DecidedBy(viewerID, model.ApprovalActionRejected), nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s=%s", ErrUnknownFilter, view, key, value)
}
