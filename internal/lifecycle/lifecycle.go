// Package lifecycle classifies purchase requests into display labels and decides
// which workflow actions a viewer may currently take. Everything here is a pure
// function of the request snapshot and the viewer; the backend owns transitions.
package lifecycle

import (
	"encoding/json"

	"procurement/internal/model"
)

// Label is the display category of a request.
type Label string

const (
	LabelPending         Label = "pending"
	LabelApproved        Label = "approved"
	LabelRejected        Label = "rejected"
	LabelNeedInfo        Label = "need_info"
	LabelAwaitingPayment Label = "awaiting_payment"
	LabelPaid            Label = "paid"
	LabelOnHold          Label = "on_hold"
	LabelUnknown         Label = "unknown" // status the backend sent is not recognised
)

// Action is a workflow operation offered to the viewer.
type Action string

const (
	ActionApprove                Action = "approve"
	ActionReject                 Action = "reject"
	ActionRequestClarification   Action = "request_clarification"
	ActionRespondToClarification Action = "respond_to_clarification"
	ActionUploadReceipt          Action = "upload_receipt"
	ActionUpdatePaymentStatus    Action = "update_payment_status"
	ActionEdit                   Action = "edit"
)

// actionOrder fixes the order actions are listed in.
var actionOrder = []Action{
	ActionApprove,
	ActionReject,
	ActionRequestClarification,
	ActionRespondToClarification,
	ActionUploadReceipt,
	ActionUpdatePaymentStatus,
	ActionEdit,
}

// Classify returns the display label of r.
func Classify(r model.PurchaseRequest) Label {
	switch r.Status {
	case model.StatusRejected:
		return LabelRejected
	case model.StatusNeedInfo:
		return LabelNeedInfo
	case model.StatusPending:
		if r.IsClarificationRequested() {
			return LabelNeedInfo
		}
		return LabelPending
	case model.StatusApproved:
		switch r.PaymentStatus {
		case model.PaymentPaid:
			return LabelPaid
		case model.PaymentOnHold:
			return LabelOnHold
		case model.PaymentPending, model.PaymentPartiallyPaid:
			return LabelAwaitingPayment
		}
		return LabelApproved
	}
	return LabelUnknown
}

// AwaitingReceipt reports whether r has been paid and still owes a required receipt.
// A request missing either receipt flag is excluded.
func AwaitingReceipt(r model.PurchaseRequest) bool {
	if r.ReceiptRequired == nil || r.ReceiptSubmitted == nil {
		return false
	}
	return r.PaymentStatus == model.PaymentPaid && !*r.ReceiptSubmitted && *r.ReceiptRequired
}

// Actions returns the actions the viewer may take on r. Combinations that match
// no rule yield an empty set.
func Actions(r model.PurchaseRequest, v Viewer) ActionSet {
	set := make(ActionSet)
	creator := r.IsCreatedBy(v.ID)
	pending := r.Status == model.StatusPending
	approver := v.Can(CapApproveRequests)

	if approver && pending && !r.IsClarificationRequested() {
		set.add(ActionApprove)
		set.add(ActionReject)
	}
	if approver && pending {
		set.add(ActionRequestClarification)
	}
	if creator && r.IsClarificationRequested() {
		set.add(ActionRespondToClarification)
	}
	if creator && AwaitingReceipt(r) {
		set.add(ActionUploadReceipt)
	}
	if v.Can(CapManagePayments) && r.Status == model.StatusApproved {
		set.add(ActionUpdatePaymentStatus)
	}
	if creator && !r.IsLocked {
		set.add(ActionEdit)
	}
	return set
}

// Allowed is a convenience for a single action check.
func Allowed(r model.PurchaseRequest, v Viewer, a Action) bool {
	return Actions(r, v).Has(a)
}

// ActionSet is an unordered set of actions.
type ActionSet map[Action]struct{}

func (s ActionSet) add(a Action) {
	s[a] = struct{}{}
}

// Has reports whether a is in the set.
func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// List returns the actions in their canonical order.
func (s ActionSet) List() []Action {
	out := make([]Action, 0, len(s))
	for _, a := range actionOrder {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// MarshalJSON encodes the set as an ordered list.
func (s ActionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}
