package lifecycle

import (
	"encoding/json"
	"testing"

	"procurement/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const creatorID = "u-creator"

func pendingRequest() model.PurchaseRequest {
	return model.PurchaseRequest{
		ID:                     "r-1",
		Status:                 model.StatusPending,
		PaymentStatus:          model.PaymentPending,
		CreatedBy:              creatorID,
		ClarificationRequested: model.Bool(false),
		ReceiptRequired:        model.Bool(true),
		ReceiptSubmitted:       model.Bool(false),
	}
}

func paidRequest() model.PurchaseRequest {
	r := pendingRequest()
	r.Status = model.StatusApproved
	r.PaymentStatus = model.PaymentPaid
	r.IsLocked = true
	return r
}

func allRoles() []string {
	return []string{model.RoleStaff, model.RoleApproverLevel1, model.RoleApproverLevel2, model.RoleFinance, "unknown"}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *model.PurchaseRequest)
		expected Label
	}{
		{name: "Pending", mutate: func(r *model.PurchaseRequest) {}, expected: LabelPending},
		{name: "Pending With Clarification", mutate: func(r *model.PurchaseRequest) {
			r.ClarificationRequested = model.Bool(true)
		}, expected: LabelNeedInfo},
		{name: "Need Info Status", mutate: func(r *model.PurchaseRequest) { r.Status = model.StatusNeedInfo }, expected: LabelNeedInfo},
		{name: "Rejected", mutate: func(r *model.PurchaseRequest) { r.Status = model.StatusRejected }, expected: LabelRejected},
		{name: "Approved Awaiting Payment", mutate: func(r *model.PurchaseRequest) { r.Status = model.StatusApproved }, expected: LabelAwaitingPayment},
		{name: "Approved Partially Paid", mutate: func(r *model.PurchaseRequest) {
			r.Status = model.StatusApproved
			r.PaymentStatus = model.PaymentPartiallyPaid
		}, expected: LabelAwaitingPayment},
		{name: "Approved Paid", mutate: func(r *model.PurchaseRequest) {
			r.Status = model.StatusApproved
			r.PaymentStatus = model.PaymentPaid
		}, expected: LabelPaid},
		{name: "Approved On Hold", mutate: func(r *model.PurchaseRequest) {
			r.Status = model.StatusApproved
			r.PaymentStatus = model.PaymentOnHold
		}, expected: LabelOnHold},
		{name: "Approved Without Payment Status", mutate: func(r *model.PurchaseRequest) {
			r.Status = model.StatusApproved
			r.PaymentStatus = ""
		}, expected: LabelApproved},
		{name: "Empty Status", mutate: func(r *model.PurchaseRequest) { r.Status = "" }, expected: LabelUnknown},
		{name: "Unrecognised Status", mutate: func(r *model.PurchaseRequest) { r.Status = "archived" }, expected: LabelUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pendingRequest()
			tt.mutate(&r)
			assert.Equal(t, tt.expected, Classify(r))
		})
	}
}

func TestActions_ApproverOnPendingRequest(t *testing.T) {
	r := pendingRequest()

	actions := Actions(r, NewViewer("u-approver", model.RoleApproverLevel1))

	assert.Equal(t, []Action{ActionApprove, ActionReject, ActionRequestClarification}, actions.List())
}

func TestActions_StaffOnPendingRequestHasNoApproverActions(t *testing.T) {
	r := pendingRequest()

	actions := Actions(r, NewViewer("u-other", model.RoleStaff))

	assert.False(t, actions.Has(ActionApprove))
	assert.False(t, actions.Has(ActionReject))
	assert.False(t, actions.Has(ActionRequestClarification))
	assert.Empty(t, actions.List())
}

func TestActions_ClarificationBlocksDecisionForEveryRole(t *testing.T) {
	for _, status := range []string{model.StatusPending, model.StatusApproved, model.StatusRejected, model.StatusNeedInfo} {
		for _, role := range allRoles() {
			r := pendingRequest()
			r.Status = status
			r.ClarificationRequested = model.Bool(true)

			for _, viewerID := range []string{creatorID, "u-someone"} {
				actions := Actions(r, NewViewer(viewerID, role))
				assert.False(t, actions.Has(ActionApprove), "status=%s role=%s", status, role)
				assert.False(t, actions.Has(ActionReject), "status=%s role=%s", status, role)
			}
		}
	}
}

func TestActions_ApproverCanStillRequestClarificationWhilePaused(t *testing.T) {
	r := pendingRequest()
	r.ClarificationRequested = model.Bool(true)

	actions := Actions(r, NewViewer("u-approver", model.RoleApproverLevel2))

	assert.Equal(t, []Action{ActionRequestClarification}, actions.List())
}

func TestActions_RespondToClarificationOnlyForCreator(t *testing.T) {
	r := pendingRequest()
	r.ClarificationRequested = model.Bool(true)

	assert.True(t, Allowed(r, NewViewer(creatorID, model.RoleStaff), ActionRespondToClarification))
	assert.False(t, Allowed(r, NewViewer("u-other", model.RoleStaff), ActionRespondToClarification))
	assert.False(t, Allowed(r, NewViewer("u-approver", model.RoleApproverLevel1), ActionRespondToClarification))

	r.ClarificationRequested = model.Bool(false)
	assert.False(t, Allowed(r, NewViewer(creatorID, model.RoleStaff), ActionRespondToClarification))
}

func TestActions_UploadReceiptEligibility(t *testing.T) {
	creator := NewViewer(creatorID, model.RoleStaff)

	assert.True(t, Allowed(paidRequest(), creator, ActionUploadReceipt))

	flips := map[string]func(r *model.PurchaseRequest){
		"Payment Not Paid":      func(r *model.PurchaseRequest) { r.PaymentStatus = model.PaymentPending },
		"Receipt Submitted":     func(r *model.PurchaseRequest) { r.ReceiptSubmitted = model.Bool(true) },
		"Receipt Not Needed":    func(r *model.PurchaseRequest) { r.ReceiptRequired = model.Bool(false) },
		"Required Flag Absent":  func(r *model.PurchaseRequest) { r.ReceiptRequired = nil },
		"Submitted Flag Absent": func(r *model.PurchaseRequest) { r.ReceiptSubmitted = nil },
	}
	for name, flip := range flips {
		t.Run(name, func(t *testing.T) {
			r := paidRequest()
			flip(&r)
			assert.False(t, Allowed(r, creator, ActionUploadReceipt))
			assert.False(t, AwaitingReceipt(r))
		})
	}

	t.Run("Not Creator", func(t *testing.T) {
		assert.False(t, Allowed(paidRequest(), NewViewer("u-other", model.RoleStaff), ActionUploadReceipt))
	})
}

func TestActions_UpdatePaymentStatusOnlyFinanceOnApproved(t *testing.T) {
	r := pendingRequest()
	r.Status = model.StatusApproved

	assert.True(t, Allowed(r, NewViewer("u-fin", model.RoleFinance), ActionUpdatePaymentStatus))
	assert.False(t, Allowed(r, NewViewer("u-app", model.RoleApproverLevel1), ActionUpdatePaymentStatus))

	r.Status = model.StatusPending
	assert.False(t, Allowed(r, NewViewer("u-fin", model.RoleFinance), ActionUpdatePaymentStatus))
}

func TestActions_EditOnlyCreatorOfUnlockedRequest(t *testing.T) {
	r := pendingRequest()

	assert.True(t, Allowed(r, NewViewer(creatorID, model.RoleStaff), ActionEdit))
	assert.False(t, Allowed(r, NewViewer("u-other", model.RoleStaff), ActionEdit))

	r.IsLocked = true
	assert.False(t, Allowed(r, NewViewer(creatorID, model.RoleStaff), ActionEdit))
}

func TestActions_EmptyViewerGetsNothing(t *testing.T) {
	r := pendingRequest()
	r.CreatedBy = ""

	assert.Empty(t, Actions(r, Viewer{}).List())
}

func TestCapabilitiesFor(t *testing.T) {
	assert.True(t, CapabilitiesFor(model.RoleApproverLevel1).Has(CapApproveRequests))
	assert.True(t, CapabilitiesFor(model.RoleApproverLevel2).Has(CapApproveRequests))
	assert.False(t, CapabilitiesFor(model.RoleFinance).Has(CapApproveRequests))
	assert.True(t, CapabilitiesFor(model.RoleFinance).Has(CapManagePayments))
	assert.False(t, CapabilitiesFor(model.RoleStaff).Has(CapApproveRequests))
	// role names that merely contain "approver" get nothing
	assert.Empty(t, CapabilitiesFor("approver").List())
	assert.Empty(t, CapabilitiesFor("not_an_approver_level_1").List())
}

func TestActionSet_MarshalJSON(t *testing.T) {
	r := pendingRequest()
	data, err := json.Marshal(Actions(r, NewViewer(creatorID, model.RoleApproverLevel1)))
	require.NoError(t, err)

	assert.JSONEq(t, `["approve","reject","request_clarification","edit"]`, string(data))
}
